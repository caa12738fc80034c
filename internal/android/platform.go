package android

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"lspws/internal/model"
	"lspws/internal/outcome"
	"lspws/internal/resolve"
	"lspws/internal/staging"
)

// PlatformGroup is the group and artifact name of the platform library.
const PlatformGroup = "android"

// sourceProperties marks a complete platform source tree.
const sourceProperties = "source.properties"

// Locator registers the target platform as a library.
type Locator struct {
	Cache         *staging.Cache
	Archiver      Archiver
	CopyToStaging bool
	Report        *outcome.Report
	logger        *slog.Logger
}

// NewLocator creates a platform locator.
func NewLocator(cache *staging.Cache, archiver Archiver, copyToStaging bool, report *outcome.Report, logger *slog.Logger) *Locator {
	return &Locator{
		Cache:         cache,
		Archiver:      archiver,
		CopyToStaging: copyToStaging,
		Report:        report,
		logger:        logger,
	}
}

// PlatformCoordinate is the coordinate the platform library is registered
// under.
func PlatformCoordinate(p Platform) model.Coordinate {
	return model.Coordinate{Group: PlatformGroup, Name: PlatformGroup, Version: p.Version()}
}

// Library returns the platform library for p. It is absent when the platform
// is not installed.
func (l *Locator) Library(ctx context.Context, p Platform) outcome.Result[resolve.Library] {
	coord := PlatformCoordinate(p)
	name := resolve.LibraryName(coord)

	jar := p.JarPath()
	if _, err := os.Stat(jar); err != nil {
		l.logger.Warn("Platform jar not found", "path", jar)
		return outcome.Record(l.Report, outcome.StageSDK, name,
			outcome.Absent[resolve.Library]("android.jar not found for android-"+p.Version(), err))
	}

	binary := jar
	if l.CopyToStaging {
		staged, err := l.Cache.StageCopy(jar, staging.JarName("android", p.Version()))
		if err != nil {
			l.logger.Warn("Failed to stage platform jar", "path", jar, "error", err)
			l.Report.Add(outcome.StageSDK, name, "platform jar staging failed", err)
		} else {
			binary = staged
		}
	}

	sources := outcome.Record(l.Report, outcome.StageSources, name, l.sources(ctx, p))

	lib := resolve.NewLibrary(coord, binary, sources.OrElse(""))
	lib.Scope = resolve.ScopeProvided
	return outcome.Of(lib)
}

// sources archives the platform source tree, reusing a staged archive that is
// newer than the tree. Without a tree the stub sources are used.
func (l *Locator) sources(ctx context.Context, p Platform) outcome.Result[string] {
	dir := p.SourcesDir()
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		dest := l.Cache.Path(staging.SourcesJarName("android", p.Version()))
		reference := filepath.Join(dir, sourceProperties)
		if _, err := os.Stat(reference); err != nil {
			reference = dir
		}
		if stale, err := staging.IsStale(dest, reference); err == nil && !stale {
			l.logger.Debug("Platform sources are current", "path", dest)
			return outcome.Of(dest)
		}

		l.logger.Info("Archiving platform sources", "dir", dir, "archiver", l.Archiver.Name())
		err := l.Archiver.Archive(ctx, dir, dest)
		if err == nil {
			return outcome.Of(dest)
		}
		l.logger.Warn("Failed to archive platform sources", "dir", dir, "error", err)
		l.Report.Add(outcome.StageArchive, "android-"+p.Version(), "source archive failed", err)
	}

	stub := p.StubSources()
	if _, err := os.Stat(stub); err == nil {
		return outcome.Of(stub)
	}
	return outcome.NotFound[string]("no platform sources installed")
}
