package resolve

import (
	"context"
	"log/slog"

	"lspws/internal/model"
	"lspws/internal/outcome"
	"lspws/internal/staging"
)

// Options controls collection.
type Options struct {
	IncludeTests  bool
	CopyToStaging bool
}

// Collector resolves a project's compile configurations into libraries.
type Collector struct {
	Resolver Resolver
	Cache    *staging.Cache
	Sources  *SourcesLocator
	Options  Options
	Report   *outcome.Report
	logger   *slog.Logger
}

// NewCollector creates a collector.
func NewCollector(r Resolver, cache *staging.Cache, sources *SourcesLocator, opts Options, report *outcome.Report, logger *slog.Logger) *Collector {
	return &Collector{
		Resolver: r,
		Cache:    cache,
		Sources:  sources,
		Options:  opts,
		Report:   report,
		logger:   logger,
	}
}

// Collect resolves every selected configuration of p. A configuration that
// fails to resolve is logged, reported and skipped. When several
// configurations resolve the same coordinate the last one wins. The only
// error returned is context cancellation.
func (c *Collector) Collect(ctx context.Context, p *model.Project) (map[string]Library, error) {
	libs := make(map[string]Library)
	for _, cfg := range SelectConfigurations(p, c.Options.IncludeTests) {
		if err := ctx.Err(); err != nil {
			return libs, err
		}
		artifacts, err := c.Resolver.Resolve(ctx, p, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return libs, ctx.Err()
			}
			c.logger.Warn("Could not resolve configuration", "project", p.Path, "configuration", cfg.Name, "error", err)
			c.Report.Add(outcome.StageResolve, p.Path+"/"+cfg.Name, "configuration resolution failed", err)
			continue
		}
		for _, a := range artifacts {
			lib := c.library(a)
			libs[lib.Name] = lib
		}
	}
	return libs, nil
}

func (c *Collector) library(a Resolved) Library {
	name := LibraryName(a.Coordinate)

	binary := outcome.Record(c.Report, outcome.StageExtract, name,
		c.Cache.Normalize(a.File, a.Coordinate, c.Options.CopyToStaging))

	var sources string
	found := outcome.Record(c.Report, outcome.StageSources, name, c.Sources.Locate(a.Coordinate, a.File))
	if found.Present {
		sources = found.Value
		if c.Options.CopyToStaging {
			staged, err := c.Cache.StageCopy(found.Value, staging.SourcesJarName(a.Coordinate.Name, a.Coordinate.Version))
			if err != nil {
				c.logger.Warn("Failed to stage sources", "library", name, "error", err)
				c.Report.Add(outcome.StageSources, name, "sources staging failed", err)
			} else {
				sources = staged
			}
		}
	}

	return NewLibrary(a.Coordinate, binary.Value, sources)
}

// ApplyScopes marks libraries whose group:name is in compileOnly as
// provided and all others as compile.
func ApplyScopes(libs map[string]Library, compileOnly map[string]bool) {
	for name, lib := range libs {
		if compileOnly[lib.Coordinate.GA()] {
			lib.Scope = ScopeProvided
		} else {
			lib.Scope = ScopeCompile
		}
		libs[name] = lib
	}
}
