package android

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"lspws/internal/model"
)

// DefaultCompileSdk is used when no other source names a platform version.
const DefaultCompileSdk = 36

// Sources of a detected platform version.
const (
	SourceConfig      = "config"
	SourceModel       = "model"
	SourceBuildScript = "build-script"
	SourceDefault     = "default"
)

// Detection is a platform version and where it came from.
type Detection struct {
	CompileSdk int
	Source     string
	File       string
}

// DetectCompileSdk picks the target platform version. An explicit value
// wins, then the first subdivision that reports one in the model, then the
// first build script that assigns a literal compileSdk, then
// DefaultCompileSdk.
func DetectCompileSdk(ctx context.Context, explicit int, m *model.Model) Detection {
	if explicit > 0 {
		return Detection{CompileSdk: explicit, Source: SourceConfig}
	}
	if m == nil {
		return Detection{CompileSdk: DefaultCompileSdk, Source: SourceDefault}
	}
	subs := m.Subdivisions()
	for _, p := range subs {
		if p.CompileSdk > 0 {
			return Detection{CompileSdk: p.CompileSdk, Source: SourceModel}
		}
	}
	for _, p := range subs {
		dir := m.ProjectDir(p)
		if v, file, ok := scanBuildScripts(ctx, dir); ok {
			return Detection{CompileSdk: v, Source: SourceBuildScript, File: file}
		}
	}
	return Detection{CompileSdk: DefaultCompileSdk, Source: SourceDefault}
}

func scanBuildScripts(ctx context.Context, dir string) (int, string, bool) {
	kts := filepath.Join(dir, "build.gradle.kts")
	if src, err := os.ReadFile(kts); err == nil {
		if v, ok := ScanKotlinScript(ctx, src); ok {
			return v, kts, true
		}
	}
	groovy := filepath.Join(dir, "build.gradle")
	if src, err := os.ReadFile(groovy); err == nil {
		if v, ok := ScanGroovyScript(src); ok {
			return v, groovy, true
		}
	}
	return 0, "", false
}

var groovyCompileSdk = regexp.MustCompile(`(?m)^\s*(?:android\.)?compileSdk(?:Version)?\s*(?:=\s*|\(\s*|\s+)(\d+)`)

// ScanGroovyScript finds a literal platform version in a Groovy build script.
func ScanGroovyScript(src []byte) (int, bool) {
	m := groovyCompileSdk.FindSubmatch(src)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false
	}
	return v, true
}
