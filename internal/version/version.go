// Package version holds the lspws build information.
package version

import "runtime"

// Set at build time:
// go build -ldflags "-X lspws/internal/version.Version=1.0.0 -X lspws/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with the short commit when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the version, commit, build date and toolchain.
func Full() string {
	return "lspws version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}
