package testutil

import (
	"bytes"
	"path/filepath"
)

// Normalize replaces the fixture's working directory in data with
// Placeholder so output can be compared across machines.
func Normalize(data []byte, dir string) []byte {
	if dir == "" {
		return data
	}
	out := bytes.ReplaceAll(data, []byte(dir), []byte(Placeholder))
	if slashed := filepath.ToSlash(dir); slashed != dir {
		out = bytes.ReplaceAll(out, []byte(slashed), []byte(Placeholder))
	}
	return out
}
