package pipeline

import (
	"os"
	"time"
)

// UpToDate reports whether every output exists and none is older than the
// newest existing input. Tasks without outputs are never up to date.
func UpToDate(inputs, outputs []string) bool {
	if len(outputs) == 0 {
		return false
	}

	var oldestOutput time.Time
	for i, out := range outputs {
		info, err := os.Stat(out)
		if err != nil {
			return false
		}
		if i == 0 || info.ModTime().Before(oldestOutput) {
			oldestOutput = info.ModTime()
		}
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			continue
		}
		if info.ModTime().After(oldestOutput) {
			return false
		}
	}
	return true
}
