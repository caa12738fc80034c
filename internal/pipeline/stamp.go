package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// stampDir holds one options fingerprint per task, under the build
// directory so that cleaning the staging directory keeps them.
const stampDir = ".lsp-stamps"

func (p *Pipeline) stampPath(task string) string {
	return filepath.Join(p.path(p.Config.BuildDir), stampDir, task)
}

// fingerprint hashes the JSON form of a task's options.
func fingerprint(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// optionsCurrent reports whether t last ran with the options it has now.
// Tasks without options are always current.
func (p *Pipeline) optionsCurrent(t *Task) bool {
	if t.Options == nil {
		return true
	}
	want, err := fingerprint(t.Options())
	if err != nil {
		return false
	}
	got, err := os.ReadFile(p.stampPath(t.Name))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(got)) == want
}

func (p *Pipeline) writeStamp(t *Task) {
	if t.Options == nil {
		return
	}
	sum, err := fingerprint(t.Options())
	if err == nil {
		path := p.stampPath(t.Name)
		if err = os.MkdirAll(filepath.Dir(path), 0755); err == nil {
			err = os.WriteFile(path, []byte(sum+"\n"), 0644)
		}
	}
	if err != nil {
		p.logger.Warn("Failed to write task stamp", "task", t.Name, "error", err)
	}
}
