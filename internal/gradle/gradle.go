// Package gradle runs the model export task of a Gradle build.
package gradle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"lspws/internal/errors"
)

// ExportTask is the task registered by the init script.
const ExportTask = "lspwsExportModel"

// ModelFileProperty is the project property that moves the exported model.
const ModelFileProperty = "lspwsModelFile"

// Exporter writes the init script and runs the export task.
type Exporter struct {
	ProjectDir string
	ModelFile  string
	InitScript string
	Runner     Runner

	logger *slog.Logger
}

// NewExporter creates an exporter for the build in projectDir. modelFile and
// initScript are absolute paths.
func NewExporter(projectDir, modelFile, initScript string, runner Runner, logger *slog.Logger) *Exporter {
	return &Exporter{
		ProjectDir: projectDir,
		ModelFile:  modelFile,
		InitScript: initScript,
		Runner:     runner,
		logger:     logger,
	}
}

// WrapperName returns the wrapper script name for the current OS.
func WrapperName() string {
	if runtime.GOOS == "windows" {
		return "gradlew.bat"
	}
	return "gradlew"
}

// Command returns the Gradle executable: the project's wrapper when present,
// else gradle from PATH.
func (e *Exporter) Command() (string, error) {
	wrapper := filepath.Join(e.ProjectDir, WrapperName())
	if info, err := os.Stat(wrapper); err == nil && !info.IsDir() {
		return wrapper, nil
	}
	path, err := e.Runner.LookPath("gradle")
	if err != nil {
		return "", errors.New(errors.GradleFailed, "no Gradle wrapper in "+e.ProjectDir+" and gradle is not on PATH", err)
	}
	return path, nil
}

// Args returns the arguments of the export invocation.
func (e *Exporter) Args() []string {
	return []string{
		"--init-script", e.InitScript,
		fmt.Sprintf("-P%s=%s", ModelFileProperty, e.ModelFile),
		"--quiet",
		ExportTask,
	}
}

// WriteInitScript writes script to the init script path.
func (e *Exporter) WriteInitScript(script []byte) error {
	if err := os.MkdirAll(filepath.Dir(e.InitScript), 0755); err != nil {
		return errors.New(errors.IOFailure, "failed to create "+filepath.Dir(e.InitScript), err)
	}
	if err := os.WriteFile(e.InitScript, script, 0644); err != nil {
		return errors.New(errors.IOFailure, "failed to write init script", err)
	}
	return nil
}

// Export writes the init script and runs the export task.
func (e *Exporter) Export(ctx context.Context, script []byte) error {
	if err := e.WriteInitScript(script); err != nil {
		return err
	}
	gradle, err := e.Command()
	if err != nil {
		return err
	}

	e.logger.Info("Exporting project model", "gradle", gradle, "model", e.ModelFile)
	_, stderr, err := e.Runner.Run(ctx, e.ProjectDir, gradle, e.Args()...)
	if err != nil {
		msg := "model export failed"
		if line := lastLine(stderr); line != "" {
			msg += ": " + line
		}
		return errors.New(errors.GradleFailed, msg, err)
	}
	if _, err := os.Stat(e.ModelFile); err != nil {
		return errors.New(errors.ModelMissing, "export finished without writing "+e.ModelFile, err)
	}
	return nil
}

// lastLine returns the last non-empty line of s.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n\t ")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
