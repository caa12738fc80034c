package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lspws/internal/android"
	"lspws/internal/catalog"
	"lspws/internal/model"
	"lspws/internal/pipeline"
	"lspws/internal/staging"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the project and Android SDK setup",
	Long: `Check the project model, the Android SDK and platform, platform
sources, the Kotlin version, the sources archiver and the Gradle
executable, and report what lspws would use.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(doctorCmd)
}

// Check statuses.
const (
	checkOK   = "ok"
	checkWarn = "warn"
	checkFail = "fail"
)

// DoctorCheck is one diagnostic.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DoctorResponse is the output of doctor.
type DoctorResponse struct {
	ProjectDir string        `json:"projectDir"`
	Healthy    bool          `json:"healthy"`
	Checks     []DoctorCheck `json:"checks"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(doctorFormat)
	if err != nil {
		return err
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	resp := diagnose(cmd.Context(), e)
	if format == FormatJSON {
		if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		printDoctorHuman(cmd, resp)
	}
	if !resp.Healthy {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}

func diagnose(ctx context.Context, e *env) *DoctorResponse {
	if ctx == nil {
		ctx = context.Background()
	}
	resp := &DoctorResponse{ProjectDir: e.projectDir, Healthy: true}
	add := func(name, status, format string, args ...any) {
		resp.Checks = append(resp.Checks, DoctorCheck{Name: name, Status: status, Message: fmt.Sprintf(format, args...)})
		if status == checkFail {
			resp.Healthy = false
		}
	}

	if e.configFile != "" {
		add("config", checkOK, "%s", e.configFile)
	} else {
		add("config", checkOK, "defaults (no lspws.toml)")
	}

	rootDir := e.projectDir
	m, err := model.Load(e.path(e.cfg.ModelFile))
	if err != nil {
		add("model", checkFail, "%v", err)
	} else {
		rootDir = m.RootDir
		add("model", checkOK, "%s: %d subdivisions", m.RootName, len(m.Subdivisions()))
	}

	detected := android.DetectCompileSdk(ctx, e.cfg.CompileSdk, m)
	source := detected.Source
	if detected.File != "" {
		source += " " + detected.File
	}
	add("compileSdk", checkOK, "%d (%s)", detected.CompileSdk, source)

	sdk := android.FindSDK(rootDir, e.getenv)
	if !sdk.Present {
		add("sdk", checkWarn, "%s; workspace.json will have no platform", sdk.Reason)
	} else {
		checkPlatform(add, android.Platform{SDKPath: sdk.Value, CompileSdk: detected.CompileSdk})
	}

	if kv, ok := catalog.KotlinVersion(e.cfg.KotlinVersion, rootDir, m); ok {
		add("kotlin", checkOK, "%s (%s)", kv.Version, kv.Source)
	} else {
		add("kotlin", checkWarn, "not detected; set kotlinVersion")
	}

	if a, err := android.NewArchiver(e.cfg.SourcesArchiver); err != nil {
		add("archiver", checkFail, "%v", err)
	} else {
		add("archiver", checkOK, "%s", a.Name())
	}

	if gradle, err := e.exporter().Command(); err != nil {
		add("gradle", checkWarn, "%v", err)
	} else {
		add("gradle", checkOK, "%s", gradle)
	}

	if lock, err := staging.AcquireLock(e.path(e.cfg.BuildDir)); err != nil {
		add("lock", checkWarn, "%v", err)
	} else {
		lock.Release()
		add("lock", checkOK, "no generation running")
	}

	p := e.pipeline()
	if pipeline.UpToDate(p.BuildInputs(), []string{e.path(e.cfg.MetadataFile), e.path(e.cfg.WorkspaceFile)}) {
		add("workspace", checkOK, "%s is up to date", e.cfg.WorkspaceFile)
	} else {
		add("workspace", checkWarn, "%s is missing or older than its inputs; run 'lspws generate'", e.cfg.WorkspaceFile)
	}

	return resp
}

func checkPlatform(add func(name, status, format string, args ...any), p android.Platform) {
	installed := android.InstalledPlatforms(p.SDKPath)
	versions := make([]string, len(installed))
	for i, v := range installed {
		versions[i] = strconv.Itoa(v)
	}
	add("sdk", checkOK, "%s (platforms: %s)", p.SDKPath, strings.Join(versions, ", "))

	if !exists(p.JarPath()) {
		add("platform", checkWarn, "android-%s is not installed; install it with sdkmanager \"platforms;android-%s\"", p.Version(), p.Version())
		return
	}
	add("platform", checkOK, "%s", p.JarPath())

	switch {
	case exists(p.SourcesDir()):
		add("sources", checkOK, "%s", p.SourcesDir())
	case exists(p.StubSources()):
		add("sources", checkOK, "stubs %s", filepath.Base(p.StubSources()))
	default:
		add("sources", checkWarn, "no platform sources; install them with sdkmanager \"sources;android-%s\"", p.Version())
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func printDoctorHuman(cmd *cobra.Command, resp *DoctorResponse) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "lspws doctor: %s\n", resp.ProjectDir)
	fmt.Fprintln(w, strings.Repeat("─", 50))
	for _, c := range resp.Checks {
		icon := "✓"
		switch c.Status {
		case checkWarn:
			icon = "⚠"
		case checkFail:
			icon = "✗"
		}
		fmt.Fprintf(w, "%s %-11s %s\n", icon, c.Name, c.Message)
	}
}
