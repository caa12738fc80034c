package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lspws/internal/errors"
)

// FileName is the configuration file name without extension. lspws.toml,
// lspws.yaml and lspws.json are all recognized.
const FileName = "lspws"

// EnvPrefix prefixes environment overrides, e.g. LSPWS_COMPILESDK=35 or
// LSPWS_EDITOR_APPLICATIONID=com.example.app.
const EnvPrefix = "LSPWS"

// Config is the complete lspws configuration.
type Config struct {
	ModelFile     string `toml:"modelFile" mapstructure:"modelFile" json:"modelFile"`
	BuildDir      string `toml:"buildDir" mapstructure:"buildDir" json:"buildDir"`
	StagingDir    string `toml:"stagingDir" mapstructure:"stagingDir" json:"stagingDir"`
	MetadataFile  string `toml:"metadataFile" mapstructure:"metadataFile" json:"metadataFile"`
	WorkspaceFile string `toml:"workspaceFile" mapstructure:"workspaceFile" json:"workspaceFile"`

	IncludeTestDependencies bool `toml:"includeTestDependencies" mapstructure:"includeTestDependencies" json:"includeTestDependencies"`
	CopyJarsToStaging       bool `toml:"copyJarsToStaging" mapstructure:"copyJarsToStaging" json:"copyJarsToStaging"`
	AutoRegenerate          bool `toml:"autoRegenerate" mapstructure:"autoRegenerate" json:"autoRegenerate"`

	// CompileSdk overrides platform detection when non-zero.
	CompileSdk int `toml:"compileSdk" mapstructure:"compileSdk" json:"compileSdk"`
	// KotlinVersion overrides detection when set.
	KotlinVersion   string `toml:"kotlinVersion" mapstructure:"kotlinVersion" json:"kotlinVersion"`
	SourcesArchiver string `toml:"sourcesArchiver" mapstructure:"sourcesArchiver" json:"sourcesArchiver"`
	GradleUserHome  string `toml:"gradleUserHome" mapstructure:"gradleUserHome" json:"gradleUserHome"`
	MavenLocal      string `toml:"mavenLocal" mapstructure:"mavenLocal" json:"mavenLocal"`

	Editor  EditorConfig  `toml:"editor" mapstructure:"editor" json:"editor"`
	Watch   WatchConfig   `toml:"watch" mapstructure:"watch" json:"watch"`
	Ledger  LedgerConfig  `toml:"ledger" mapstructure:"ledger" json:"ledger"`
	Logging LoggingConfig `toml:"logging" mapstructure:"logging" json:"logging"`
}

// EditorConfig controls the editor integration files.
type EditorConfig struct {
	Generate         bool   `toml:"generate" mapstructure:"generate" json:"generate"`
	Directory        string `toml:"directory" mapstructure:"directory" json:"directory"`
	LaunchJSON       bool   `toml:"launchJson" mapstructure:"launchJson" json:"launchJson"`
	TasksJSON        bool   `toml:"tasksJson" mapstructure:"tasksJson" json:"tasksJson"`
	ApplicationID    string `toml:"applicationId" mapstructure:"applicationId" json:"applicationId"`
	LauncherActivity string `toml:"launcherActivity" mapstructure:"launcherActivity" json:"launcherActivity"`
}

// WatchConfig controls auto-regeneration.
type WatchConfig struct {
	PollIntervalMs int `toml:"pollIntervalMs" mapstructure:"pollIntervalMs" json:"pollIntervalMs"`
	DebounceMs     int `toml:"debounceMs" mapstructure:"debounceMs" json:"debounceMs"`
}

// LedgerConfig controls the run ledger.
type LedgerConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled" json:"enabled"`
	Path    string `toml:"path" mapstructure:"path" json:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `toml:"format" mapstructure:"format" json:"format"`
	Level  string `toml:"level" mapstructure:"level" json:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ModelFile:               "build/lsp-model.json",
		BuildDir:                "build",
		StagingDir:              "build/.lsp-temp",
		MetadataFile:            "build/lsp-metadata.json",
		WorkspaceFile:           "workspace.json",
		IncludeTestDependencies: false,
		CopyJarsToStaging:       true,
		AutoRegenerate:          true,
		CompileSdk:              0,
		SourcesArchiver:         "auto",
		Editor: EditorConfig{
			Generate:         true,
			Directory:        ".vscode",
			LaunchJSON:       false,
			TasksJSON:        true,
			ApplicationID:    "com.example.app",
			LauncherActivity: "MainActivity",
		},
		Watch: WatchConfig{
			PollIntervalMs: 1000,
			DebounceMs:     500,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    "build/lsp-ledger.db",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// defaults flattens DefaultConfig into viper keys.
func defaults() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"modelFile":               d.ModelFile,
		"buildDir":                d.BuildDir,
		"stagingDir":              d.StagingDir,
		"metadataFile":            d.MetadataFile,
		"workspaceFile":           d.WorkspaceFile,
		"includeTestDependencies": d.IncludeTestDependencies,
		"copyJarsToStaging":       d.CopyJarsToStaging,
		"autoRegenerate":          d.AutoRegenerate,
		"compileSdk":              d.CompileSdk,
		"kotlinVersion":           d.KotlinVersion,
		"sourcesArchiver":         d.SourcesArchiver,
		"gradleUserHome":          d.GradleUserHome,
		"mavenLocal":              d.MavenLocal,
		"editor.generate":         d.Editor.Generate,
		"editor.directory":        d.Editor.Directory,
		"editor.launchJson":       d.Editor.LaunchJSON,
		"editor.tasksJson":        d.Editor.TasksJSON,
		"editor.applicationId":    d.Editor.ApplicationID,
		"editor.launcherActivity": d.Editor.LauncherActivity,
		"watch.pollIntervalMs":    d.Watch.PollIntervalMs,
		"watch.debounceMs":        d.Watch.DebounceMs,
		"ledger.enabled":          d.Ledger.Enabled,
		"ledger.path":             d.Ledger.Path,
		"logging.format":          d.Logging.Format,
		"logging.level":           d.Logging.Level,
	}
}

// Keys returns every configuration key.
func Keys() []string {
	d := defaults()
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// FlagKeys maps command line flags to the configuration keys they override.
var FlagKeys = map[string]string{
	"include-tests":   "includeTestDependencies",
	"compile-sdk":     "compileSdk",
	"kotlin-version":  "kotlinVersion",
	"archiver":        "sourcesArchiver",
	"workspace-file":  "workspaceFile",
	"model":           "modelFile",
	"log-format":      "logging.format",
	"application-id":  "editor.applicationId",
	"launch-activity": "editor.launcherActivity",
}

// LoadConfig loads the configuration for the project in projectDir. An
// explicit file wins over lspws.{toml,yaml,json} in projectDir; without
// either the defaults apply. LSPWS_* environment variables and the flags
// named in FlagKeys override file values.
func LoadConfig(projectDir, file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(projectDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for flag, key := range FlagKeys {
			f := flags.Lookup(flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.New(errors.ConfigInvalid, "failed to bind flag --"+flag, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.New(errors.ConfigInvalid, "failed to read configuration", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to decode configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}
	return &cfg, nil
}

// Find returns the configuration file LoadConfig would read from
// projectDir, or "" when there is none.
func Find(projectDir string) string {
	for _, ext := range viper.SupportedExts {
		path := filepath.Join(projectDir, FileName+"."+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Save writes the configuration as TOML to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return c.Encode(f)
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	encoder := toml.NewEncoder(w)
	encoder.Indent = "  "
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Path resolves a configured path against projectDir.
func (c *Config) Path(projectDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

var (
	validArchivers = map[string]bool{"auto": true, "jar": true, "builtin": true}
	validLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats   = map[string]bool{"human": true, "json": true}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	required := map[string]string{
		"modelFile":     c.ModelFile,
		"stagingDir":    c.StagingDir,
		"metadataFile":  c.MetadataFile,
		"workspaceFile": c.WorkspaceFile,
	}
	for field, value := range required {
		if value == "" {
			return &ConfigError{Field: field, Message: "must not be empty"}
		}
	}
	if c.CompileSdk < 0 {
		return &ConfigError{Field: "compileSdk", Message: "must be 0 (auto) or a platform version"}
	}
	if !validArchivers[c.SourcesArchiver] {
		return &ConfigError{Field: "sourcesArchiver", Message: fmt.Sprintf("unknown archiver %q (auto, jar, builtin)", c.SourcesArchiver)}
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if !validFormats[c.Logging.Format] {
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q (human, json)", c.Logging.Format)}
	}
	if c.Watch.PollIntervalMs <= 0 {
		return &ConfigError{Field: "watch.pollIntervalMs", Message: "must be positive"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	if c.Editor.Generate && c.Editor.ApplicationID == "" {
		return &ConfigError{Field: "editor.applicationId", Message: "required when editor files are generated"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
