// Package android locates the Android SDK and registers the target platform
// as a library.
package android

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"lspws/internal/outcome"
)

// LocalPropertiesFile holds machine-specific build settings.
const LocalPropertiesFile = "local.properties"

// SDKEnvVars are consulted in order when local.properties has no sdk.dir.
var SDKEnvVars = []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"}

// FindSDK returns the SDK path from <rootDir>/local.properties, then from the
// environment. The result is absent when neither is set.
func FindSDK(rootDir string, getenv func(string) string) outcome.Result[string] {
	if dir, ok := readSDKDir(filepath.Join(rootDir, LocalPropertiesFile)); ok {
		return outcome.Of(dir)
	}
	for _, name := range SDKEnvVars {
		if v := getenv(name); v != "" {
			return outcome.Of(v)
		}
	}
	return outcome.NotFound[string]("no sdk.dir in local.properties and ANDROID_HOME is not set")
}

func readSDKDir(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()

	dir := readProperties(f)["sdk.dir"]
	return dir, dir != ""
}

// Platform is one installed SDK platform.
type Platform struct {
	SDKPath    string
	CompileSdk int
}

// Version returns the platform version as a string.
func (p Platform) Version() string {
	return strconv.Itoa(p.CompileSdk)
}

func (p Platform) dirName() string {
	return "android-" + p.Version()
}

// JarPath returns the platform's android.jar.
func (p Platform) JarPath() string {
	return filepath.Join(p.SDKPath, "platforms", p.dirName(), "android.jar")
}

// SourcesDir returns the platform's source tree.
func (p Platform) SourcesDir() string {
	return filepath.Join(p.SDKPath, "sources", p.dirName())
}

// StubSources returns the stub source archive some platforms ship.
func (p Platform) StubSources() string {
	return filepath.Join(p.SDKPath, "platforms", p.dirName(), "android-stubs-src.jar")
}

// InstalledPlatforms lists the platform versions present in the SDK, lowest
// first.
func InstalledPlatforms(sdk string) []int {
	matches, err := filepath.Glob(filepath.Join(sdk, "platforms", "android-*"))
	if err != nil {
		return nil
	}
	var versions []int
	for _, m := range matches {
		v, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(m), "android-"))
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}
