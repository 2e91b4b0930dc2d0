package ajeossida

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

// DefaultArchs is the fixed build order of target architectures.
var DefaultArchs = []string{"android-arm64", "android-arm", "android-x86_64", "android-x86"}

const (
	defaultName     = "ajeossida"
	defaultRepo     = "https://github.com/frida/frida.git"
	defaultNDKMajor = "25"
)

// Config struct
type Config struct {
	Values map[string]string

	Name       string   // brand that replaces the upstream product name
	Repo       string   // upstream git URL
	Ref        string   // optional branch or tag passed to git clone --branch
	WorkDir    string   // parent of the workspace and assets directories
	Archs      []string // target architectures, built in this order
	NDKBase    string   // directory holding installed NDK versions
	NDKMajor   string   // required NDK major version
	RecipePath string   // optional HCL recipe overriding the embedded one
	Python     string
	Make       string
	VersionCmd string // helper script inside the workspace printing the upstream version
	Idle       bool   // run external commands under nice -n 19
	Jobs       int    // parallel make jobs, 0 picks from the CPU count
	Bundle     bool   // also write a tar.zst bundle of the renamed binaries
	SigningKey string // hex ed25519 private key used to sign release.json
}

// WorkspaceDir is the directory the upstream tree is cloned into.
func (c *Config) WorkspaceDir() string { return filepath.Join(c.WorkDir, c.Name) }

// AssetsDir is the final collection directory.
func (c *Config) AssetsDir() string { return filepath.Join(c.WorkDir, "assets") }

// LogsDir holds the compressed build logs of previous runs.
func (c *Config) LogsDir() string { return filepath.Join(c.WorkDir, "logs") }

// BuildDir is the per-architecture build directory.
func (c *Config) BuildDir(arch string) string { return filepath.Join(c.WorkspaceDir(), arch) }

// Load the config file and apply defaults
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// Attempt to read the file
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to open config %s: %w", path, err)
	}

	// Merge AJEOSSIDA_* and R2_* env overrides
	mergeEnvOverrides(cfg)

	return cfg, nil
}

// Merge AJEOSSIDA_* and R2_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "AJEOSSIDA_") || strings.HasPrefix(env, "R2_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

func initConfig(cfg *Config) error {
	cfg.Name = cfg.Values["AJEOSSIDA_NAME"]
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if err := validateName(cfg.Name); err != nil {
		return err
	}

	cfg.Repo = cfg.Values["AJEOSSIDA_REPO"]
	if cfg.Repo == "" {
		cfg.Repo = defaultRepo
	}
	cfg.Ref = cfg.Values["AJEOSSIDA_REF"]

	cfg.WorkDir = cfg.Values["AJEOSSIDA_WORKDIR"]
	if cfg.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		cfg.WorkDir = wd
	}
	abs, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return err
	}
	cfg.WorkDir = abs

	cfg.Archs = parseArchList(cfg.Values["AJEOSSIDA_ARCHS"])

	cfg.NDKMajor = cfg.Values["AJEOSSIDA_NDK_MAJOR"]
	if cfg.NDKMajor == "" {
		cfg.NDKMajor = defaultNDKMajor
	}
	cfg.NDKBase = cfg.Values["AJEOSSIDA_NDK_BASE"]
	if cfg.NDKBase == "" {
		cfg.NDKBase = defaultNDKBase()
	}

	cfg.RecipePath = cfg.Values["AJEOSSIDA_RECIPE"]

	cfg.Python = cfg.Values["AJEOSSIDA_PYTHON"]
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	cfg.Make = cfg.Values["AJEOSSIDA_MAKE"]
	if cfg.Make == "" {
		cfg.Make = "make"
	}

	cfg.VersionCmd = cfg.Values["AJEOSSIDA_VERSION_SCRIPT"]
	if cfg.VersionCmd == "" {
		cfg.VersionCmd = "releng/frida_version.py"
	}
	cfg.Idle = cfg.Values["AJEOSSIDA_IDLE"] == "1"
	if v := cfg.Values["AJEOSSIDA_JOBS"]; v != "" {
		jobs, err := strconv.Atoi(v)
		if err != nil || jobs < 0 {
			return fmt.Errorf("invalid AJEOSSIDA_JOBS %q", v)
		}
		cfg.Jobs = jobs
	}

	cfg.Bundle = cfg.Values["AJEOSSIDA_BUNDLE"] == "1"
	cfg.SigningKey = cfg.Values["AJEOSSIDA_SIGNING_KEY"]

	Debug = cfg.Values["AJEOSSIDA_DEBUG"] == "1"
	return nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validateName checks a brand name. It becomes a directory under the work
// dir that reset wipes, and is substituted into C, Vala and meson
// identifiers.
func validateName(name string) error {
	if !namePattern.MatchString(name) || !filepath.IsLocal(name) || filepath.Base(name) != name {
		return fmt.Errorf("invalid name %q: only letters, digits, '_' and '-' are allowed", name)
	}
	switch name {
	case "assets", "logs":
		return fmt.Errorf("invalid name %q: reserved for the %s directory", name, name)
	}
	return nil
}

// MakeJobs is the -j value handed to make. Idle builds use half the cores.
func (c *Config) MakeJobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	if c.Idle {
		return max(runtime.NumCPU()/2, 1)
	}
	return runtime.NumCPU()
}

// parseArchList splits a comma separated list, falling back to DefaultArchs.
func parseArchList(s string) []string {
	var archs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			archs = append(archs, a)
		}
	}
	if len(archs) == 0 {
		return append([]string(nil), DefaultArchs...)
	}
	return archs
}

// defaultNDKBase guesses where the Android SDK keeps its NDK versions.
func defaultNDKBase() string {
	for _, env := range []string{"ANDROID_NDK_BASE", "ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if v := os.Getenv(env); v != "" {
			if env == "ANDROID_NDK_BASE" {
				return v
			}
			return filepath.Join(v, "ndk")
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Android", "sdk", "ndk")
	}
	return filepath.Join(home, "Android", "Sdk", "ndk")
}
