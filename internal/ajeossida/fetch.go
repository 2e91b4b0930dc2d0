package ajeossida

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// cloneUpstream clones the upstream repository with its submodules into dest.
func cloneUpstream(runner Runner, cfg *Config, dest string) error {
	args := []string{"clone", "--recurse-submodules"}
	if cfg.Ref != "" {
		args = append(args, "--branch", cfg.Ref)
	}
	args = append(args, cfg.Repo, dest)
	cmd := exec.Command("git", args...)
	if err := runner.Run(cmd); err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

// configureArch runs the upstream configure script for one architecture.
// The NDK location is passed on the child's environment only.
func configureArch(runner Runner, ndk NDK, buildDir, arch string) error {
	cmd := exec.Command(filepath.Join("..", "configure"), "--host="+arch)
	cmd.Dir = buildDir
	cmd.Env = withEnv("ANDROID_NDK_ROOT=" + ndk.Path)
	return runner.Run(cmd)
}

// buildArch runs the native build driver in a configured build directory.
// The NDK root is passed again because the build may regenerate its
// configuration after the rebrand pass edits meson.build files.
func buildArch(runner Runner, cfg *Config, ndk NDK, buildDir string) error {
	cmd := exec.Command(cfg.Make)
	cmd.Dir = buildDir
	cmd.Env = withEnv("ANDROID_NDK_ROOT="+ndk.Path, fmt.Sprintf("MAKEFLAGS=-j%d", cfg.MakeJobs()))
	return runner.Run(cmd)
}

// queryVersion runs the upstream version helper and returns its trimmed
// stdout.
func queryVersion(runner Runner, cfg *Config, workspace string) (string, error) {
	var out bytes.Buffer
	cmd := exec.Command(cfg.Python, filepath.Join(workspace, cfg.VersionCmd))
	cmd.Dir = workspace
	cmd.Stdout = &out
	if err := runner.Run(cmd); err != nil {
		return "", fmt.Errorf("version query failed: %w", err)
	}
	v := strings.TrimSpace(out.String())
	if v == "" {
		return "", fmt.Errorf("version helper %s printed nothing", cfg.VersionCmd)
	}
	if strings.ContainsAny(v, "/\\ \n") {
		return "", fmt.Errorf("version helper printed an unusable version %q", v)
	}
	return v, nil
}
