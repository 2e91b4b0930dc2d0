package ajeossida

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	releaseManifest  = "release.json"
	releaseSignature = "release.json.sig"
)

// ReleaseFile describes one finalized file in the assets directory.
type ReleaseFile struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Arch  string `json:"arch"`
	Size  int64  `json:"size"`
	B3Sum string `json:"b3sum"`
}

// Release is the manifest written next to the finalized artifacts.
type Release struct {
	Name     string        `json:"name"`
	Version  string        `json:"version"`
	Upstream string        `json:"upstream"`
	NDK      string        `json:"ndk"`
	BuiltAt  time.Time     `json:"built_at"`
	Files    []ReleaseFile `json:"files"`
}

// writeRelease writes release.json into assetsDir and, when keyPath is set,
// a detached hex ed25519 signature of it.
func writeRelease(assetsDir string, rel *Release, keyPath string) error {
	sort.Slice(rel.Files, func(i, j int) bool { return rel.Files[i].Name < rel.Files[j].Name })

	data, err := json.MarshalIndent(rel, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(assetsDir, releaseManifest), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", releaseManifest, err)
	}

	if keyPath == "" {
		return nil
	}
	priv, err := loadPrivateKey(keyPath)
	if err != nil {
		return err
	}
	sig := SignData(data, priv)
	if err := os.WriteFile(filepath.Join(assetsDir, releaseSignature), sig, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", releaseSignature, err)
	}
	return nil
}

// ReadRelease loads release.json from assetsDir.
func ReadRelease(assetsDir string) (*Release, error) {
	data, err := os.ReadFile(filepath.Join(assetsDir, releaseManifest))
	if err != nil {
		return nil, err
	}
	var rel Release
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", releaseManifest, err)
	}
	return &rel, nil
}
