package ajeossida

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Artifact is one binary produced for one architecture.
type Artifact struct {
	Kind string // "server" or "gadget"
	Arch string
	Path string
}

// archFromPath returns the first path component naming an Android
// architecture, or "" if there is none.
func archFromPath(p string) string {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if strings.HasPrefix(part, "android-") {
			return part
		}
	}
	return ""
}

// RenamedPath embeds version and arch into the artifact file name:
// "x-gadget.so" becomes "x-gadget-<version>-<arch>.so" and "x-server"
// becomes "x-server-<version>-<arch>". An empty arch is taken from path.
func RenamedPath(path, version, arch string) string {
	if arch == "" {
		arch = archFromPath(path)
	}
	suffix := "-" + version + "-" + arch
	if base, ok := strings.CutSuffix(path, ".so"); ok {
		return base + suffix + ".so"
	}
	return path + suffix
}

// FinalizeArtifact renames the artifact, gzips the renamed file next to it
// and moves the .gz into assetsDir. The renamed uncompressed binary stays in
// the build directory.
func FinalizeArtifact(out io.Writer, a Artifact, version, assetsDir string) (ReleaseFile, string, error) {
	renamed := RenamedPath(a.Path, version, a.Arch)
	if err := os.Rename(a.Path, renamed); err != nil {
		return ReleaseFile{}, "", fmt.Errorf("failed to rename %s: %w", a.Path, err)
	}
	step(out, "Renamed %s to %s", a.Path, renamed)

	gzPath := renamed + ".gz"
	if err := compressGzip(renamed, gzPath); err != nil {
		return ReleaseFile{}, renamed, fmt.Errorf("failed to compress %s: %w", renamed, err)
	}
	step(out, "Compressed %s to %s", renamed, gzPath)

	dest := filepath.Join(assetsDir, filepath.Base(gzPath))
	if err := moveFile(gzPath, dest); err != nil {
		return ReleaseFile{}, renamed, fmt.Errorf("failed to move %s to %s: %w", gzPath, assetsDir, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return ReleaseFile{}, renamed, err
	}
	sum, err := ComputeChecksum(dest)
	if err != nil {
		return ReleaseFile{}, renamed, err
	}
	return ReleaseFile{
		Name:  filepath.Base(dest),
		Kind:  a.Kind,
		Arch:  a.Arch,
		Size:  info.Size(),
		B3Sum: sum,
	}, renamed, nil
}
