package ajeossida

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenamedPath(t *testing.T) {
	tests := []struct {
		name, path, version, arch, want string
	}{
		{
			name:    "shared library keeps extension last",
			path:    "/w/brand/android-arm64/subprojects/frida-core/lib/gadget/brand-gadget.so",
			version: "16.1.8",
			want:    "/w/brand/android-arm64/subprojects/frida-core/lib/gadget/brand-gadget-16.1.8-android-arm64.so",
		},
		{
			name:    "executable gets suffix appended",
			path:    "/w/brand/android-x86/subprojects/frida-core/server/brand-server",
			version: "16.1.8",
			want:    "/w/brand/android-x86/subprojects/frida-core/server/brand-server-16.1.8-android-x86",
		},
		{
			name:    "explicit arch wins over path components",
			path:    "/home/android-dev/brand/android-arm/server/brand-server",
			version: "1.0",
			arch:    "android-arm",
			want:    "/home/android-dev/brand/android-arm/server/brand-server-1.0-android-arm",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RenamedPath(tt.path, tt.version, tt.arch))
		})
	}
}

func TestFinalizeArtifact(t *testing.T) {
	dir := t.TempDir()
	buildDir := filepath.Join(dir, "brand", "android-arm64", "lib", "gadget")
	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	require.NoError(t, os.MkdirAll(assets, 0o755))

	content := bytes.Repeat([]byte("amain\x00gadget payload "), 512)
	src := filepath.Join(buildDir, "brand-gadget.so")
	require.NoError(t, os.WriteFile(src, content, 0o755))

	var out bytes.Buffer
	file, renamed, err := FinalizeArtifact(&out, Artifact{Kind: "gadget", Arch: "android-arm64", Path: src}, "16.1.8", assets)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(buildDir, "brand-gadget-16.1.8-android-arm64.so"), renamed)
	require.FileExists(t, renamed)
	require.NoFileExists(t, src)
	require.NoFileExists(t, renamed+".gz")

	gz := filepath.Join(assets, "brand-gadget-16.1.8-android-arm64.so.gz")
	require.Equal(t, filepath.Base(gz), file.Name)
	require.Equal(t, "gadget", file.Kind)
	require.Equal(t, "android-arm64", file.Arch)

	info, err := os.Stat(gz)
	require.NoError(t, err)
	require.Equal(t, info.Size(), file.Size)

	sum, err := ComputeChecksum(gz)
	require.NoError(t, err)
	require.Equal(t, sum, file.B3Sum)
	require.Len(t, file.B3Sum, 64)

	plain, err := decompressGzip(gz)
	require.NoError(t, err)
	require.Equal(t, content, plain)
}

func TestFinalizeArtifact_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	_, renamed, err := FinalizeArtifact(&bytes.Buffer{}, Artifact{Kind: "server", Arch: "android-arm", Path: filepath.Join(dir, "brand-server")}, "1.0", dir)
	require.Error(t, err)
	require.Empty(t, renamed)
}
