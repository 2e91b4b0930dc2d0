package ajeossida

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildLog_CompressesOnClose(t *testing.T) {
	dir := t.TempDir()
	blog, err := openBuildLog(dir, "brand")
	require.NoError(t, err)

	_, err = io.WriteString(blog, "$ make\nline one\nline two\n")
	require.NoError(t, err)

	path, err := blog.Close()
	require.NoError(t, err)
	require.Equal(t, ".xz", filepath.Ext(path))
	require.NoFileExists(t, blog.path)

	latest, err := latestBuildLog(dir)
	require.NoError(t, err)
	require.Equal(t, path, latest)

	lines, err := readLogLines(latest)
	require.NoError(t, err)
	require.Equal(t, []string{"$ make", "line one", "line two"}, lines)
}

func TestLatestBuildLog_PicksNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b-20240101-000000.log.xz", "b-20250101-000000.log", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	latest, err := latestBuildLog(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "b-20250101-000000.log"), latest)

	_, err = latestBuildLog(t.TempDir())
	require.Error(t, err)
}

func TestWriteBundle(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"brand-server-1.0-android-arm", "brand-gadget-1.0-android-arm.so"} {
		p := filepath.Join(dir, "build", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(name), 0o755))
		files = append(files, p)
	}

	bundle := filepath.Join(dir, "brand-1.0-android.tar.zst")
	require.NoError(t, writeBundle(bundle, files))

	names, err := listBundle(bundle)
	require.NoError(t, err)
	require.Equal(t, []string{"brand-server-1.0-android-arm", "brand-gadget-1.0-android-arm.so"}, names)

	require.Error(t, writeBundle(filepath.Join(dir, "bad.tar.zst"), []string{filepath.Join(dir, "missing")}))
}

func TestGzipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bin")
	content := bytes.Repeat([]byte{0x00, 0x01, 0xfe, 'x'}, 1<<14)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	require.NoError(t, compressGzip(src, src+".gz"))
	got, err := decompressGzip(src + ".gz")
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "sub", "b")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))

	require.NoError(t, moveFile(src, dst))
	require.NoFileExists(t, src)
	require.Equal(t, "payload", readFile(t, dst))
}
