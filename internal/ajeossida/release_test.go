package ajeossida

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteRelease_SignedAndSorted(t *testing.T) {
	dir := t.TempDir()
	keyPath, pubPath, err := GenerateKeyPair(filepath.Join(dir, "keys"), "test")
	require.NoError(t, err)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, _, err = GenerateKeyPair(filepath.Join(dir, "keys"), "test")
	require.Error(t, err, "existing keys must not be overwritten")

	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(assets, 0o755))
	rel := &Release{
		Name:    "brand",
		Version: "16.1.8",
		NDK:     "25.2.9200764",
		BuiltAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Files: []ReleaseFile{
			{Name: "brand-server-16.1.8-android-arm.gz", Kind: "server", Arch: "android-arm"},
			{Name: "brand-gadget-16.1.8-android-arm.so.gz", Kind: "gadget", Arch: "android-arm"},
		},
	}
	require.NoError(t, writeRelease(assets, rel, keyPath))

	got, err := ReadRelease(assets)
	require.NoError(t, err)
	require.Equal(t, "16.1.8", got.Version)
	require.Equal(t, rel.BuiltAt, got.BuiltAt)
	require.Equal(t, "brand-gadget-16.1.8-android-arm.so.gz", got.Files[0].Name)

	data, err := os.ReadFile(filepath.Join(assets, releaseManifest))
	require.NoError(t, err)
	sig, err := os.ReadFile(filepath.Join(assets, releaseSignature))
	require.NoError(t, err)
	pubHex, err := os.ReadFile(pubPath)
	require.NoError(t, err)
	pub, err := hex.DecodeString(strings.TrimSpace(string(pubHex)))
	require.NoError(t, err)

	require.NoError(t, VerifySignatureRaw(data, sig, pub))
	tampered := append([]byte{}, data...)
	tampered[0] = ' '
	require.Error(t, VerifySignatureRaw(tampered, sig, pub))
}

func TestWriteRelease_Unsigned(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeRelease(dir, &Release{Name: "brand", Version: "1"}, ""))
	require.FileExists(t, filepath.Join(dir, releaseManifest))
	require.NoFileExists(t, filepath.Join(dir, releaseSignature))
}

func TestLoadPrivateKey_BadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.key")
	require.NoError(t, os.WriteFile(path, []byte("abcd"), 0o600))
	_, err := loadPrivateKey(path)
	require.Error(t, err)
}
