package ajeossida

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeDirs(t *testing.T, base string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(base, n), 0o755))
	}
}

func TestSelectNDK_PicksHighestMatchingVersion(t *testing.T) {
	base := t.TempDir()
	makeDirs(t, base, "25.1.8937393", "25.2.9200764", "24.0.1")

	ndk, err := SelectNDK(base, "25")
	require.NoError(t, err)
	require.Equal(t, "25.2.9200764", ndk.Version)
	require.Equal(t, filepath.Join(base, "25.2.9200764"), ndk.Path)
}

func TestSelectNDK_ComparesNumerically(t *testing.T) {
	base := t.TempDir()
	// lexically "25.10" < "25.9"
	makeDirs(t, base, "25.9.1", "25.10.0", "25.2.99999")

	ndk, err := SelectNDK(base, "25")
	require.NoError(t, err)
	require.Equal(t, "25.10.0", ndk.Version)
}

func TestSelectNDK_MoreComponentsWinTies(t *testing.T) {
	base := t.TempDir()
	makeDirs(t, base, "25.1.0", "25.1")

	ndk, err := SelectNDK(base, "25")
	require.NoError(t, err)
	require.Equal(t, "25.1.0", ndk.Version)
}

func TestSelectNDK_NoMatch(t *testing.T) {
	base := t.TempDir()
	makeDirs(t, base, "24.0.1", "26.1.0", "250.0.0")

	_, err := SelectNDK(base, "25")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNDKNotFound))
}

func TestSelectNDK_IgnoresFilesAndUnparsableNames(t *testing.T) {
	base := t.TempDir()
	makeDirs(t, base, "25.1.1", "25.x.beta")
	require.NoError(t, os.WriteFile(filepath.Join(base, "25.9.9"), []byte("not a dir"), 0o644))

	ndk, err := SelectNDK(base, "25")
	require.NoError(t, err)
	require.Equal(t, "25.1.1", ndk.Version)
}

func TestSelectNDK_MissingBase(t *testing.T) {
	_, err := SelectNDK(filepath.Join(t.TempDir(), "nope"), "25")
	require.ErrorIs(t, err, ErrNDKNotFound)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"25.2.9200764", "25.1.8937393", 1},
		{"25.1", "25.1.0", -1},
		{"25.1.0", "25.1", 1},
		{"25.1.0", "25.1.0", 0},
		{"16.1.8", "16.1.10", -1},
		{"1.0", "1.0.1", -1},
		{"2", "10", -1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, compareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
