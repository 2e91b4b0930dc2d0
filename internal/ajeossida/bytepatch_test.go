package ajeossida

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatchBinary_ReplacesInPlace(t *testing.T) {
	prefix := []byte{0x7f, 'E', 'L', 'F', 0x02, 0x01, 0x00}
	suffix := []byte("trailing\x00data\xff")
	data := append(append(append([]byte{}, prefix...), "gmain\x00"...), suffix...)

	path := filepath.Join(t.TempDir(), "server")
	require.NoError(t, os.WriteFile(path, data, 0o755))

	p, err := NewBytePatch("67 6d 61 69 6e 00", "61 6d 61 69 6e 00")
	require.NoError(t, err)

	n, err := PatchBinary(path, []BytePatch{p})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, len(data))
	require.Equal(t, len(prefix), bytes.Index(got, []byte("amain\x00")))
	require.Equal(t, prefix, got[:len(prefix)])
	require.Equal(t, suffix, got[len(prefix)+6:])
	require.False(t, bytes.Contains(got, []byte("gmain\x00")))
}

func TestPatchBinary_UnequalLengthLeavesFileUntouched(t *testing.T) {
	data := []byte("xx gdbus\x00 yy")
	path := filepath.Join(t.TempDir(), "gadget.so")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err := PatchBinary(path, []BytePatch{{Search: []byte("gdbus\x00"), Replace: []byte("gdbug")}})
	require.ErrorIs(t, err, ErrPatchLength)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestPatchBinary_NoMatch(t *testing.T) {
	data := []byte("nothing to see")
	path := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	n, err := PatchBinary(path, []BytePatch{{Search: []byte("gmain\x00"), Replace: []byte("amain\x00")}})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPatchBinary_MissingFile(t *testing.T) {
	_, err := PatchBinary(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
}

func TestApplyBytePatches_AllOccurrencesAndOrder(t *testing.T) {
	data := []byte("gmain\x00..gdbus\x00..gmain\x00")
	patches := []BytePatch{
		{Search: []byte("gmain\x00"), Replace: []byte("amain\x00")},
		{Search: []byte("gdbus\x00"), Replace: []byte("gdbug\x00")},
	}
	out, n, err := ApplyBytePatches(data, patches)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte("amain\x00..gdbug\x00..amain\x00"), out)
	// input is not modified
	require.Equal(t, []byte("gmain\x00..gdbus\x00..gmain\x00"), data)
}

func TestNewBytePatch(t *testing.T) {
	p, err := NewBytePatch("676d61696e00", "61 6d 61 69 6e 00")
	require.NoError(t, err)
	require.Equal(t, []byte("gmain\x00"), p.Search)
	require.Equal(t, []byte("amain\x00"), p.Replace)

	_, err = NewBytePatch("67 6d", "61")
	require.ErrorIs(t, err, ErrPatchLength)

	_, err = NewBytePatch("zz", "00")
	require.Error(t, err)

	_, err = NewBytePatch("", "")
	require.Error(t, err)
}
