package ajeossida

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// BytePatch replaces an exact byte sequence with another of the same length,
// so offsets inside a compiled binary never move.
type BytePatch struct {
	Search  []byte
	Replace []byte
}

// NewBytePatch builds a patch from hex strings ("67 6d 61 69 6e 00" or
// "676d61696e00").
func NewBytePatch(searchHex, replaceHex string) (BytePatch, error) {
	search, err := decodeHex(searchHex)
	if err != nil {
		return BytePatch{}, fmt.Errorf("invalid search pattern: %w", err)
	}
	replace, err := decodeHex(replaceHex)
	if err != nil {
		return BytePatch{}, fmt.Errorf("invalid replace pattern: %w", err)
	}
	p := BytePatch{Search: search, Replace: replace}
	return p, p.Validate()
}

// Validate enforces a non-empty pattern and equal lengths.
func (p BytePatch) Validate() error {
	if len(p.Search) == 0 {
		return fmt.Errorf("empty byte patch pattern")
	}
	if len(p.Search) != len(p.Replace) {
		return fmt.Errorf("%w: %d != %d (%q -> %q)", ErrPatchLength, len(p.Search), len(p.Replace), p.Search, p.Replace)
	}
	return nil
}

func (p BytePatch) String() string {
	return fmt.Sprintf("%q -> %q", p.Search, p.Replace)
}

func decodeHex(s string) ([]byte, error) {
	s = stripSpaces(s)
	return hex.DecodeString(s)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' {
			return -1
		}
		return r
	}, s)
}

// ApplyBytePatches returns a copy of data with every patch applied in order,
// and the number of replaced occurrences.
func ApplyBytePatches(data []byte, patches []BytePatch) ([]byte, int, error) {
	for _, p := range patches {
		if err := p.Validate(); err != nil {
			return nil, 0, err
		}
	}
	out := data
	total := 0
	for _, p := range patches {
		n := bytes.Count(out, p.Search)
		if n == 0 {
			continue
		}
		total += n
		out = bytes.ReplaceAll(out, p.Search, p.Replace)
	}
	if len(out) != len(data) {
		// unreachable while Validate holds
		return nil, 0, fmt.Errorf("%w: output size changed", ErrPatchLength)
	}
	return out, total, nil
}

// PatchBinary rewrites path in place with the given patches. All patches are
// validated before the file is opened.
func PatchBinary(path string, patches []BytePatch) (int, error) {
	for _, p := range patches {
		if err := p.Validate(); err != nil {
			return 0, err
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	data := make([]byte, info.Size())
	if _, err := f.ReadAt(data, 0); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	patched, n, err := ApplyBytePatches(data, patches)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := f.WriteAt(patched, 0); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, f.Sync()
}
