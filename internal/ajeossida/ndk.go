package ajeossida

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NDK is an installed Android NDK version.
type NDK struct {
	Version string
	Path    string
}

// SelectNDK picks the highest installed NDK under base whose version starts
// with major followed by a dot. Versions compare component-wise as integers.
func SelectNDK(base, major string) (NDK, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return NDK{}, fmt.Errorf("%w: cannot read %s: %v", ErrNDKNotFound, base, err)
	}

	prefix := major + "."
	var best string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if !isDir(filepath.Join(base, name)) {
			continue
		}
		if _, err := parseVersion(name); err != nil {
			debugf("Skipping NDK directory %s: %v\n", name, err)
			continue
		}
		if best == "" || compareVersions(name, best) > 0 {
			best = name
		}
	}

	if best == "" {
		return NDK{}, fmt.Errorf("%w: Android NDK r%s is needed (searched %s)", ErrNDKNotFound, major, base)
	}
	return NDK{Version: best, Path: filepath.Join(base, best)}, nil
}

// isDir follows symlinks, so a linked NDK install still counts.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// parseVersion splits a dotted version into its integer components.
func parseVersion(v string) ([]int, error) {
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version component %q in %q", p, v)
		}
		nums[i] = n
	}
	return nums, nil
}

// compareVersions returns -1, 0 or 1. Missing components count as zero and
// non-numeric components fall back to string comparison. When all components
// tie, the version with more components is greater ("25.1.0" > "25.1").
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv string
		if i < len(as) {
			av = as[i]
		} else {
			av = "0"
		}
		if i < len(bs) {
			bv = bs[i]
		} else {
			bv = "0"
		}

		// Try numeric compare
		ai, aerr := strconv.Atoi(av)
		bi, berr := strconv.Atoi(bv)
		if aerr == nil && berr == nil {
			if ai < bi {
				return -1
			}
			if ai > bi {
				return 1
			}
			continue
		}
		// Fallback string compare
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}
