package ajeossida

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// errNotText marks files skipped because their content is not UTF-8 text.
var errNotText = errors.New("not a text file")

// RewriteResult describes one application of a rule.
type RewriteResult struct {
	Visited int      // regular files inspected
	Skipped int      // binary or unreadable files left alone
	Patched []string // files whose content changed
}

// RewriteFile replaces every occurrence of search with replace in a single
// file. It reports whether the file changed. Matching is literal and the
// operation is idempotent once search no longer occurs.
func RewriteFile(path, search, replace string) (bool, error) {
	if search == "" {
		return false, errors.New("empty search string")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if !utf8.Valid(data) {
		return false, fmt.Errorf("%s: %w", path, errNotText)
	}
	content := string(data)
	if !strings.Contains(content, search) {
		return false, nil
	}
	patched := strings.ReplaceAll(content, search, replace)
	// WriteFile truncates in place and keeps the existing mode.
	if err := os.WriteFile(path, []byte(patched), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// RewriteTree applies RewriteFile to every regular file under root.
// Version-control metadata and symlinks are not visited. Binary files and
// files or directories we lack permission for are skipped; every other
// failure is collected and returned joined, after the walk has finished.
func RewriteTree(root, search, replace string) (RewriteResult, error) {
	var res RewriteResult
	if search == "" {
		return res, errors.New("empty search string")
	}

	var errs []error
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if errors.Is(err, fs.ErrPermission) {
				res.Skipped++
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		res.Visited++
		changed, err := RewriteFile(path, search, replace)
		switch {
		case err == nil:
			if changed {
				res.Patched = append(res.Patched, path)
			}
		case errors.Is(err, errNotText), errors.Is(err, fs.ErrPermission):
			res.Skipped++
		default:
			errs = append(errs, err)
		}
		return nil
	})
	if walkErr != nil {
		return res, walkErr
	}
	return res, errors.Join(errs...)
}

// Rewrite dispatches to RewriteFile or RewriteTree depending on target.
func Rewrite(target, search, replace string) (RewriteResult, error) {
	info, err := os.Stat(target)
	if err != nil {
		return RewriteResult{}, err
	}
	if info.IsDir() {
		return RewriteTree(target, search, replace)
	}
	res := RewriteResult{Visited: 1}
	changed, err := RewriteFile(target, search, replace)
	if changed {
		res.Patched = append(res.Patched, target)
	}
	return res, err
}
