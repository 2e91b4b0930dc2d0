package ajeossida

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// buildLog captures the output of every external command of one run.
type buildLog struct {
	path string
	f    *os.File
}

func openBuildLog(dir, name string) (*buildLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", name, time.Now().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &buildLog{path: path, f: f}, nil
}

func (l *buildLog) Write(p []byte) (int, error) { return l.f.Write(p) }

// Close compresses the log to <path>.xz and removes the plain copy. It
// returns the path of the file that remains.
func (l *buildLog) Close() (string, error) {
	if err := l.f.Close(); err != nil {
		return l.path, err
	}
	xzPath := l.path + ".xz"
	if err := compressXZ(l.path, xzPath); err != nil {
		os.Remove(xzPath)
		return l.path, fmt.Errorf("failed to compress build log: %w", err)
	}
	os.Remove(l.path)
	return xzPath, nil
}

// latestBuildLog returns the newest log in dir, compressed or not.
func latestBuildLog(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var logs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".log") || strings.HasSuffix(e.Name(), ".log.xz") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) == 0 {
		return "", fmt.Errorf("no build logs in %s", dir)
	}
	// names embed a sortable timestamp
	sort.Slice(logs, func(i, j int) bool {
		return strings.TrimSuffix(logs[i], ".xz") < strings.TrimSuffix(logs[j], ".xz")
	})
	return filepath.Join(dir, logs[len(logs)-1]), nil
}
