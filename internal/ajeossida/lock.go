package ajeossida

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const lockName = ".ajeossida.lock"

// workspaceLock is an exclusive flock held for the duration of a build so
// two runs in the same directory cannot wipe each other's workspace.
type workspaceLock struct {
	f *os.File
}

func acquireLock(workDir string) (*workspaceLock, error) {
	lockPath := filepath.Join(workDir, lockName)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("another build is already running in %s", workDir)
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", lockPath, err)
	}
	return &workspaceLock{f: f}, nil
}

func (l *workspaceLock) Release() {
	if l == nil || l.f == nil {
		return
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
	os.Remove(l.f.Name())
}
