//go:build windows

package store

import (
	"os"
	"strconv"

	"aster/internal/errors"
	"aster/internal/paths"
)

// Lock represents an exclusive lock on the index.
// Note: Windows locking is not yet implemented. This uses a simple PID-based check.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock attempts to acquire an exclusive lock on the index under
// the scan root. On Windows this uses a simple file-based check (not
// truly atomic).
func AcquireLock(scanRoot string) (*Lock, error) {
	if _, err := paths.EnsureAsterDir(scanRoot); err != nil {
		return nil, errors.New(errors.MutationIOError, "cannot create .aster directory", err)
	}

	path := paths.LockPath(scanRoot)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.New(errors.MutationIOError, "cannot open lock file", err)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = file.Close()
		return nil, errors.New(errors.MutationIOError, "cannot write PID to lock file", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	_ = l.file.Close()
	_ = os.Remove(l.path)
}
