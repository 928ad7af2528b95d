//go:build !windows

package store

import (
	"os"
	"strconv"
	"strings"
	"syscall"

	"aster/internal/errors"
	"aster/internal/paths"
)

// Lock represents an exclusive lock on the index.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock attempts to acquire an exclusive lock on the index under
// the scan root. Returns LockHeld if another process holds the lock.
func AcquireLock(scanRoot string) (*Lock, error) {
	if _, err := paths.EnsureAsterDir(scanRoot); err != nil {
		return nil, errors.New(errors.MutationIOError, "cannot create .aster directory", err)
	}

	path := paths.LockPath(scanRoot)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.New(errors.MutationIOError, "cannot open lock file", err)
	}

	// Try to acquire exclusive lock (non-blocking)
	err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = file.Close()

		// Read existing lock info for a better error message
		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			pid := strings.TrimSpace(string(content))
			return nil, errors.Newf(errors.LockHeld,
				"index is locked by another process (PID %s); another aster command may be running", pid)
		}
		return nil, errors.Newf(errors.LockHeld,
			"index is locked by another process; another aster command may be running")
	}

	// Write our PID to the lock file
	if err := file.Truncate(0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.New(errors.MutationIOError, "cannot truncate lock file", err)
	}

	if _, err := file.Seek(0, 0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.New(errors.MutationIOError, "cannot seek lock file", err)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
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

	// Release the flock
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)

	// Close the file
	_ = l.file.Close()

	// Remove the lock file (best effort)
	_ = os.Remove(l.path)
}
