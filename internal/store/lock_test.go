//go:build !windows

package store

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"aster/internal/errors"
	"aster/internal/paths"
)

func TestAcquireAndReleaseLock(t *testing.T) {
	tmpDir := t.TempDir()

	lock, err := AcquireLock(tmpDir)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if lock == nil {
		t.Fatal("expected non-nil lock")
	}

	// Verify lock file exists and contains PID
	lockPath := paths.LockPath(tmpDir)
	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}

	pid, err := strconv.Atoi(string(content))
	if err != nil {
		t.Fatalf("lock file should contain PID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("PID: got %d, want %d", pid, os.Getpid())
	}

	lock.Release()

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}
}

func TestAcquireLockAlreadyLocked(t *testing.T) {
	tmpDir := t.TempDir()

	lock1, err := AcquireLock(tmpDir)
	if err != nil {
		t.Fatalf("first AcquireLock failed: %v", err)
	}
	defer lock1.Release()

	lock2, err := AcquireLock(tmpDir)
	if err == nil {
		lock2.Release()
		t.Fatal("second AcquireLock should fail when already locked")
	}

	if !errors.IsCode(err, errors.LockHeld) {
		t.Errorf("error code: got %s, want %s", errors.CodeOf(err), errors.LockHeld)
	}
	if !strings.Contains(err.Error(), strconv.Itoa(os.Getpid())) {
		t.Errorf("error should name the owning PID: %v", err)
	}
}

func TestAcquireLockCreatesAsterDir(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := os.Stat(paths.AsterDir(tmpDir)); !os.IsNotExist(err) {
		t.Fatal(".aster should not exist yet")
	}

	lock, err := AcquireLock(tmpDir)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(paths.AsterDir(tmpDir)); os.IsNotExist(err) {
		t.Error(".aster should be created by AcquireLock")
	}
}

func TestReleaseLockNilSafe(t *testing.T) {
	// Should not panic
	var lock *Lock
	lock.Release()
}
