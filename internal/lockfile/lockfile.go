// Package lockfile provides directory-based locking to prevent multiple
// IntakeFlow instances from sharing one state directory.
//
// The lock uses flock, so it is released automatically when the process
// exits, gracefully or not.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the name of the lock file created in the state directory.
const LockFileName = "intakeflow.lock"

// Lock represents an active directory lock.
type Lock struct {
	file     *os.File
	path     string
	acquired bool
}

// LockError reports a lock held by another process.
type LockError struct {
	Path       string
	HolderInfo string
}

func (e *LockError) Error() string {
	if e.HolderInfo != "" {
		return fmt.Sprintf("state directory already locked by %s (lock file %s)", e.HolderInfo, e.Path)
	}
	return fmt.Sprintf("state directory already locked (lock file %s)", e.Path)
}

// AcquireLock attempts to acquire an exclusive lock on the state directory.
// It fails immediately, with information about the holding process where
// available, when another instance holds the lock.
func AcquireLock(stateDir string) (*Lock, error) {
	lockPath := filepath.Join(stateDir, LockFileName)
	slog.Debug("Attempting to acquire lock", "lock_path", lockPath)

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory for lock", "error", err, "state_dir", stateDir)
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.Error("Failed to open lock file", "error", err, "lock_path", lockPath)
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder := readHolderInfo(lockPath)
		file.Close()
		slog.Error("Failed to acquire lock, another instance is running",
			"error", err, "lock_path", lockPath, "holder", holder)
		return nil, &LockError{Path: lockPath, HolderInfo: holder}
	}

	// Record our PID for diagnostics; failures here do not affect the lock.
	if err := file.Truncate(0); err == nil {
		if _, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
			slog.Debug("Failed to write PID to lock file", "error", err)
		}
	}

	slog.Info("Lock acquired", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, acquired: true}, nil
}

// Release releases the lock and removes the lock file. Safe to call more
// than once.
func (l *Lock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to release lock %s: %w", l.path, err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close lock file %s: %w", l.path, err)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Debug("Failed to remove lock file", "error", err, "lock_path", l.path)
	}
	slog.Info("Lock released", "lock_path", l.path)
	return nil
}

// readHolderInfo reads the PID recorded in an existing lock file for error
// reporting. Best effort only.
func readHolderInfo(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return ""
	}
	pidStr := strings.TrimSpace(string(data))
	if pidStr == "" {
		return ""
	}
	if pid, err := strconv.Atoi(pidStr); err == nil {
		return fmt.Sprintf("process %d", pid)
	}
	return ""
}
