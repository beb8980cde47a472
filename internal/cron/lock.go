package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

const defaultLockTTL = 25 * time.Hour

// Lock coordinates exclusive cron runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// FileLock implements Lock with an exclusively-created lock file. The worker
// runs on a single host per environment; a stale file older than the TTL is
// treated as abandoned and reclaimed.
type FileLock struct {
	path string
	ttl  time.Duration
	held bool
}

// NewFileLock constructs a file-backed lock at the given path.
func NewFileLock(path string, ttl time.Duration) (*FileLock, error) {
	if path == "" {
		return nil, errors.New("lock path is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &FileLock{path: path, ttl: ttl}, nil
}

// Acquire tries to create the lock file exclusively, reclaiming it when the
// previous holder's file has outlived the TTL.
func (l *FileLock) Acquire(_ context.Context) (bool, error) {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		_ = file.Close()
		l.held = true
		return true, nil
	}
	if !os.IsExist(err) {
		return false, fmt.Errorf("creating lock file: %w", err)
	}

	info, statErr := os.Stat(l.path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			// Raced with the previous holder's release; try next cycle.
			return false, nil
		}
		return false, fmt.Errorf("inspecting lock file: %w", statErr)
	}
	if time.Since(info.ModTime()) < l.ttl {
		return false, nil
	}

	// Stale lock from a dead worker.
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reclaiming stale lock: %w", err)
	}
	file, err = os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("creating lock file: %w", err)
	}
	_ = file.Close()
	l.held = true
	return true, nil
}

// Release removes the lock file if this instance holds it.
func (l *FileLock) Release(_ context.Context) error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}
