package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ProcessLock guards the database directory against concurrent memcore
// processes. sqlite in WAL mode tolerates concurrent readers, but the
// index build and consolidation paths assume a single writer, so serve,
// reindex, and consolidate all take this lock.
type ProcessLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewProcessLock creates a lock beside the database file.
func NewProcessLock(dbPath string) *ProcessLock {
	lockPath := filepath.Join(filepath.Dir(dbPath), ".memcore.lock")
	return &ProcessLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the lock without blocking. Returns false
// when another process holds it.
func (l *ProcessLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *ProcessLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *ProcessLock) Path() string {
	return l.path
}
