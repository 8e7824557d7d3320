package flock

import (
	"context"
	"fmt"
	"os"
	"time"

	kerrors "github.com/kitodo/kscript/internal/errors"
)

// retryInterval is the pause between lock attempts.
const retryInterval = 50 * time.Millisecond

// Lock is a held exclusive lock on a lock file.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) the lock file at path and takes an
// exclusive lock on it, retrying until timeout elapses or ctx is done.
// It returns ErrLockTimeout when the lock stays contended.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //#nosec G302,G304 -- lock file path is built by the store
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}

		if err := tryLock(f.Fd()); err == nil {
			return &Lock{f: f}, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to acquire lock %s: %w", path, kerrors.ErrLockTimeout)
		}

		time.Sleep(retryInterval)
	}
}

// Release unlocks and closes the lock file. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlock(l.f.Fd())
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return closeErr
}
