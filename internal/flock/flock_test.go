//go:build unix

package flock_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kitodo/kscript/internal/errors"
	"github.com/kitodo/kscript/internal/flock"
)

func TestAcquire(t *testing.T) {
	t.Parallel()

	t.Run("acquires and releases", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".lock")

		lock, err := flock.Acquire(context.Background(), path, time.Second)
		require.NoError(t, err)
		require.NoError(t, lock.Release())

		again, err := flock.Acquire(context.Background(), path, time.Second)
		require.NoError(t, err)
		require.NoError(t, again.Release())
	})

	t.Run("times out while held", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".lock")

		held, err := flock.Acquire(context.Background(), path, time.Second)
		require.NoError(t, err)
		defer func() { _ = held.Release() }()

		_, err = flock.Acquire(context.Background(), path, 100*time.Millisecond)
		require.ErrorIs(t, err, kerrors.ErrLockTimeout)
	})

	t.Run("honors canceled context", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".lock")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := flock.Acquire(ctx, path, time.Second)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("release on nil is a no-op", func(t *testing.T) {
		t.Parallel()
		var lock *flock.Lock
		assert.NoError(t, lock.Release())
	})
}
