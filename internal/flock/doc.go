// Package flock provides cross-platform exclusive file locks for the
// process store.
//
// Usage:
//
//	lock, err := flock.Acquire(ctx, filepath.Join(dir, ".lock"), 5*time.Second)
//	if err != nil {
//	    return err // errors.ErrLockTimeout when another writer holds it
//	}
//	defer lock.Release()
package flock
