package errors

import "fmt"

// Wrap adds context to errors at package boundaries.
// It returns nil if err is nil, allowing for safe inline usage:
//
//	if err := s.store.SaveProcess(ctx, p); err != nil {
//	    return errors.Wrap(err, "failed to save process")
//	}
//
// The wrapped error keeps the chain intact, so errors.Is(err, ErrLockTimeout)
// still matches after wrapping.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted message:
//
//	return errors.Wrapf(err, "process %d", id)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}
