// Package ctxutil provides context utility functions.
package ctxutil

import "context"

// Canceled returns the context error if ctx is done (Canceled or
// DeadlineExceeded), nil otherwise. Store operations, action handlers and
// the image generator call it at their entry points and checkpoints.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}
