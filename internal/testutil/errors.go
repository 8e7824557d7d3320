// Package testutil provides testing utilities for kscript.
//
// This package contains mock errors, workflow fixtures and image helpers used
// across test files. It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
var (
	// ErrMockStoreUnavailable simulates a failing store.
	ErrMockStoreUnavailable = errors.New("store unavailable")

	// ErrMockJobFailed simulates a background job that returns an error.
	ErrMockJobFailed = errors.New("job failed")
)
