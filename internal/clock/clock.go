// Package clock provides an abstraction for time operations so that
// timestamps written by the store and the job registry can be controlled in tests.
package clock

import "time"

// Clock is an interface for time operations.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the actual system time in UTC.
type RealClock struct{}

// Now returns the current UTC time from the system clock.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.T
}

// Ensure both implementations satisfy Clock.
var (
	_ Clock = RealClock{}
	_ Clock = FixedClock{}
)
