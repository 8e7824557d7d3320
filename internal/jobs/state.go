// Package jobs runs long actions in the background and tracks their lifecycle.
//
// A Registry accepts jobs, runs them on goroutines under a worker limit and
// lets callers list, wait for and stop them. Image generation is the only
// asynchronous action today.
//
// Import rules:
//   - CAN import: internal/constants, internal/errors, internal/clock, std lib
//   - MUST NOT import: internal/script, internal/store, internal/cli
package jobs

import (
	"fmt"

	"github.com/kitodo/kscript/internal/constants"
	kerrors "github.com/kitodo/kscript/internal/errors"
)

// ValidTransitions defines the allowed job state changes.
//
//	Startable → Running, Stopped
//	Running → Finished, Stopped, Failed
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.JobState][]constants.JobState{
	constants.JobStateStartable: {constants.JobStateRunning, constants.JobStateStopped},
	constants.JobStateRunning: {
		constants.JobStateFinished,
		constants.JobStateStopped,
		constants.JobStateFailed,
	},
}

// IsValidTransition reports whether a job may move from one state to another.
func IsValidTransition(from, to constants.JobState) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func IsTerminal(s constants.JobState) bool {
	_, ok := ValidTransitions[s]
	return !ok
}

func transitionError(from, to constants.JobState) error {
	return fmt.Errorf("%w: %s -> %s", kerrors.ErrInvalidJobTransition, from, to)
}
