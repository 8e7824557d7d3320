// Package errors provides centralized error handling for kscript.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import (
	"errors"
	"fmt"
)

// Script errors. These are raised while a script is parsed, before any
// process is touched.
var (
	// ErrParse indicates malformed script text: an unterminated quote, a
	// parameter without a colon, or a duplicated parameter key.
	ErrParse = errors.New("script parse error")

	// ErrUnknownAction indicates the action name is not registered.
	ErrUnknownAction = errors.New("unknown action")

	// ErrMissingParameter indicates a parameter required by the action is absent.
	// It wraps ErrParse so callers that only care about "bad script" can check that.
	ErrMissingParameter = fmt.Errorf("%w: missing parameter", ErrParse)
)

// Execution errors. These are recorded per process and never abort a batch.
var (
	// ErrInvalidParameter indicates a parameter value the action cannot use.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidStatus indicates a status number outside the task status range.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrProcessNotFound indicates no process exists with the requested ID.
	ErrProcessNotFound = errors.New("process not found")

	// ErrTaskNotFound indicates the process has no task with the requested title.
	ErrTaskNotFound = errors.New("task not found")

	// ErrRoleNotFound indicates the catalog has no role with the requested title.
	ErrRoleNotFound = errors.New("role not found")

	// ErrProjectNotFound indicates the catalog has no project with the requested ID.
	ErrProjectNotFound = errors.New("project not found")

	// ErrFolderNotFound indicates a folder path is not configured for the project.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrMetadataNotFound indicates a metadata reference could not be resolved.
	ErrMetadataNotFound = errors.New("metadata not found")

	// ErrNoImages indicates the generator source folder contains no usable images.
	ErrNoImages = errors.New("no source images")

	// ErrEmptyImage indicates a source image decoded to zero width or height.
	ErrEmptyImage = errors.New("source image is empty")
)

// Job errors.
var (
	// ErrJobNotFound indicates the registry does not track a job with the given ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidJobTransition indicates a job state change the lifecycle does not allow.
	ErrInvalidJobTransition = errors.New("invalid job state transition")

	// ErrRegistryClosed indicates a submit after the registry was closed.
	ErrRegistryClosed = errors.New("job registry closed")
)

// Storage and configuration errors.
var (
	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrLockTimeout indicates a file lock could not be acquired within the timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrCorruptedState indicates a persisted file could not be decoded.
	ErrCorruptedState = errors.New("persisted state corrupted")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidJobs indicates an invalid jobs configuration value.
	ErrConfigInvalidJobs = errors.New("invalid jobs configuration")

	// ErrConfigInvalidImages indicates an invalid images configuration value.
	ErrConfigInvalidImages = errors.New("invalid images configuration")

	// ErrConfigInvalidSearch indicates an invalid search configuration value.
	ErrConfigInvalidSearch = errors.New("invalid search configuration")

	// ErrConfigInvalidLog indicates an invalid log configuration value.
	ErrConfigInvalidLog = errors.New("invalid log configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrJSONErrorOutput indicates that an error has already been output as JSON.
	// Commands should silence cobra's error printing when this is returned.
	ErrJSONErrorOutput = errors.New("error output as JSON")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
