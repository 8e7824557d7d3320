package constants

import "fmt"

// TaskStatus is the processing status of a workflow task.
// The integer values are part of the script language (setStepStatus status:3)
// and of the persisted process format, so they must never be renumbered.
type TaskStatus int

// Processing states of a task.
const (
	// TaskStatusLocked indicates the task cannot be worked on yet.
	TaskStatusLocked TaskStatus = iota

	// TaskStatusOpen indicates the task is ready to be accepted.
	TaskStatusOpen

	// TaskStatusInWork indicates a user or automation is working on the task.
	TaskStatusInWork

	// TaskStatusDone indicates the task has been completed.
	TaskStatusDone

	// TaskStatusError indicates the task failed and needs attention.
	TaskStatusError
)

//nolint:gochecknoglobals // Read-only lookup table
var taskStatusNames = [...]string{"LOCKED", "OPEN", "INWORK", "DONE", "ERROR"}

// String returns the upper-case name of the status.
func (s TaskStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("TaskStatus(%d)", int(s))
	}
	return taskStatusNames[s]
}

// Valid reports whether s is one of the defined statuses.
func (s TaskStatus) Valid() bool {
	return s >= TaskStatusLocked && s <= TaskStatusError
}

// JobState represents the lifecycle state of a background job.
// Status values use snake_case for JSON serialization compatibility.
type JobState string

// Job states. The lifecycle is:
//
//	Startable → Running → Finished | Stopped | Failed
//	Startable → Stopped
const (
	// JobStateStartable indicates the job is queued and waiting for a worker slot.
	JobStateStartable JobState = "startable"

	// JobStateRunning indicates the job holds a worker slot and is executing.
	JobStateRunning JobState = "running"

	// JobStateFinished indicates the job completed successfully.
	JobStateFinished JobState = "finished"

	// JobStateStopped indicates the job was canceled before it could finish.
	JobStateStopped JobState = "stopped"

	// JobStateFailed indicates the job returned an error.
	JobStateFailed JobState = "failed"
)

// String returns the string representation of the JobState.
func (s JobState) String() string {
	return string(s)
}
