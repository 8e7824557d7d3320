package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/kitodo/kscript/internal/clock"
	"github.com/kitodo/kscript/internal/constants"
)

// Func is the work a job performs. It must return promptly once ctx is done.
type Func func(ctx context.Context, job *Job) error

// Job is one unit of background work.
type Job struct {
	id        string
	name      string
	processID int
	clock     clock.Clock

	ctx    context.Context //nolint:containedctx // job owns its cancellation
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.RWMutex
	state      constants.JobState
	err        error
	completed  int
	total      int
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// Info is a point-in-time copy of a job, suitable for listing and JSON output.
type Info struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	ProcessID  int                `json:"process_id"`
	State      constants.JobState `json:"state"`
	Completed  int                `json:"completed"`
	Total      int                `json:"total"`
	Error      string             `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	StartedAt  *time.Time         `json:"started_at,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

func newJob(parent context.Context, id, name string, processID int, c clock.Clock) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		id:        id,
		name:      name,
		processID: processID,
		clock:     c,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     constants.JobStateStartable,
		createdAt: c.Now(),
	}
}

// ID returns the unique job ID.
func (j *Job) ID() string { return j.id }

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// ProcessID returns the process the job works on.
func (j *Job) ProcessID() int { return j.processID }

// State returns the current state.
func (j *Job) State() constants.JobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Err returns the error of a failed job.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// IsStartable reports whether the job is still waiting for a worker.
func (j *Job) IsStartable() bool {
	return j.State() == constants.JobStateStartable
}

// IsStoppable reports whether the job is still active. A job stopped while
// running stays stoppable until its Func has returned, so a caller polling
// IsStoppable never sees an inactive job that is still writing output.
func (j *Job) IsStoppable() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// Progress returns how many of the job's work items are complete.
func (j *Job) Progress() (completed, total int) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.completed, j.total
}

// SetProgress records progress. It is safe to call from the job's Func.
func (j *Job) SetProgress(completed, total int) {
	j.mu.Lock()
	j.completed, j.total = completed, total
	j.mu.Unlock()
}

// Done returns a channel closed once the job's goroutine has exited.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job has exited or ctx is done. It returns the
// context error on timeout and otherwise the job's own error, which is nil
// for finished and stopped jobs.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the job. A startable job never runs. The state becomes
// stopped at once, but a running Func may still be finishing its current
// step: use Done or Wait to know when it has returned. Stopping a terminal
// job is a no-op.
func (j *Job) Stop() {
	j.cancel()
	_ = j.transition(constants.JobStateStopped, nil)
}

// Info returns a snapshot of the job.
func (j *Job) Info() Info {
	j.mu.RLock()
	defer j.mu.RUnlock()

	info := Info{
		ID:        j.id,
		Name:      j.name,
		ProcessID: j.processID,
		State:     j.state,
		Completed: j.completed,
		Total:     j.total,
		CreatedAt: j.createdAt,
	}
	if j.err != nil {
		info.Error = j.err.Error()
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		info.StartedAt = &t
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		info.FinishedAt = &t
	}
	return info
}

func (j *Job) transition(to constants.JobState, err error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !IsValidTransition(j.state, to) {
		return transitionError(j.state, to)
	}
	j.state = to
	now := j.clock.Now()
	switch {
	case to == constants.JobStateRunning:
		j.startedAt = now
	case IsTerminal(to):
		j.finishedAt = now
		j.err = err
	}
	return nil
}
