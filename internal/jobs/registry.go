package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/kitodo/kscript/internal/clock"
	"github.com/kitodo/kscript/internal/constants"
	kerrors "github.com/kitodo/kscript/internal/errors"
)

// Registry runs jobs under a worker limit and keeps them listable until
// they are deleted.
type Registry struct {
	logger      zerolog.Logger
	clock       clock.Clock
	maxWorkers  int64
	stopTimeout time.Duration
	sem         *semaphore.Weighted

	base   context.Context //nolint:containedctx // parent of every job context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	jobs   []*Job
	closed bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxWorkers sets how many jobs run at once. Values below 1 are ignored.
func WithMaxWorkers(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxWorkers = int64(n)
		}
	}
}

// WithStopTimeout sets how long Close waits for running jobs to return.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.stopTimeout = d
		}
	}
}

// WithClock sets the clock used for job timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:      logger.With().Str("component", "jobs").Logger(),
		clock:       clock.RealClock{},
		maxWorkers:  constants.DefaultMaxWorkers,
		stopTimeout: constants.DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.sem = semaphore.NewWeighted(r.maxWorkers)
	r.base, r.cancel = context.WithCancel(context.Background())
	return r
}

// Submit registers a job and starts it in the background. It returns as
// soon as the job is registered; the job runs when a worker slot is free.
func (r *Registry) Submit(name string, processID int, fn Func) (*Job, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, kerrors.ErrRegistryClosed
	}
	job := newJob(r.base, uuid.NewString(), name, processID, r.clock)
	r.jobs = append(r.jobs, job)
	r.wg.Add(1)
	r.mu.Unlock()

	r.logger.Debug().
		Str("job_id", job.id).
		Str("job", name).
		Int("process_id", processID).
		Msg("job submitted")

	go r.run(job, fn)
	return job, nil
}

func (r *Registry) run(job *Job, fn Func) {
	defer r.wg.Done()
	defer close(job.done)
	defer job.cancel()

	log := r.logger.With().Str("job_id", job.id).Int("process_id", job.processID).Logger()

	if err := r.sem.Acquire(job.ctx, 1); err != nil {
		_ = job.transition(constants.JobStateStopped, nil)
		log.Debug().Msg("job stopped before start")
		return
	}
	defer r.sem.Release(1)

	if err := job.transition(constants.JobStateRunning, nil); err != nil {
		log.Debug().Msg("job stopped before start")
		return
	}
	log.Info().Str("job", job.name).Msg("job started")

	err := runSafely(job.ctx, job, fn)
	switch {
	case job.ctx.Err() != nil:
		_ = job.transition(constants.JobStateStopped, nil)
		log.Info().Msg("job stopped")
	case err != nil:
		_ = job.transition(constants.JobStateFailed, err)
		log.Error().Err(err).Msg("job failed")
	default:
		_ = job.transition(constants.JobStateFinished, nil)
		log.Info().Msg("job finished")
	}
}

// runSafely turns a panic in fn into a job failure.
func runSafely(ctx context.Context, job *Job, fn Func) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p) //nolint:err113 // panic value is dynamic
		}
	}()
	return fn(ctx, job)
}

// List returns the tracked jobs in submission order.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Job(nil), r.jobs...)
}

// Get returns the job with the given ID.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.id == id {
			return j, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", kerrors.ErrJobNotFound, id)
}

// Stop cancels the job with the given ID. The job stays listed.
func (r *Registry) Stop(id string) error {
	job, err := r.Get(id)
	if err != nil {
		return err
	}
	job.Stop()
	return nil
}

// StopAndDeleteAll stops every tracked job and forgets all of them.
// It returns the number of jobs removed.
func (r *Registry) StopAndDeleteAll() int {
	r.mu.Lock()
	all := r.jobs
	r.jobs = nil
	r.mu.Unlock()

	for _, j := range all {
		j.Stop()
	}
	if len(all) > 0 {
		r.logger.Info().Int("jobs", len(all)).Msg("jobs stopped and deleted")
	}
	return len(all)
}

// WaitAll waits for every tracked job to exit. Job failures are joined
// into the returned error; a ctx timeout returns the context error.
func (r *Registry) WaitAll(ctx context.Context) error {
	var errs []error
	for _, j := range r.List() {
		err := j.Wait(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("job %s (process %d): %w", j.name, j.processID, err))
		}
	}
	return errors.Join(errs...)
}

// Close rejects new jobs, stops all tracked jobs and waits up to the stop
// timeout for their goroutines to return.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.StopAndDeleteAll()
	r.cancel()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(r.stopTimeout):
		return fmt.Errorf("jobs still running after %s: %w", r.stopTimeout, context.DeadlineExceeded)
	}
}
