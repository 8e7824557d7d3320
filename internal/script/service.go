// Package script parses workflow scripts and applies them to processes.
//
// A script names one action and its parameters:
//
//	action:addRole "tasktitle:Progress" role:General
//	action:addData LegalNoteAndTermsOfUse=PDM1.0 TSL_ATS=@TSL_ATS
//
// Service.Execute parses the script once and runs the action on each
// process in turn. A failure on one process is recorded in the Report and
// does not stop the others. Long actions are handed to the job registry
// and run in the background.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, internal/store,
//     internal/jobs, internal/imaging, internal/folder, internal/ctxutil,
//     internal/logging, std lib
//   - MUST NOT import: internal/cli, internal/config
package script

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kitodo/kscript/internal/ctxutil"
	"github.com/kitodo/kscript/internal/domain"
	"github.com/kitodo/kscript/internal/imaging"
	"github.com/kitodo/kscript/internal/jobs"
	"github.com/kitodo/kscript/internal/logging"
	"github.com/kitodo/kscript/internal/store"
)

// JobSubmitter starts background jobs.
type JobSubmitter interface {
	Submit(name string, processID int, fn jobs.Func) (*jobs.Job, error)
}

// Indexer receives processes whose metadata may have changed.
type Indexer interface {
	Update(p *domain.Process)
}

// FolderManager locates and creates process folders.
type FolderManager interface {
	Path(p *domain.Process, f domain.Folder) (string, error)
	CreateAll(ctx context.Context, p *domain.Process, project *domain.Project) ([]string, error)
}

// ImageGenerator produces derivative images.
type ImageGenerator interface {
	Generate(ctx context.Context, req imaging.Request, progress imaging.ProgressFunc) (imaging.Result, error)
}

// Result is the outcome of running the action on one process.
type Result struct {
	ProcessID int       `json:"process_id"`
	Changed   bool      `json:"changed"`
	Job       *jobs.Job `json:"-"`
	Err       error     `json:"-"`
}

// Report collects the per-process results of one Execute call.
type Report struct {
	Action  Action
	Results []Result
	Jobs    []*jobs.Job
}

// Err joins the per-process errors, or returns nil if every process succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("process %d: %w", res.ProcessID, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of processes the action failed on.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Service executes scripts against stored processes.
type Service struct {
	store   store.Store
	jobs    JobSubmitter
	index   Indexer
	folders FolderManager
	images  ImageGenerator
	logger  zerolog.Logger
}

// NewService creates a Service.
func NewService(st store.Store, submitter JobSubmitter, index Indexer, folders FolderManager, images ImageGenerator, logger zerolog.Logger) *Service {
	return &Service{
		store:   st,
		jobs:    submitter,
		index:   index,
		folders: folders,
		images:  images,
		logger:  logger.With().Str("component", "script").Logger(),
	}
}

// Execute parses script and applies it to each process in order.
//
// A parse error is returned before any process is loaded. Per-process
// failures are recorded in the Report; use Report.Err to collect them.
// If ctx is canceled the remaining processes are skipped and the context
// error is returned together with the partial report.
func (s *Service) Execute(ctx context.Context, processIDs []int, script string) (*Report, error) {
	cmd, err := Parse(script)
	if err != nil {
		return nil, err
	}
	spec := specFor(cmd.Action)

	report := &Report{Action: cmd.Action}
	log := s.logger.With().Str("action", spec.name).Logger()
	log.Info().
		Str("script", logging.FilterSensitiveValue(script)).
		Int("processes", len(processIDs)).
		Msg("executing script")
	for _, a := range cmd.Assignments {
		log.Debug().Str("key", a.Key).Str("value", logging.SafeValue(a.Key, a.Value)).Msg("assignment")
	}

	for _, id := range processIDs {
		if err := ctxutil.Canceled(ctx); err != nil {
			return report, err
		}

		res := s.executeOne(ctx, spec, cmd, id)
		if res.Err != nil {
			log.Warn().Err(res.Err).Int("process_id", id).Msg("action failed")
		} else {
			log.Debug().Int("process_id", id).Bool("changed", res.Changed).Msg("action applied")
		}
		if res.Job != nil {
			report.Jobs = append(report.Jobs, res.Job)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (s *Service) executeOne(ctx context.Context, spec *actionSpec, cmd *Command, id int) Result {
	res := Result{ProcessID: id}

	var out outcome
	p, err := s.store.UpdateProcess(ctx, id, func(p *domain.Process) (bool, error) {
		var err error
		out, err = spec.handler(s, ctx, p, cmd)
		return out.dirty, err
	})
	res.Job = out.job
	if err != nil {
		res.Err = err
		return res
	}

	if out.dirty {
		s.index.Update(p)
		res.Changed = true
	}
	return res
}
