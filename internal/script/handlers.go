package script

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/domain"
	kerrors "github.com/kitodo/kscript/internal/errors"
	"github.com/kitodo/kscript/internal/imaging"
	"github.com/kitodo/kscript/internal/jobs"
)

// boolTrue is the only value token that sets a task property.
const boolTrue = "true"

func taskOf(p *domain.Process, cmd *Command) (*domain.Task, error) {
	title := cmd.Params[paramTaskTitle]
	task := p.TaskByTitle(title)
	if task == nil {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrTaskNotFound, title)
	}
	return task, nil
}

func (s *Service) createFolders(ctx context.Context, p *domain.Process, _ *Command) (outcome, error) {
	project, err := s.store.GetProject(ctx, p.ProjectID)
	if err != nil {
		return outcome{}, err
	}
	created, err := s.folders.CreateAll(ctx, p, project)
	if err != nil {
		return outcome{}, err
	}
	s.logger.Debug().Int("process_id", p.ID).Strs("folders", created).Msg("folders created")
	return outcome{}, nil
}

func (s *Service) addRole(ctx context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	task, err := taskOf(p, cmd)
	if err != nil {
		return outcome{}, err
	}
	role, err := s.store.GetRole(ctx, cmd.Params[paramRole])
	if err != nil {
		return outcome{}, err
	}
	return outcome{dirty: task.AddRole(role.Title)}, nil
}

func (s *Service) deleteRole(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	task, err := taskOf(p, cmd)
	if err != nil {
		return outcome{}, err
	}
	return outcome{dirty: task.RemoveRole(cmd.Params[paramRole])}, nil
}

func (s *Service) setStepStatus(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	task, err := taskOf(p, cmd)
	if err != nil {
		return outcome{}, err
	}
	raw := cmd.Params[paramStatus]
	n, err := strconv.Atoi(raw)
	status := constants.TaskStatus(n)
	if err != nil || !status.Valid() {
		return outcome{}, fmt.Errorf("%w: %q (want %d..%d)", kerrors.ErrInvalidStatus, raw,
			constants.TaskStatusLocked, constants.TaskStatusError)
	}
	task.Status = status
	return outcome{dirty: true}, nil
}

func (s *Service) setStepNumber(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	task, err := taskOf(p, cmd)
	if err != nil {
		return outcome{}, err
	}
	raw := cmd.Params[paramNumber]
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return outcome{}, fmt.Errorf("%w: number %q must be a non-negative integer", kerrors.ErrInvalidParameter, raw)
	}
	task.Ordering = n
	p.SortTasks()
	return outcome{dirty: true}, nil
}

func (s *Service) addShellScriptToStep(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	task, err := taskOf(p, cmd)
	if err != nil {
		return outcome{}, err
	}
	task.ScriptName = cmd.Params[paramLabel]
	task.ScriptPath = cmd.Params[paramScript]
	return outcome{dirty: true}, nil
}

// setTaskProperty sets the flag to true only for the exact token "true".
// Any other value sets false.
func (s *Service) setTaskProperty(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	task, err := taskOf(p, cmd)
	if err != nil {
		return outcome{}, err
	}
	name := domain.TaskProperty(strings.ToLower(cmd.Params[paramProperty]))
	if !task.Properties.Set(name, cmd.Params[paramValue] == boolTrue) {
		return outcome{}, fmt.Errorf("%w: unknown task property %q", kerrors.ErrInvalidParameter, cmd.Params[paramProperty])
	}
	return outcome{dirty: true}, nil
}

func (s *Service) deleteStep(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	title := cmd.Params[paramTaskTitle]
	if !p.RemoveTask(title) {
		return outcome{}, fmt.Errorf("%w: %q", kerrors.ErrTaskNotFound, title)
	}
	return outcome{dirty: true}, nil
}

// generateImages resolves every folder now and submits the generation as
// a job. It returns without waiting for the job.
func (s *Service) generateImages(ctx context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	mode := imaging.ModeAll
	if raw, ok := cmd.Params[paramImages]; ok {
		m, err := imaging.ParseMode(raw)
		if err != nil {
			return outcome{}, err
		}
		mode = m
	}

	project, err := s.store.GetProject(ctx, p.ProjectID)
	if err != nil {
		return outcome{}, err
	}
	if project.GeneratorSource == nil {
		return outcome{}, fmt.Errorf("%w: project %d has no generator source folder", kerrors.ErrFolderNotFound, project.ID)
	}
	sourceDir, err := s.folders.Path(p, *project.GeneratorSource)
	if err != nil {
		return outcome{}, err
	}

	var targets []imaging.Target
	for _, name := range strings.Split(cmd.Params[paramFolders], ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		f := project.FolderByPath(name)
		if f == nil {
			return outcome{}, fmt.Errorf("%w: %q in project %d", kerrors.ErrFolderNotFound, name, project.ID)
		}
		dir, err := s.folders.Path(p, *f)
		if err != nil {
			return outcome{}, err
		}
		targets = append(targets, imaging.Target{Dir: dir, Folder: *f})
	}
	if len(targets) == 0 {
		return outcome{}, fmt.Errorf("%w: folders lists no folder", kerrors.ErrInvalidParameter)
	}

	req := imaging.Request{
		ProcessID:  p.ID,
		SourceDir:  sourceDir,
		SourceMime: project.GeneratorSource.MimeType,
		Targets:    targets,
		Mode:       mode,
	}
	job, err := s.jobs.Submit("generateImages", p.ID, func(ctx context.Context, job *jobs.Job) error {
		_, err := s.images.Generate(ctx, req, job.SetProgress)
		return err
	})
	if err != nil {
		return outcome{}, err
	}
	return outcome{job: job}, nil
}

// resolveValue returns the literal value, or the current value of the
// referenced field for KEY=@REF.
func resolveValue(p *domain.Process, a Assignment) (string, error) {
	if !a.IsRef() {
		return a.Value, nil
	}
	v, ok := p.ResolveField(a.Ref())
	if !ok {
		return "", fmt.Errorf("%w: %q referenced by %s", kerrors.ErrMetadataNotFound, a.Ref(), a.Key)
	}
	return v, nil
}

// resolveAll resolves every assignment before anything is changed, so a
// bad reference leaves the process untouched.
func resolveAll(p *domain.Process, assignments []Assignment) ([]string, error) {
	values := make([]string, len(assignments))
	for i, a := range assignments {
		if !a.HasValue {
			continue
		}
		v, err := resolveValue(p, a)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (s *Service) addData(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	values, err := resolveAll(p, cmd.Assignments)
	if err != nil {
		return outcome{}, err
	}
	for i, a := range cmd.Assignments {
		p.AddMetadata(a.Key, values[i])
	}
	return outcome{dirty: true}, nil
}

func (s *Service) deleteData(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	values, err := resolveAll(p, cmd.Assignments)
	if err != nil {
		return outcome{}, err
	}
	removed := 0
	for i, a := range cmd.Assignments {
		if a.HasValue {
			removed += p.DeleteMetadata(a.Key, &values[i])
		} else {
			removed += p.DeleteMetadata(a.Key, nil)
		}
	}
	return outcome{dirty: removed > 0}, nil
}

func (s *Service) overwriteData(_ context.Context, p *domain.Process, cmd *Command) (outcome, error) {
	values, err := resolveAll(p, cmd.Assignments)
	if err != nil {
		return outcome{}, err
	}
	for i, a := range cmd.Assignments {
		p.OverwriteMetadata(a.Key, values[i])
	}
	return outcome{dirty: true}, nil
}
