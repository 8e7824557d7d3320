// Package folder resolves project folder templates against a process and
// creates the resulting directories inside the process directory.
package folder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/domain"
	kerrors "github.com/kitodo/kscript/internal/errors"
)

const dirPerm = 0o750

// Resolve substitutes the process title for every (processtitle)
// placeholder in the template. The result is cleaned and must stay relative.
func Resolve(tmpl string, p *domain.Process) (string, error) {
	resolved := strings.ReplaceAll(tmpl, constants.ProcessTitlePlaceholder, p.Title)
	resolved = filepath.Clean(filepath.FromSlash(resolved))
	if resolved == "." || filepath.IsAbs(resolved) || strings.HasPrefix(resolved, ".."+string(filepath.Separator)) || resolved == ".." {
		return "", fmt.Errorf("%w: folder path %q leaves the process directory", kerrors.ErrInvalidParameter, tmpl)
	}
	return resolved, nil
}

// DirLocator returns the directory of a process.
type DirLocator interface {
	ProcessDir(id int) string
}

// Manager creates and locates folders for processes.
type Manager struct {
	dirs   DirLocator
	logger zerolog.Logger
}

// NewManager creates a Manager using dirs for process directory lookup.
func NewManager(dirs DirLocator, logger zerolog.Logger) *Manager {
	return &Manager{
		dirs:   dirs,
		logger: logger.With().Str("component", "folder").Logger(),
	}
}

// Path returns the absolute directory of folder f for process p.
func (m *Manager) Path(p *domain.Process, f domain.Folder) (string, error) {
	rel, err := Resolve(f.Path, p)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.dirs.ProcessDir(p.ID), rel), nil
}

// CreateAll creates the directory of every folder configured for the
// project. Existing directories are left alone, so repeated calls succeed.
// The folder paths are resolved when CreateAll runs, using the current title.
func (m *Manager) CreateAll(ctx context.Context, p *domain.Process, project *domain.Project) ([]string, error) {
	paths := make([]string, len(project.Folders))
	for i, f := range project.Folders {
		path, err := m.Path(p, f)
		if err != nil {
			return nil, err
		}
		paths[i] = path
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := os.MkdirAll(path, dirPerm); err != nil {
				return fmt.Errorf("failed to create folder %s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.logger.Debug().
		Int("process_id", p.ID).
		Int("folders", len(paths)).
		Msg("process folders created")
	return paths, nil
}
