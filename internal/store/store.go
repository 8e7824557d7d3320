// Package store provides file-backed persistence for processes, their
// metadata, and the project/role catalog.
//
// Layout under the data directory:
//
//	<data_dir>/catalog.yaml           projects and roles
//	<data_dir>/<id>/process.json      process record and task list
//	<data_dir>/<id>/meta.yaml         metadata entries
//	<data_dir>/<id>/.lock             write lock for the process
//
// Writes are atomic (write-then-rename) and serialized per process with an
// exclusive file lock, so several kscript invocations can share a data directory.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, internal/flock,
//     internal/clock, internal/ctxutil, std lib
//   - MUST NOT import: internal/script, internal/jobs, internal/cli
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kitodo/kscript/internal/clock"
	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/ctxutil"
	"github.com/kitodo/kscript/internal/domain"
	kerrors "github.com/kitodo/kscript/internal/errors"
	"github.com/kitodo/kscript/internal/flock"
)

// LockTimeout is the maximum duration to wait for acquiring a file lock.
const LockTimeout = 5 * time.Second

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// catalogLockName guards catalog.yaml.
const catalogLockName = ".catalog.lock"

// Store defines the persistence operations the script interpreter needs.
type Store interface {
	// GetProcess loads a process with its metadata.
	// Returns ErrProcessNotFound if the process doesn't exist.
	GetProcess(ctx context.Context, id int) (*domain.Process, error)

	// SaveProcess creates or replaces the process record and its metadata.
	SaveProcess(ctx context.Context, p *domain.Process) error

	// UpdateProcess loads a process, passes it to fn and saves it if fn
	// reports a change, all under the process lock. It returns the process
	// as fn left it.
	UpdateProcess(ctx context.Context, id int, fn UpdateFunc) (*domain.Process, error)

	// ListProcesses returns all processes sorted by ID.
	ListProcesses(ctx context.Context) ([]*domain.Process, error)

	// GetProject returns a project from the catalog.
	// Returns ErrProjectNotFound if it doesn't exist.
	GetProject(ctx context.Context, id int) (*domain.Project, error)

	// SaveProject creates or replaces a project in the catalog.
	SaveProject(ctx context.Context, p *domain.Project) error

	// GetRole returns the role with the exact title.
	// Returns ErrRoleNotFound if it doesn't exist.
	GetRole(ctx context.Context, title string) (*domain.Role, error)

	// SaveRole creates or replaces a role in the catalog.
	SaveRole(ctx context.Context, r *domain.Role) error

	// ListRoles returns all roles sorted by title.
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// ProcessDir returns the directory that holds the files of a process.
	ProcessDir(id int) string
}

// UpdateFunc changes a process in place. It returns true if the process
// must be saved.
type UpdateFunc func(p *domain.Process) (dirty bool, err error)

// catalog is the on-disk shape of catalog.yaml.
type catalog struct {
	Projects []domain.Project `yaml:"projects"`
	Roles    []domain.Role    `yaml:"roles"`
}

// metadataFile is the on-disk shape of meta.yaml.
type metadataFile struct {
	ProcessID int                    `yaml:"process_id"`
	Metadata  []domain.MetadataEntry `yaml:"metadata"`
}

// FileStore implements Store using the local filesystem.
type FileStore struct {
	dataDir string
	clock   clock.Clock

	// catalogMu serializes catalog access within this process; the file
	// lock does the same across processes.
	catalogMu sync.Mutex
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithClock sets the clock used for CreatedAt/UpdatedAt timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *FileStore) {
		s.clock = c
	}
}

// NewFileStore creates a FileStore rooted at dataDir, creating the directory if needed.
func NewFileStore(dataDir string, opts ...Option) (*FileStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("failed to create store: data directory %w", kerrors.ErrEmptyValue)
	}
	if err := os.MkdirAll(dataDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &FileStore{dataDir: dataDir, clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DataDir returns the root directory of the store.
func (s *FileStore) DataDir() string {
	return s.dataDir
}

// ProcessDir returns the directory of the process with the given ID.
func (s *FileStore) ProcessDir(id int) string {
	return filepath.Join(s.dataDir, strconv.Itoa(id))
}

// GetProcess loads the process record and its metadata.
func (s *FileStore) GetProcess(ctx context.Context, id int) (*domain.Process, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	dir := s.ProcessDir(id)
	if _, err := os.Stat(filepath.Join(dir, constants.ProcessFileName)); os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to get process %d: %w", id, kerrors.ErrProcessNotFound)
	}

	lock, err := flock.Acquire(ctx, filepath.Join(dir, constants.LockFileName), LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to get process %d: %w", id, err)
	}
	defer func() { _ = lock.Release() }()

	return s.readProcess(id)
}

// readProcess reads process.json and meta.yaml. The caller holds the lock.
func (s *FileStore) readProcess(id int) (*domain.Process, error) {
	dir := s.ProcessDir(id)

	data, err := os.ReadFile(filepath.Join(dir, constants.ProcessFileName)) //#nosec G304 -- path is constructed from a numeric ID
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to get process %d: %w", id, kerrors.ErrProcessNotFound)
		}
		return nil, fmt.Errorf("failed to read process %d: %w", id, err)
	}

	var p domain.Process
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse process %d: %w: %w", id, kerrors.ErrCorruptedState, err)
	}

	meta, err := os.ReadFile(filepath.Join(dir, constants.MetadataFileName)) //#nosec G304 -- path is constructed from a numeric ID
	switch {
	case os.IsNotExist(err):
		// A process without metadata is valid.
	case err != nil:
		return nil, fmt.Errorf("failed to read metadata of process %d: %w", id, err)
	default:
		var mf metadataFile
		if err := yaml.Unmarshal(meta, &mf); err != nil {
			return nil, fmt.Errorf("failed to parse metadata of process %d: %w: %w", id, kerrors.ErrCorruptedState, err)
		}
		p.Metadata = mf.Metadata
	}

	p.SortTasks()
	return &p, nil
}

// SaveProcess writes the process record and metadata atomically.
func (s *FileStore) SaveProcess(ctx context.Context, p *domain.Process) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("failed to save process: process %w", kerrors.ErrEmptyValue)
	}
	if p.ID <= 0 {
		return fmt.Errorf("failed to save process: %w: id must be positive, got %d", kerrors.ErrInvalidParameter, p.ID)
	}

	dir := s.ProcessDir(p.ID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create process directory: %w", err)
	}

	lock, err := flock.Acquire(ctx, filepath.Join(dir, constants.LockFileName), LockTimeout)
	if err != nil {
		return fmt.Errorf("failed to save process %d: %w", p.ID, err)
	}
	defer func() { _ = lock.Release() }()

	return s.writeProcess(p)
}

// UpdateProcess runs a read-modify-write of one process while holding its
// lock, so concurrent updates from other goroutines or kscript invocations
// are applied one after another instead of overwriting each other.
// fn must not call back into the store for the same process.
func (s *FileStore) UpdateProcess(ctx context.Context, id int, fn UpdateFunc) (*domain.Process, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	dir := s.ProcessDir(id)
	if _, err := os.Stat(filepath.Join(dir, constants.ProcessFileName)); os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to update process %d: %w", id, kerrors.ErrProcessNotFound)
	}

	lock, err := flock.Acquire(ctx, filepath.Join(dir, constants.LockFileName), LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to update process %d: %w", id, err)
	}
	defer func() { _ = lock.Release() }()

	p, err := s.readProcess(id)
	if err != nil {
		return nil, err
	}

	dirty, err := fn(p)
	if err != nil {
		return p, err
	}
	if !dirty {
		return p, nil
	}
	if err := ctxutil.Canceled(ctx); err != nil {
		return p, err
	}
	return p, s.writeProcess(p)
}

// writeProcess stamps and writes a process. The caller holds the lock.
func (s *FileStore) writeProcess(p *domain.Process) error {
	now := s.clock.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.SchemaVersion = constants.SchemaVersion
	p.SortTasks()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to save process %d: %w", p.ID, err)
	}
	meta, err := yaml.Marshal(metadataFile{ProcessID: p.ID, Metadata: p.Metadata})
	if err != nil {
		return fmt.Errorf("failed to save metadata of process %d: %w", p.ID, err)
	}

	dir := s.ProcessDir(p.ID)
	if err := atomicWrite(filepath.Join(dir, constants.MetadataFileName), meta); err != nil {
		return fmt.Errorf("failed to save metadata of process %d: %w", p.ID, err)
	}
	if err := atomicWrite(filepath.Join(dir, constants.ProcessFileName), data); err != nil {
		return fmt.Errorf("failed to save process %d: %w", p.ID, err)
	}
	return nil
}

// ListProcesses returns all processes, sorted by ID. Directories that are not
// process directories are ignored.
func (s *FileStore) ListProcesses(ctx context.Context) ([]*domain.Process, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil || id <= 0 {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dataDir, e.Name(), constants.ProcessFileName)); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	processes := make([]*domain.Process, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProcess(ctx, id)
		if err != nil {
			return nil, err
		}
		processes = append(processes, p)
	}
	return processes, nil
}

// GetProject returns a project from the catalog.
func (s *FileStore) GetProject(ctx context.Context, id int) (*domain.Project, error) {
	c, err := s.readCatalog(ctx)
	if err != nil {
		return nil, err
	}
	for i := range c.Projects {
		if c.Projects[i].ID == id {
			p := c.Projects[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("failed to get project %d: %w", id, kerrors.ErrProjectNotFound)
}

// SaveProject creates or replaces a project in the catalog.
func (s *FileStore) SaveProject(ctx context.Context, p *domain.Project) error {
	if p == nil {
		return fmt.Errorf("failed to save project: project %w", kerrors.ErrEmptyValue)
	}
	return s.updateCatalog(ctx, func(c *catalog) {
		for i := range c.Projects {
			if c.Projects[i].ID == p.ID {
				c.Projects[i] = *p
				return
			}
		}
		c.Projects = append(c.Projects, *p)
	})
}

// GetRole returns the role with the exact title.
func (s *FileStore) GetRole(ctx context.Context, title string) (*domain.Role, error) {
	c, err := s.readCatalog(ctx)
	if err != nil {
		return nil, err
	}
	for i := range c.Roles {
		if c.Roles[i].Title == title {
			r := c.Roles[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("failed to get role %q: %w", title, kerrors.ErrRoleNotFound)
}

// SaveRole creates or replaces a role, matched by title.
func (s *FileStore) SaveRole(ctx context.Context, r *domain.Role) error {
	if r == nil || r.Title == "" {
		return fmt.Errorf("failed to save role: title %w", kerrors.ErrEmptyValue)
	}
	return s.updateCatalog(ctx, func(c *catalog) {
		for i := range c.Roles {
			if c.Roles[i].Title == r.Title {
				c.Roles[i] = *r
				return
			}
		}
		c.Roles = append(c.Roles, *r)
	})
}

// ListRoles returns all roles sorted by title.
func (s *FileStore) ListRoles(ctx context.Context) ([]domain.Role, error) {
	c, err := s.readCatalog(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(c.Roles, func(i, j int) bool { return c.Roles[i].Title < c.Roles[j].Title })
	return c.Roles, nil
}

// readCatalog loads catalog.yaml under the catalog lock.
func (s *FileStore) readCatalog(ctx context.Context) (*catalog, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	lock, err := flock.Acquire(ctx, filepath.Join(s.dataDir, catalogLockName), LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defer func() { _ = lock.Release() }()

	return s.loadCatalogFile()
}

// updateCatalog applies fn to the catalog and writes it back atomically.
func (s *FileStore) updateCatalog(ctx context.Context, fn func(*catalog)) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	lock, err := flock.Acquire(ctx, filepath.Join(s.dataDir, catalogLockName), LockTimeout)
	if err != nil {
		return fmt.Errorf("failed to update catalog: %w", err)
	}
	defer func() { _ = lock.Release() }()

	c, err := s.loadCatalogFile()
	if err != nil {
		return err
	}
	fn(c)

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.dataDir, constants.CatalogFileName), data); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}

// loadCatalogFile reads catalog.yaml; a missing file is an empty catalog.
func (s *FileStore) loadCatalogFile() (*catalog, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, constants.CatalogFileName)) //#nosec G304 -- fixed file name under the data dir
	if os.IsNotExist(err) {
		return &catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w: %w", kerrors.ErrCorruptedState, err)
	}
	return &c, nil
}

// atomicWrite writes data to a file atomically using write-then-rename.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	// Sync before rename so a crash never leaves a truncated file in place.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
