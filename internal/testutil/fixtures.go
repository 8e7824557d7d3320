package testutil

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/domain"
)

// Seeder is the subset of the store used to load fixtures.
type Seeder interface {
	SaveProcess(ctx context.Context, p *domain.Process) error
	SaveProject(ctx context.Context, p *domain.Project) error
	SaveRole(ctx context.Context, r *domain.Role) error
}

// Fixture IDs and titles shared by the interpreter tests.
const (
	ProjectID       = 1
	FirstProcessID  = 1
	SecondProcessID = 2
	ClosedTaskID    = 7
	ProgressTaskID  = 8
)

// Project returns the fixture project: two derivative folders under jpgs/
// and a generator source folder named after the process title.
func Project() *domain.Project {
	return &domain.Project{
		ID:    ProjectID,
		Title: "First project",
		Folders: []domain.Folder{
			{Path: "jpgs/max", MimeType: "image/jpeg", ImageScale: 1},
			{Path: "jpgs/thumbs", MimeType: "image/jpeg", ImageWidth: 16},
			{Path: "ocr/(processtitle)_txt", MimeType: "text/plain"},
		},
	}
}

// Processes returns the two fixture processes.
func Processes() []*domain.Process {
	return []*domain.Process{
		{
			ID:        FirstProcessID,
			Title:     "FirstProcess",
			ProjectID: ProjectID,
			Tasks: []domain.Task{
				{ID: ClosedTaskID, Title: "Closed", Ordering: 1, Status: constants.TaskStatusDone, Roles: []string{"Admin"}},
				{ID: ProgressTaskID, Title: "Progress", Ordering: 2, Status: constants.TaskStatusInWork, Roles: []string{"Admin"}},
				{ID: 9, Title: "Open", Ordering: 3, Status: constants.TaskStatusOpen},
			},
			Metadata: []domain.MetadataEntry{
				{Key: "TitleDocMain", Value: "First process"},
			},
		},
		{
			ID:        SecondProcessID,
			Title:     "Process two",
			ProjectID: ProjectID,
			Tasks: []domain.Task{
				{ID: 10, Title: "Scanning", Ordering: 1, Status: constants.TaskStatusDone},
				{ID: 11, Title: "Progress", Ordering: 2, Status: constants.TaskStatusOpen},
			},
			Metadata: []domain.MetadataEntry{
				{Key: "TitleDocMain", Value: "Second process"},
				{Key: "PublicationYear", Value: "1901"},
			},
		},
	}
}

// SeedWorkflow saves the fixture project, roles and processes.
func SeedWorkflow(t *testing.T, s Seeder) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, Project()))
	for i, title := range []string{"Admin", "General", "Scanning"} {
		require.NoError(t, s.SaveRole(ctx, &domain.Role{ID: i + 1, Title: title}))
	}
	for _, p := range Processes() {
		require.NoError(t, s.SaveProcess(ctx, p))
	}
}

// WriteTIFF writes a w×h gradient TIFF image to path, creating parent directories.
func WriteTIFF(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}

	f, err := os.Create(path) //#nosec G304 -- test helper writing into a temp dir
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()
	require.NoError(t, tiff.Encode(f, img, nil))
}
