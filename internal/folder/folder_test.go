package folder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitodo/kscript/internal/domain"
	kerrors "github.com/kitodo/kscript/internal/errors"
)

type dirLocator string

func (d dirLocator) ProcessDir(id int) string {
	return filepath.Join(string(d), "p", string(rune('0'+id)))
}

func TestResolve(t *testing.T) {
	p := &domain.Process{ID: 2, Title: "SecondProcess"}

	tests := []struct {
		name    string
		tmpl    string
		want    string
		wantErr bool
	}{
		{"plain", "jpgs/max", filepath.Join("jpgs", "max"), false},
		{"placeholder", "images/(processtitle)_media", filepath.Join("images", "SecondProcess_media"), false},
		{"twice", "(processtitle)/(processtitle)", filepath.Join("SecondProcess", "SecondProcess"), false},
		{"escapes", "../outside", "", true},
		{"absolute", "/etc", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.tmpl, p)
			if tt.wantErr {
				require.ErrorIs(t, err, kerrors.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_UsesCurrentTitle(t *testing.T) {
	p := &domain.Process{ID: 1, Title: "Before"}
	f := "scans/(processtitle)"
	p.Title = "After"
	got, err := Resolve(f, p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("scans", "After"), got)
}

func TestManager_CreateAll(t *testing.T) {
	root := t.TempDir()
	m := NewManager(dirLocator(root), zerolog.Nop())
	p := &domain.Process{ID: 1, Title: "FirstProcess"}
	project := &domain.Project{Folders: []domain.Folder{
		{Path: "jpgs/max"},
		{Path: "jpgs/thumbs"},
		{Path: "ocr/(processtitle)_txt"},
	}}

	paths, err := m.CreateAll(context.Background(), p, project)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	home := filepath.Join(root, "p", "1")
	assert.DirExists(t, filepath.Join(home, "jpgs", "max"))
	assert.DirExists(t, filepath.Join(home, "jpgs", "thumbs"))
	assert.DirExists(t, filepath.Join(home, "ocr", "FirstProcess_txt"))

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(home, "jpgs", "max", "keep.jpg"), []byte("x"), 0o600))
		_, err := m.CreateAll(context.Background(), p, project)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(home, "jpgs", "max", "keep.jpg"))
	})

	t.Run("bad template creates nothing", func(t *testing.T) {
		bad := &domain.Project{Folders: []domain.Folder{{Path: "new"}, {Path: "../x"}}}
		_, err := m.CreateAll(context.Background(), p, bad)
		require.ErrorIs(t, err, kerrors.ErrInvalidParameter)
		assert.NoDirExists(t, filepath.Join(home, "new"))
	})
}
