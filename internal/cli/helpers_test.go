package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kitodo/kscript/internal/store"
	"github.com/kitodo/kscript/internal/testutil"
)

// setupDataDir seeds the workflow fixtures into a fresh data directory and
// points HOME and KSCRIPT_HOME at a temp dir so no user files are read or
// written. Tests using it must not run in parallel.
func setupDataDir(t *testing.T) (*store.FileStore, string) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(homeEnv, filepath.Join(home, ".kscript"))
	t.Cleanup(CloseLogFile)

	dir := filepath.Join(t.TempDir(), "data")
	st, err := store.NewFileStore(dir)
	require.NoError(t, err)
	testutil.SeedWorkflow(t, st)
	return st, dir
}

// executeCmd runs the root command with args and returns its stdout.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{Version: "test"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}
