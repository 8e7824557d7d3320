package script_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/domain"
	kerrors "github.com/kitodo/kscript/internal/errors"
	"github.com/kitodo/kscript/internal/folder"
	"github.com/kitodo/kscript/internal/imaging"
	"github.com/kitodo/kscript/internal/jobs"
	"github.com/kitodo/kscript/internal/script"
	"github.com/kitodo/kscript/internal/search"
	"github.com/kitodo/kscript/internal/store"
	"github.com/kitodo/kscript/internal/testutil"
)

type harness struct {
	store *store.FileStore
	jobs  *jobs.Registry
	index *search.Index
	svc   *script.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	testutil.SeedWorkflow(t, st)

	reg := jobs.NewRegistry(logger)
	t.Cleanup(func() { _ = reg.Close() })

	idx := search.NewIndex(20*time.Millisecond, logger)
	idx.Start(ctx)
	t.Cleanup(idx.Close)
	require.NoError(t, idx.Rebuild(ctx, st))

	svc := script.NewService(st, reg, idx, folder.NewManager(st, logger), imaging.NewGenerator(logger), logger)
	return &harness{store: st, jobs: reg, index: idx, svc: svc}
}

func (h *harness) run(t *testing.T, text string, ids ...int) *script.Report {
	t.Helper()
	report, err := h.svc.Execute(context.Background(), ids, text)
	require.NoError(t, err)
	require.Len(t, report.Results, len(ids))
	return report
}

func (h *harness) process(t *testing.T, id int) *domain.Process {
	t.Helper()
	p, err := h.store.GetProcess(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (h *harness) task(t *testing.T, id int, title string) *domain.Task {
	t.Helper()
	task := h.process(t, id).TaskByTitle(title)
	require.NotNil(t, task, title)
	return task
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestExecute_CreateFolders(t *testing.T) {
	h := newHarness(t)

	report := h.run(t, "action:createFolders", testutil.FirstProcessID)
	require.NoError(t, report.Err())

	dir := h.store.ProcessDir(testutil.FirstProcessID)
	assert.DirExists(t, filepath.Join(dir, "jpgs", "max"))
	assert.DirExists(t, filepath.Join(dir, "jpgs", "thumbs"))
	assert.DirExists(t, filepath.Join(dir, "ocr", "FirstProcess_txt"))

	report = h.run(t, "action:createFolders", testutil.FirstProcessID)
	require.NoError(t, report.Err(), "existing folders are fine")
}

func TestExecute_AddRoleIsIdempotent(t *testing.T) {
	h := newHarness(t)
	text := `action:addRole "tasktitle:Progress" role:General`

	first := h.run(t, text, testutil.FirstProcessID)
	require.NoError(t, first.Err())
	assert.True(t, first.Results[0].Changed)

	second := h.run(t, text, testutil.FirstProcessID)
	require.NoError(t, second.Err())
	assert.False(t, second.Results[0].Changed)

	assert.Equal(t, []string{"Admin", "General"}, h.task(t, testutil.FirstProcessID, "Progress").Roles)
}

func TestExecute_AddRoleErrors(t *testing.T) {
	h := newHarness(t)

	report := h.run(t, `action:addRole "tasktitle:Progress" role:Nobody`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrRoleNotFound)

	report = h.run(t, `action:addRole "tasktitle:Missing" role:General`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrTaskNotFound)

	report = h.run(t, `action:addRole "tasktitle:progress" role:General`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrTaskNotFound, "titles match exactly")
}

func TestExecute_DeleteRole(t *testing.T) {
	h := newHarness(t)

	report := h.run(t, `action:deleteRole "tasktitle:Closed" role:Admin`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	assert.True(t, report.Results[0].Changed)
	assert.Empty(t, h.task(t, testutil.FirstProcessID, "Closed").Roles)

	report = h.run(t, `action:deleteRole "tasktitle:Closed" role:Admin`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	assert.False(t, report.Results[0].Changed)
}

func TestExecute_SetStepStatus(t *testing.T) {
	h := newHarness(t)

	report := h.run(t, `action:setStepStatus "tasktitle:Progress" status:3`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	assert.Equal(t, constants.TaskStatusDone, h.task(t, testutil.FirstProcessID, "Progress").Status)

	before := h.task(t, testutil.FirstProcessID, "Open").Status
	require.Equal(t, constants.TaskStatusOpen, before)

	for _, bad := range []string{"5", "-1", "done", ""} {
		t.Run("status "+bad, func(t *testing.T) {
			report := h.run(t, `action:setStepStatus "tasktitle:Open" "status:`+bad+`"`, testutil.FirstProcessID)
			require.ErrorIs(t, report.Err(), kerrors.ErrInvalidStatus)
			assert.Equal(t, before, h.task(t, testutil.FirstProcessID, "Open").Status)
		})
	}
}

func TestExecute_SetStepNumber(t *testing.T) {
	h := newHarness(t)

	report := h.run(t, `action:setStepNumber "tasktitle:Closed" number:9`, testutil.FirstProcessID)
	require.NoError(t, report.Err())

	p := h.process(t, testutil.FirstProcessID)
	require.Len(t, p.Tasks, 3)
	assert.Equal(t, "Closed", p.Tasks[2].Title)
	assert.Equal(t, 9, p.Tasks[2].Ordering)

	report = h.run(t, `action:setStepNumber "tasktitle:Closed" number:-2`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrInvalidParameter)
}

func TestExecute_DeleteStep(t *testing.T) {
	h := newHarness(t)

	report := h.run(t, `action:deleteStep "tasktitle:Open"`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	assert.Nil(t, h.process(t, testutil.FirstProcessID).TaskByTitle("Open"))

	report = h.run(t, `action:deleteStep "tasktitle:Open"`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrTaskNotFound)
}

func TestExecute_AddShellScriptToStep(t *testing.T) {
	h := newHarness(t)

	report := h.run(t, `action:addShellScriptToStep "tasktitle:Progress" "label:script" "script:/usr/local/bin/check images.sh"`,
		testutil.FirstProcessID)
	require.NoError(t, report.Err())

	task := h.task(t, testutil.FirstProcessID, "Progress")
	assert.Equal(t, "script", task.ScriptName)
	assert.Equal(t, "/usr/local/bin/check images.sh", task.ScriptPath)

	report = h.run(t, `action:addShellScriptToStep "tasktitle:Progress" label:other script:/bin/true`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	task = h.task(t, testutil.FirstProcessID, "Progress")
	assert.Equal(t, "other", task.ScriptName)
	assert.Equal(t, "/bin/true", task.ScriptPath)
}

func TestExecute_SetTaskProperty(t *testing.T) {
	h := newHarness(t)

	report := h.run(t, `action:setTaskProperty "tasktitle:Closed" property:validate value:true`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	assert.True(t, h.task(t, testutil.FirstProcessID, "Closed").Properties.TypeCloseVerify)

	report = h.run(t, `action:setTaskProperty "tasktitle:Closed" property:validate value:invalid`, testutil.FirstProcessID)
	require.NoError(t, report.Err(), "a non-boolean value is not an error")
	assert.False(t, h.task(t, testutil.FirstProcessID, "Closed").Properties.TypeCloseVerify)

	report = h.run(t, `action:setTaskProperty "tasktitle:Open" property:automatic value:invalid`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	assert.False(t, h.task(t, testutil.FirstProcessID, "Open").Properties.TypeAutomatic)

	report = h.run(t, `action:setTaskProperty "tasktitle:Closed" property:colour value:true`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrInvalidParameter)
}

func TestExecute_GenerateImages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	project := testutil.Project()
	project.GeneratorSource = &domain.Folder{Path: "images/(processtitle)_media", MimeType: "image/tiff"}
	require.NoError(t, h.store.SaveProject(ctx, project))

	dir := h.store.ProcessDir(testutil.FirstProcessID)
	testutil.WriteTIFF(t, filepath.Join(dir, "images", "FirstProcess_media", "00000001.tif"), 64, 48)

	report := h.run(t, `action:generateImages "folders:jpgs/max,jpgs/thumbs" images:all`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	require.Len(t, report.Jobs, 1)
	job := report.Jobs[0]
	assert.Same(t, job, report.Results[0].Job)
	assert.False(t, report.Results[0].Changed)

	require.Eventually(t, func() bool { return !job.IsStoppable() }, 10*time.Second, 10*time.Millisecond)
	require.NoError(t, job.Wait(ctx))
	assert.Equal(t, constants.JobStateFinished, job.State())

	assert.FileExists(t, filepath.Join(dir, "jpgs", "max", "00000001.jpg"))
	assert.FileExists(t, filepath.Join(dir, "jpgs", "thumbs", "00000001.jpg"))

	require.NotEmpty(t, h.jobs.List())
	h.jobs.StopAndDeleteAll()
	assert.Empty(t, h.jobs.List())
}

// gatedGenerator holds every Generate call until release is closed.
type gatedGenerator struct {
	next    script.ImageGenerator
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedGenerator) Generate(ctx context.Context, req imaging.Request, progress imaging.ProgressFunc) (imaging.Result, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return imaging.Result{}, ctx.Err()
	}
	return g.next.Generate(ctx, req, progress)
}

func TestExecute_GenerateImagesReturnsBeforeImagesExist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	logger := zerolog.Nop()

	gen := &gatedGenerator{
		next:    imaging.NewGenerator(logger),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := script.NewService(h.store, h.jobs, h.index, folder.NewManager(h.store, logger), gen, logger)

	project := testutil.Project()
	project.GeneratorSource = &domain.Folder{Path: "images/(processtitle)_media", MimeType: "image/tiff"}
	require.NoError(t, h.store.SaveProject(ctx, project))

	dir := h.store.ProcessDir(testutil.FirstProcessID)
	testutil.WriteTIFF(t, filepath.Join(dir, "images", "FirstProcess_media", "00000001.tif"), 64, 48)
	output := filepath.Join(dir, "jpgs", "max", "00000001.jpg")

	report, err := svc.Execute(ctx, []int{testutil.FirstProcessID}, `action:generateImages "folders:jpgs/max" images:all`)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Len(t, report.Jobs, 1)
	job := report.Jobs[0]

	assert.True(t, job.IsStartable() || job.IsStoppable(), "job is still pending")
	assert.NoFileExists(t, output)

	<-gen.started
	assert.True(t, job.IsStoppable())
	assert.NoFileExists(t, output)

	close(gen.release)
	require.NoError(t, job.Wait(waitCtx(t)))
	assert.Equal(t, constants.JobStateFinished, job.State())
	assert.FileExists(t, output)
}

func TestExecute_ConcurrentAddDataKeepsEveryEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := h.svc.Execute(ctx, []int{testutil.SecondProcessID}, "action:addData Batch=x")
			if err == nil {
				err = report.Err()
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int
	for _, e := range h.process(t, testutil.SecondProcessID).Metadata {
		if e.Key == "Batch" {
			count++
		}
	}
	assert.Equal(t, workers, count)
}

func TestExecute_GenerateImagesErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	report := h.run(t, `action:generateImages "folders:jpgs/max" images:all`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrFolderNotFound, "project has no generator source")

	project := testutil.Project()
	project.GeneratorSource = &domain.Folder{Path: "images", MimeType: "image/tiff"}
	require.NoError(t, h.store.SaveProject(ctx, project))

	report = h.run(t, `action:generateImages "folders:jpgs/medium" images:all`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrFolderNotFound)

	report = h.run(t, `action:generateImages "folders:jpgs/max" images:some`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrInvalidParameter)

	report = h.run(t, `action:generateImages "folders: , " images:all`, testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrInvalidParameter)

	assert.Empty(t, h.jobs.List())

	// No source images: the job is submitted and fails in the background.
	report = h.run(t, `action:generateImages "folders:jpgs/max"`, testutil.FirstProcessID)
	require.NoError(t, report.Err())
	require.Len(t, report.Jobs, 1)
	require.ErrorIs(t, report.Jobs[0].Wait(ctx), kerrors.ErrNoImages)
	assert.Equal(t, constants.JobStateFailed, report.Jobs[0].State())
}

func TestExecute_AddDataIsAdditive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const key, value = "LegalNoteAndTermsOfUse", "PDM1.0"

	assert.Empty(t, h.index.Hits(key, value))

	report := h.run(t, "action:addData "+key+"="+value, testutil.SecondProcessID)
	require.NoError(t, report.Err())
	require.Eventually(t, func() bool { return len(h.index.Hits(key, value)) == 1 },
		5*time.Second, 10*time.Millisecond)

	report = h.run(t, "action:addData "+key+"="+value, testutil.SecondProcessID)
	require.NoError(t, report.Err())
	require.NoError(t, h.index.Flush(ctx))
	assert.Len(t, h.index.Hits(key, value), 2)
	assert.Equal(t, []int{testutil.SecondProcessID}, h.index.FindProcesses(map[string]string{key: value}))

	// Existing entries are kept.
	v, ok := h.process(t, testutil.SecondProcessID).MetadataValue("PublicationYear")
	assert.True(t, ok)
	assert.Equal(t, "1901", v)
}

func TestExecute_AddDataReferences(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	report := h.run(t, "action:addData TSL_ATS=@TSL_ATS Title=@processtitle Main=@TitleDocMain", testutil.SecondProcessID)
	require.NoError(t, report.Err())
	require.NoError(t, h.index.Flush(ctx))

	assert.Len(t, h.index.Hits("TSL_ATS", "Proc"), 1)
	assert.Len(t, h.index.Hits("Title", "Process two"), 1)
	assert.Len(t, h.index.Hits("Main", "Second process"), 1)

	before := h.process(t, testutil.FirstProcessID).Metadata
	report = h.run(t, "action:addData Ok=yes Copy=@NoSuchField", testutil.FirstProcessID)
	require.ErrorIs(t, report.Err(), kerrors.ErrMetadataNotFound)
	assert.Equal(t, before, h.process(t, testutil.FirstProcessID).Metadata, "nothing is added on a bad reference")
}

func TestExecute_DeleteAndOverwriteData(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "action:addData Licence=CC0 Licence=PDM1.0", testutil.SecondProcessID).Err())

	require.NoError(t, h.run(t, "action:deleteData Licence=CC0", testutil.SecondProcessID).Err())
	p := h.process(t, testutil.SecondProcessID)
	v, _ := p.MetadataValue("Licence")
	assert.Equal(t, "PDM1.0", v)

	require.NoError(t, h.run(t, "action:overwriteData PublicationYear=1902", testutil.SecondProcessID).Err())
	v, _ = h.process(t, testutil.SecondProcessID).MetadataValue("PublicationYear")
	assert.Equal(t, "1902", v)

	report := h.run(t, "action:deleteData Licence PublicationYear", testutil.SecondProcessID)
	require.NoError(t, report.Err())
	assert.True(t, report.Results[0].Changed)
	p = h.process(t, testutil.SecondProcessID)
	_, ok := p.MetadataValue("Licence")
	assert.False(t, ok)
	_, ok = p.MetadataValue("PublicationYear")
	assert.False(t, ok)

	report = h.run(t, "action:deleteData Licence", testutil.SecondProcessID)
	require.NoError(t, report.Err())
	assert.False(t, report.Results[0].Changed)
}

func TestExecute_PerProcessIsolation(t *testing.T) {
	h := newHarness(t)

	// Process 2 has no "Closed" task and process 99 does not exist.
	report := h.run(t, `action:setStepStatus "tasktitle:Closed" status:4`,
		testutil.SecondProcessID, 99, testutil.FirstProcessID)

	assert.Equal(t, 2, report.Failed())
	require.ErrorIs(t, report.Results[0].Err, kerrors.ErrTaskNotFound)
	require.ErrorIs(t, report.Results[1].Err, kerrors.ErrProcessNotFound)
	require.NoError(t, report.Results[2].Err)

	err := report.Err()
	require.ErrorIs(t, err, kerrors.ErrTaskNotFound)
	require.ErrorIs(t, err, kerrors.ErrProcessNotFound)
	assert.Contains(t, err.Error(), "process 99")

	assert.Equal(t, constants.TaskStatusError, h.task(t, testutil.FirstProcessID, "Closed").Status)
}

func TestExecute_ParseErrorTouchesNothing(t *testing.T) {
	h := newHarness(t)
	before := h.process(t, testutil.FirstProcessID)

	report, err := h.svc.Execute(context.Background(), []int{testutil.FirstProcessID}, `action:addRole role:General`)
	require.ErrorIs(t, err, kerrors.ErrMissingParameter)
	assert.Nil(t, report)

	_, err = h.svc.Execute(context.Background(), []int{testutil.FirstProcessID}, `action:dropTables`)
	require.ErrorIs(t, err, kerrors.ErrUnknownAction)

	assert.Equal(t, before, h.process(t, testutil.FirstProcessID))
}

func TestExecute_CanceledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.svc.Execute(ctx, []int{testutil.FirstProcessID, testutil.SecondProcessID}, "action:addData a=b")
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Results)
	assert.Equal(t, script.ActionAddData, report.Action)
}
