package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/errors"
	"github.com/kitodo/kscript/internal/jobs"
	"github.com/kitodo/kscript/internal/script"
	"github.com/kitodo/kscript/internal/signal"
)

// runOptions contains the options for the run command.
type runOptions struct {
	processIDs []int
	all        bool
	query      []string
	wait       bool
	timeout    time.Duration
}

// runResult is the JSON shape of one per-process result.
type runResult struct {
	ProcessID int    `json:"process_id"`
	Changed   bool   `json:"changed"`
	JobID     string `json:"job_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// runOutput is the JSON output of the run command.
type runOutput struct {
	Action  string      `json:"action"`
	Results []runResult `json:"results"`
	Jobs    []jobs.Info `json:"jobs"`
	Failed  int         `json:"failed"`
}

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command, flags *GlobalFlags) {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Run a KitodoScript command against processes",
		Long: `Parse a KitodoScript command and apply it to each selected process.

Processes are selected by ID (--process), by metadata (--query KEY=VALUE)
or all at once (--all). A failure on one process does not stop the others.
Image generation runs as background jobs; by default the command waits
for them to finish.

Examples:
  kscript run "action:setStepStatus tasktitle:Scanning status:3" -p 1,2,3
  kscript run "action:addRole tasktitle:Scanning role:General" --all
  kscript run "action:generateImages folders:jpgs/max images:all" --query CatalogIDDigital=PPN123
  kscript run "action:deleteData Language=lat" -p 4 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), cmd, cmd.OutOrStdout(), flags, opts, args[0])
		},
	}

	cmd.Flags().IntSliceVarP(&opts.processIDs, "process", "p", nil, "process IDs to run the script on")
	cmd.Flags().BoolVar(&opts.all, "all", false, "run the script on every process")
	cmd.Flags().StringArrayVar(&opts.query, "query", nil, "select processes by metadata (KEY=VALUE, repeatable)")
	cmd.Flags().BoolVar(&opts.wait, "wait", true, "wait for background jobs to finish")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", constants.DefaultRunTimeout, "maximum time to wait for background jobs")
	cmd.MarkFlagsMutuallyExclusive("process", "all", "query")

	root.AddCommand(cmd)
}

// runRun executes the run command.
func runRun(ctx context.Context, cmd *cobra.Command, w io.Writer, flags *GlobalFlags, opts *runOptions, src string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outputFormat := cmd.Flag("output").Value.String()
	fail := func(err error) error {
		if outputFormat == OutputJSON {
			return outputJSONError(w, err)
		}
		return err
	}

	// Reject bad scripts before touching the data directory.
	if _, err := script.Parse(src); err != nil {
		return fail(err)
	}

	a, err := newApp(ctx, flags)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	ids, err := selectProcesses(ctx, a, opts)
	if err != nil {
		return fail(err)
	}

	handler := signal.NewHandler(ctx)
	defer handler.Stop()
	runCtx := handler.Context()

	report, execErr := a.service.Execute(runCtx, ids, src)
	if report == nil {
		return fail(execErr)
	}

	var waitErr error
	if opts.wait && len(report.Jobs) > 0 {
		waitErr = waitForJobs(runCtx, a, opts.timeout)
	}

	if outputFormat == OutputJSON {
		if err := encodeJSONIndented(w, buildRunOutput(report)); err != nil {
			return err
		}
	} else {
		displayRunReport(w, report, opts.wait)
	}

	if handler.WasInterrupted() {
		return fmt.Errorf("interrupted: %w", context.Canceled)
	}
	return stderrors.Join(execErr, report.Err(), waitErr)
}

// selectProcesses resolves the process IDs the script runs on.
func selectProcesses(ctx context.Context, a *app, opts *runOptions) ([]int, error) {
	switch {
	case opts.all:
		list, err := a.store.ListProcesses(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]int, 0, len(list))
		for _, p := range list {
			ids = append(ids, p.ID)
		}
		return ids, nil

	case len(opts.query) > 0:
		query, err := parseQuery(opts.query)
		if err != nil {
			return nil, err
		}
		ids := a.index.FindProcesses(query)
		if len(ids) == 0 {
			return nil, errors.NewExitCode2Error(
				errors.Wrapf(errors.ErrInvalidParameter, "no process matches %s", strings.Join(opts.query, ", ")))
		}
		return ids, nil

	case len(opts.processIDs) > 0:
		return opts.processIDs, nil

	default:
		return nil, errors.NewExitCode2Error(
			errors.Wrap(errors.ErrInvalidParameter, "select processes with --process, --query or --all"))
	}
}

// waitForJobs blocks until every submitted job exits, the timeout passes or
// the run is interrupted. Jobs still running at that point are stopped.
func waitForJobs(ctx context.Context, a *app, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := a.jobs.WaitAll(waitCtx)
	if waitCtx.Err() != nil {
		a.logger.Warn().Dur("timeout", timeout).Msg("stopping background jobs that did not finish")
		for _, job := range a.jobs.List() {
			job.Stop()
		}
		if stderrors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("background jobs did not finish within %s: %w", timeout, err)
		}
	}
	return err
}

// buildRunOutput converts a report into its JSON shape.
func buildRunOutput(report *script.Report) runOutput {
	out := runOutput{
		Action:  report.Action.String(),
		Results: make([]runResult, 0, len(report.Results)),
		Jobs:    make([]jobs.Info, 0, len(report.Jobs)),
		Failed:  report.Failed(),
	}
	for _, res := range report.Results {
		r := runResult{ProcessID: res.ProcessID, Changed: res.Changed}
		if res.Job != nil {
			r.JobID = res.Job.ID()
		}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		out.Results = append(out.Results, r)
	}
	for _, job := range report.Jobs {
		out.Jobs = append(out.Jobs, job.Info())
	}
	return out
}

// displayRunReport prints one line per process and a table of jobs.
func displayRunReport(w io.Writer, report *script.Report, waited bool) {
	styles := newTableStyles()

	_, _ = fmt.Fprintf(w, "%s %s\n", styles.header.Render("Action:"), report.Action)
	for _, res := range report.Results {
		var outcome string
		switch {
		case res.Err != nil:
			outcome = "error: " + errors.UserMessage(res.Err)
		case res.Job != nil:
			outcome = "job " + shortID(res.Job.ID())
		case res.Changed:
			outcome = "changed"
		default:
			outcome = styles.dim.Render("unchanged")
		}
		_, _ = fmt.Fprintf(w, "  process %-6d %s\n", res.ProcessID, outcome)
	}

	if len(report.Jobs) > 0 {
		_, _ = fmt.Fprintln(w)
		displayJobs(w, styles, report.Jobs)
		if !waited {
			_, _ = fmt.Fprintln(w, styles.dim.Render("Jobs are stopped when kscript exits; use --wait to let them finish."))
		}
	}

	if failed := report.Failed(); failed > 0 {
		_, _ = fmt.Fprintf(w, "\n%d of %d processes failed\n", failed, len(report.Results))
	}
}

// displayJobs prints jobs as a table ordered by process ID.
func displayJobs(w io.Writer, styles *tableStyles, list []*jobs.Job) {
	infos := make([]jobs.Info, 0, len(list))
	for _, job := range list {
		infos = append(infos, job.Info())
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].ProcessID < infos[j].ProcessID })

	cols := []column{{"JOB", 10}, {"NAME", 18}, {"PROCESS", 8}, {"STATE", 10}, {"PROGRESS", 10}, {"ERROR", 40}}
	styles.writeHeader(w, cols)
	for _, info := range infos {
		progress := "-"
		if info.Total > 0 {
			progress = fmt.Sprintf("%d/%d", info.Completed, info.Total)
		}
		row := []string{
			cell(shortID(info.ID), cols[0].width),
			cell(info.Name, cols[1].width),
			cell(fmt.Sprint(info.ProcessID), cols[2].width),
			styles.jobState(info.State, cols[3].width),
			cell(progress, cols[4].width),
			cell(info.Error, cols[5].width),
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(row, " "), " "))
	}
}

// shortID returns the first segment of a job UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
