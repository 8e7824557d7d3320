package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/domain"
	"github.com/kitodo/kscript/internal/errors"
)

// processSummary is one row of `process list`.
type processSummary struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	ProjectID int    `json:"project_id"`
	Tasks     int    `json:"tasks"`
	Current   string `json:"current_task,omitempty"`
	Metadata  int    `json:"metadata"`
}

// processDetail is the JSON output of `process show`.
type processDetail struct {
	*domain.Process
	Metadata []domain.MetadataEntry `json:"metadata"`
}

// AddProcessCommand adds the process command group to the root command.
func AddProcessCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Inspect stored processes",
		Long: `Inspect the processes in the data directory.

Examples:
  kscript process list
  kscript process show 12 --output json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProcessList(cmd.Context(), cmd, cmd.OutOrStdout(), flags)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show the tasks and metadata of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcessShow(cmd.Context(), cmd, cmd.OutOrStdout(), flags, args[0])
		},
	})

	root.AddCommand(cmd)
}

// runProcessList executes `process list`.
func runProcessList(ctx context.Context, cmd *cobra.Command, w io.Writer, flags *GlobalFlags) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outputFormat := cmd.Flag("output").Value.String()

	a, err := newApp(ctx, flags)
	if err != nil {
		if outputFormat == OutputJSON {
			return outputJSONError(w, err)
		}
		return err
	}
	defer a.close()

	list, err := a.store.ListProcesses(ctx)
	if err != nil {
		return err
	}

	rows := make([]processSummary, 0, len(list))
	for _, p := range list {
		rows = append(rows, summarize(p))
	}

	if outputFormat == OutputJSON {
		return encodeJSONIndented(w, rows)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintf(w, "No processes in %s.\n", a.cfg.DataDir)
		return nil
	}

	styles := newTableStyles()
	cols := []column{{"ID", 6}, {"TITLE", 32}, {"PROJECT", 8}, {"TASKS", 6}, {"CURRENT TASK", 24}, {"METADATA", 8}}
	styles.writeHeader(w, cols)
	for _, r := range rows {
		current := r.Current
		if current == "" {
			current = "-"
		}
		row := []string{
			cell(strconv.Itoa(r.ID), cols[0].width),
			cell(r.Title, cols[1].width),
			cell(strconv.Itoa(r.ProjectID), cols[2].width),
			cell(strconv.Itoa(r.Tasks), cols[3].width),
			cell(current, cols[4].width),
			cell(strconv.Itoa(r.Metadata), cols[5].width),
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(row, " "), " "))
	}
	return nil
}

// summarize builds the list row of a process. The current task is the
// first one that is not done.
func summarize(p *domain.Process) processSummary {
	s := processSummary{
		ID:        p.ID,
		Title:     p.Title,
		ProjectID: p.ProjectID,
		Tasks:     len(p.Tasks),
		Metadata:  len(p.Metadata),
	}
	for _, t := range p.Tasks {
		if t.Status != constants.TaskStatusDone {
			s.Current = t.Title
			break
		}
	}
	return s
}

// runProcessShow executes `process show`.
func runProcessShow(ctx context.Context, cmd *cobra.Command, w io.Writer, flags *GlobalFlags, arg string) error {
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

	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return fail(errors.NewExitCode2Error(
			errors.Wrapf(errors.ErrInvalidParameter, "process ID %q must be a positive integer", arg)))
	}

	a, err := newApp(ctx, flags)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	p, err := a.store.GetProcess(ctx, id)
	if err != nil {
		return fail(err)
	}

	if outputFormat == OutputJSON {
		metadata := p.Metadata
		if metadata == nil {
			metadata = []domain.MetadataEntry{}
		}
		return encodeJSONIndented(w, processDetail{Process: p, Metadata: metadata})
	}

	displayProcess(w, p)
	return nil
}

// displayProcess prints a process with its task and metadata tables.
func displayProcess(w io.Writer, p *domain.Process) {
	styles := newTableStyles()

	_, _ = fmt.Fprintf(w, "%s %d  %s\n", styles.header.Render("Process"), p.ID, p.Title)
	_, _ = fmt.Fprintf(w, "Project: %d\n\n", p.ProjectID)

	if len(p.Tasks) == 0 {
		_, _ = fmt.Fprintln(w, styles.dim.Render("No tasks."))
	} else {
		cols := []column{{"#", 4}, {"TASK", 28}, {"STATUS", 12}, {"ROLES", 30}, {"SCRIPT", 20}}
		styles.writeHeader(w, cols)
		for _, t := range p.Tasks {
			row := []string{
				cell(strconv.Itoa(t.Ordering), cols[0].width),
				cell(t.Title, cols[1].width),
				styles.status(t.Status, cols[2].width),
				cell(strings.Join(t.Roles, ", "), cols[3].width),
				cell(t.ScriptName, cols[4].width),
			}
			_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(row, " "), " "))
		}
	}

	_, _ = fmt.Fprintln(w)
	if len(p.Metadata) == 0 {
		_, _ = fmt.Fprintln(w, styles.dim.Render("No metadata."))
		return
	}
	cols := []column{{"KEY", 28}, {"VALUE", 50}}
	styles.writeHeader(w, cols)
	for _, e := range p.Metadata {
		_, _ = fmt.Fprintln(w, strings.TrimRight(cell(e.Key, cols[0].width)+" "+cell(e.Value, cols[1].width), " "))
	}
}
