package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitodo/kscript/internal/script"
)

// AddActionsCommand adds the actions command to the root command.
func AddActionsCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the available script actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runActions(cmd.Context(), cmd, cmd.OutOrStdout())
		},
	}
	root.AddCommand(cmd)
}

// runActions prints every action with its required parameters.
func runActions(ctx context.Context, cmd *cobra.Command, w io.Writer) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	actions := script.Actions()
	if cmd.Flag("output").Value.String() == OutputJSON {
		return encodeJSONIndented(w, actions)
	}

	styles := newTableStyles()
	cols := []column{{"ACTION", 24}, {"PARAMETERS", 30}, {"MODE", 6}, {"DESCRIPTION", 60}}
	styles.writeHeader(w, cols)
	for _, a := range actions {
		mode := "sync"
		if a.Async {
			mode = "job"
		}
		params := strings.Join(a.Required, " ")
		if params == "" {
			params = "-"
		}
		row := []string{
			cell(a.Name, cols[0].width),
			cell(params, cols[1].width),
			cell(mode, cols[2].width),
			cell(a.Summary, cols[3].width),
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(row, " "), " "))
	}
	return nil
}
