package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitodo/kscript/internal/errors"
)

// searchOutput is the JSON output of the search command.
type searchOutput struct {
	Query     map[string]string `json:"query"`
	Processes []int             `json:"processes"`
	Hits      int               `json:"hits"`
}

// AddSearchCommand adds the search command to the root command.
func AddSearchCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "search KEY=VALUE...",
		Short: "Find processes by metadata",
		Long: `Find the processes whose metadata contains every given KEY=VALUE pair.

Matching is exact and case-sensitive. The hit count is the number of
matching metadata entries, so a process carrying a value twice counts twice.

Examples:
  kscript search TitleDocMain=Faust
  kscript search PublicationYear=1808 Language=ger --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, cmd.OutOrStdout(), flags, args)
		},
	}
	root.AddCommand(cmd)
}

// runSearch executes the search command.
func runSearch(ctx context.Context, cmd *cobra.Command, w io.Writer, flags *GlobalFlags, args []string) error {
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

	query, err := parseQuery(args)
	if err != nil {
		return fail(err)
	}

	a, err := newApp(ctx, flags)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	ids := a.index.FindProcesses(query)
	matched := make(map[int]bool, len(ids))
	for _, id := range ids {
		matched[id] = true
	}
	hits := 0
	for k, v := range query {
		for _, h := range a.index.Hits(k, v) {
			if matched[h.ProcessID] {
				hits++
			}
		}
	}

	out := searchOutput{Query: query, Processes: ids, Hits: hits}
	if out.Processes == nil {
		out.Processes = []int{}
	}

	if outputFormat == OutputJSON {
		return encodeJSONIndented(w, out)
	}

	if len(ids) == 0 {
		_, _ = fmt.Fprintln(w, "No matching processes.")
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = fmt.Sprint(id)
	}
	_, _ = fmt.Fprintf(w, "%d processes, %d hits\n", len(ids), hits)
	_, _ = fmt.Fprintln(w, strings.Join(strs, ","))
	return nil
}

// parseQuery converts KEY=VALUE arguments into a query map. The value may
// itself contain '='.
func parseQuery(args []string) (map[string]string, error) {
	query := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.NewExitCode2Error(
				errors.Wrapf(errors.ErrInvalidParameter, "query %q must have the form KEY=VALUE", arg))
		}
		query[key] = value
	}
	return query, nil
}
