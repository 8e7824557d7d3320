package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// versionOutput is the JSON output of the version command.
type versionOutput struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// AddVersionCommand adds the version command to the root command.
func AddVersionCommand(root *cobra.Command, info BuildInfo) {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if cmd.Flag("output").Value.String() == OutputJSON {
				if info.Version == "" {
					info.Version = "dev"
				}
				return encodeJSONIndented(w, versionOutput{
					Version:   info.Version,
					Commit:    info.Commit,
					Date:      info.Date,
					GoVersion: runtime.Version(),
				})
			}
			_, err := fmt.Fprintf(w, "kscript %s\n", formatVersion(info))
			return err
		},
	}
	root.AddCommand(cmd)
}
