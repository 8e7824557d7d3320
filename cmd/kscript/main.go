// Package main provides the entry point for the kscript CLI.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/kitodo/kscript/internal/cli"
	"github.com/kitodo/kscript/internal/errors"
)

// Set at build time via ldflags.
var (
	version = "" //nolint:gochecknoglobals // Set by ldflags
	commit  = "" //nolint:gochecknoglobals // Set by ldflags
	date    = "" //nolint:gochecknoglobals // Set by ldflags
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	cli.CloseLogFile()

	if err != nil {
		if !stderrors.Is(err, errors.ErrJSONErrorOutput) {
			printError(err)
		}
		os.Exit(cli.ExitCodeForError(err))
	}
}

// printError writes err and, when known, a suggested action to stderr.
func printError(err error) {
	msg, action := errors.Actionable(err)
	_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if msg != "" && msg != err.Error() {
		_, _ = fmt.Fprintf(os.Stderr, "  %s\n", msg)
	}
	if action != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  → %s\n", action)
	}
}
