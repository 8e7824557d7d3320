package cli

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitodo/kscript/internal/errors"
)

func TestAddGlobalFlags(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test"}
	AddGlobalFlags(cmd, &GlobalFlags{})

	outputFlag := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.Equal(t, OutputText, outputFlag.DefValue)

	for _, name := range []string{"verbose", "quiet", "config", "data-dir"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestAddGlobalFlags_ParsesCorrectly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		expected GlobalFlags
	}{
		{
			name:     "default values",
			args:     []string{},
			expected: GlobalFlags{Output: OutputText},
		},
		{
			name:     "output shorthand",
			args:     []string{"-o", "json"},
			expected: GlobalFlags{Output: OutputJSON},
		},
		{
			name:     "verbose shorthand",
			args:     []string{"-v"},
			expected: GlobalFlags{Output: OutputText, Verbose: true},
		},
		{
			name:     "quiet flag",
			args:     []string{"--quiet"},
			expected: GlobalFlags{Output: OutputText, Quiet: true},
		},
		{
			name:     "paths",
			args:     []string{"--config", "/etc/kscript.yaml", "--data-dir", "/srv/kitodo"},
			expected: GlobalFlags{Output: OutputText, ConfigFile: "/etc/kscript.yaml", DataDir: "/srv/kitodo"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			flags := &GlobalFlags{}
			cmd := &cobra.Command{
				Use:  "test",
				RunE: func(_ *cobra.Command, _ []string) error { return nil },
			}
			AddGlobalFlags(cmd, flags)

			cmd.SetArgs(tc.args)
			require.NoError(t, cmd.Execute())
			assert.Equal(t, tc.expected, *flags)
		})
	}
}

func TestAddGlobalFlags_VerboseAndQuietExclusive(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{
		Use:  "test",
		RunE: func(_ *cobra.Command, _ []string) error { return nil },
	}
	AddGlobalFlags(cmd, &GlobalFlags{})
	cmd.SetArgs([]string{"-v", "-q"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestApplyBoundFlags(t *testing.T) {
	t.Setenv("KSCRIPT_OUTPUT", "json")
	t.Setenv("KSCRIPT_VERBOSE", "true")

	flags := &GlobalFlags{}
	v := viper.New()
	cmd := &cobra.Command{Use: "test"}
	AddGlobalFlags(cmd, flags)
	require.NoError(t, BindGlobalFlags(v, cmd))

	applyBoundFlags(v, cmd, flags)
	assert.Equal(t, OutputJSON, flags.Output)
	assert.True(t, flags.Verbose)

	t.Run("command line wins", func(t *testing.T) {
		flags := &GlobalFlags{}
		v := viper.New()
		cmd := &cobra.Command{Use: "test"}
		AddGlobalFlags(cmd, flags)
		require.NoError(t, cmd.PersistentFlags().Set("output", "text"))
		require.NoError(t, BindGlobalFlags(v, cmd))

		applyBoundFlags(v, cmd, flags)
		assert.Equal(t, OutputText, flags.Output)
	})
}

func TestIsValidOutputFormat(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidOutputFormat(OutputText))
	assert.True(t, IsValidOutputFormat(OutputJSON))
	assert.False(t, IsValidOutputFormat("xml"))
	assert.False(t, IsValidOutputFormat(""))
	assert.Equal(t, []string{"text", "json"}, ValidOutputFormats())
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"parse error", fmt.Errorf("token 2: %w", errors.ErrParse), ExitInvalidInput},
		{"missing parameter", errors.ErrMissingParameter, ExitInvalidInput},
		{"unknown action", errors.ErrUnknownAction, ExitInvalidInput},
		{"invalid output", errors.ErrInvalidOutputFormat, ExitInvalidInput},
		{"explicit exit code 2", errors.NewExitCode2Error(errors.ErrInvalidParameter), ExitInvalidInput},
		{"cobra unknown flag", fmt.Errorf("unknown flag: --nope"), ExitInvalidInput}, //nolint:err113 // mimics cobra
		{"process failure", fmt.Errorf("process 3: %w", errors.ErrProcessNotFound), ExitError},
		{"job failure", errors.ErrNoImages, ExitError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ExitCodeForError(tc.err))
		})
	}
}
