package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kitodo/kscript/internal/constants"
	"github.com/kitodo/kscript/internal/errors"
)

// checkNoColor switches lipgloss to plain text when NO_COLOR is set
// (any value, including empty) or TERM=dumb.
func checkNoColor() {
	if !hasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// hasColorSupport follows https://no-color.org/.
func hasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// tableStyles holds lipgloss styles for table rendering.
type tableStyles struct {
	header      lipgloss.Style
	dim         lipgloss.Style
	statusColor map[constants.TaskStatus]lipgloss.AdaptiveColor
	jobColor    map[constants.JobState]lipgloss.AdaptiveColor
}

// newTableStyles creates the styles shared by the table outputs.
func newTableStyles() *tableStyles {
	gray := lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}
	blue := lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}
	green := lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00D700"}
	red := lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	return &tableStyles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		dim: lipgloss.NewStyle().Foreground(gray),
		statusColor: map[constants.TaskStatus]lipgloss.AdaptiveColor{
			constants.TaskStatusLocked: gray,
			constants.TaskStatusOpen:   blue,
			constants.TaskStatusInWork: blue,
			constants.TaskStatusDone:   green,
			constants.TaskStatusError:  red,
		},
		jobColor: map[constants.JobState]lipgloss.AdaptiveColor{
			constants.JobStateStartable: gray,
			constants.JobStateRunning:   blue,
			constants.JobStateFinished:  green,
			constants.JobStateStopped:   gray,
			constants.JobStateFailed:    red,
		},
	}
}

// column describes one table column.
type column struct {
	title string
	width int
}

// cell pads or truncates s to width display columns.
func cell(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// styledCell renders s in style, padded to width.
func styledCell(style lipgloss.Style, s string, width int) string {
	return style.Render(cell(s, width))
}

// writeHeader prints the header row for cols.
func (s *tableStyles) writeHeader(w io.Writer, cols []column) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = cell(c.title, c.width)
	}
	_, _ = fmt.Fprintln(w, s.header.Render(strings.Join(parts, " ")))
}

// status renders a task status label in its color.
func (s *tableStyles) status(st constants.TaskStatus, width int) string {
	return styledCell(lipgloss.NewStyle().Foreground(s.statusColor[st]), statusLabel(st), width)
}

// jobState renders a job state in its color.
func (s *tableStyles) jobState(st constants.JobState, width int) string {
	return styledCell(lipgloss.NewStyle().Foreground(s.jobColor[st]), titleCase(st.String()), width)
}

// titleCase upper-cases the first letter of each word for display.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// statusLabel returns the display label of a task status, e.g. "Done (3)".
func statusLabel(st constants.TaskStatus) string {
	return fmt.Sprintf("%s (%d)", titleCase(st.String()), int(st))
}

// encodeJSONIndented encodes a value as indented JSON to the writer.
func encodeJSONIndented(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// jsonError is the JSON shape of a failed command.
type jsonError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// outputJSONError writes err as JSON and returns an error marked as
// already reported, so main does not print it again.
func outputJSONError(w io.Writer, err error) error {
	msg, action := errors.Actionable(err)
	if encErr := encodeJSONIndented(w, jsonError{Error: err.Error(), Message: msg, Action: action}); encErr != nil {
		return err
	}
	return fmt.Errorf("%w: %w", errors.ErrJSONErrorOutput, err)
}
