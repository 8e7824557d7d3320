package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// A slice (not a map) because errors.Is() must walk wrapped chains, and
// ErrMissingParameter has to be matched before the ErrParse it wraps.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	// ===================
	// Script
	// ===================
	{
		err: ErrMissingParameter,
		info: ErrorInfo{
			Message: "The script is missing a parameter required by its action.",
			Action:  "Run 'kscript actions' to see the parameters each action needs.",
		},
	},
	{
		err: ErrParse,
		info: ErrorInfo{
			Message: "The script could not be parsed.",
			Action:  `Quote parameters containing spaces, e.g. "tasktitle:Quality check".`,
		},
	},
	{
		err: ErrUnknownAction,
		info: ErrorInfo{
			Message: "The script names an action that does not exist.",
			Action:  "Run 'kscript actions' to list the available actions.",
		},
	},
	{
		err: ErrInvalidStatus,
		info: ErrorInfo{
			Message: "Task status must be a number between 0 (LOCKED) and 4 (ERROR).",
		},
	},
	{
		err: ErrInvalidParameter,
		info: ErrorInfo{
			Message: "A script parameter has a value the action cannot use.",
		},
	},

	// ===================
	// Lookups
	// ===================
	{
		err: ErrProcessNotFound,
		info: ErrorInfo{
			Message: "Process not found.",
			Action:  "Run 'kscript process list' to see the available processes.",
		},
	},
	{
		err:  ErrTaskNotFound,
		info: ErrorInfo{Message: "The process has no task with that title. Titles are case-sensitive."},
	},
	{
		err:  ErrRoleNotFound,
		info: ErrorInfo{Message: "No role with that title exists in the catalog."},
	},
	{
		err:  ErrProjectNotFound,
		info: ErrorInfo{Message: "The process refers to a project missing from the catalog."},
	},
	{
		err:  ErrFolderNotFound,
		info: ErrorInfo{Message: "The folder is not configured for the project of this process."},
	},
	{
		err:  ErrMetadataNotFound,
		info: ErrorInfo{Message: "The referenced metadata field has no value on this process."},
	},
	{
		err:  ErrNoImages,
		info: ErrorInfo{Message: "The generator source folder contains no images."},
	},

	// ===================
	// Jobs & storage
	// ===================
	{
		err:  ErrJobNotFound,
		info: ErrorInfo{Message: "No background job with that ID is tracked."},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Another kscript instance is writing the same process.",
			Action:  "Wait for the other run to finish and retry.",
		},
	},
	{
		err: ErrCorruptedState,
		info: ErrorInfo{
			Message: "A stored process file is unreadable.",
			Action:  "Restore process.json or meta.yaml from backup.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
}

// getErrorInfo looks up the ErrorInfo for a given error by walking the
// entries with errors.Is(). Returns the original message if nothing matches.
func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing useful to suggest.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
