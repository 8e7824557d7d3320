package domain

import (
	"slices"

	"github.com/kitodo/kscript/internal/constants"
)

// Task is a workflow step within a process.
type Task struct {
	// ID is the numeric identifier of the task.
	ID int `json:"id"`

	// Title names the task; scripts address tasks by exact title.
	Title string `json:"title"`

	// Ordering is the position of the task in the workflow.
	Ordering int `json:"ordering"`

	// Status is the processing status (LOCKED, OPEN, INWORK, DONE, ERROR).
	Status constants.TaskStatus `json:"processing_status"`

	// Roles lists the titles of the roles allowed to work on the task.
	// It has set semantics; use AddRole and RemoveRole to keep it that way.
	Roles []string `json:"roles,omitempty"`

	// ScriptName is the label of the attached shell script.
	ScriptName string `json:"script_name,omitempty"`

	// ScriptPath is the filesystem path of the attached shell script.
	ScriptPath string `json:"script_path,omitempty"`

	// Properties holds the boolean task type flags.
	Properties TaskProperties `json:"properties"`
}

// HasRole reports whether the role is assigned to the task.
func (t *Task) HasRole(role string) bool {
	return slices.Contains(t.Roles, role)
}

// AddRole assigns the role. It reports false if the role was already present.
func (t *Task) AddRole(role string) bool {
	if t.HasRole(role) {
		return false
	}
	t.Roles = append(t.Roles, role)
	return true
}

// RemoveRole unassigns the role. It reports false if the role was not present.
func (t *Task) RemoveRole(role string) bool {
	i := slices.Index(t.Roles, role)
	if i < 0 {
		return false
	}
	t.Roles = slices.Delete(t.Roles, i, i+1)
	return true
}
