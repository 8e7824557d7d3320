package script

import (
	"context"
	"fmt"

	"github.com/kitodo/kscript/internal/domain"
	kerrors "github.com/kitodo/kscript/internal/errors"
	"github.com/kitodo/kscript/internal/jobs"
)

// Action identifies a script action.
type Action int

// Supported actions.
const (
	ActionCreateFolders Action = iota + 1
	ActionAddRole
	ActionDeleteRole
	ActionSetStepStatus
	ActionSetStepNumber
	ActionAddShellScriptToStep
	ActionSetTaskProperty
	ActionDeleteStep
	ActionGenerateImages
	ActionAddData
	ActionDeleteData
	ActionOverwriteData
)

// Parameter names.
const (
	paramTaskTitle = "tasktitle"
	paramRole      = "role"
	paramStatus    = "status"
	paramNumber    = "number"
	paramLabel     = "label"
	paramScript    = "script"
	paramProperty  = "property"
	paramValue     = "value"
	paramFolders   = "folders"
	paramImages    = "images"
)

// outcome tells Execute what a handler did to the process.
type outcome struct {
	// dirty means the process was modified and must be saved.
	dirty bool
	job   *jobs.Job
}

type handlerFunc func(s *Service, ctx context.Context, p *domain.Process, cmd *Command) (outcome, error)

type actionSpec struct {
	action   Action
	name     string
	summary  string
	required []string
	// assignments marks actions taking KEY=VALUE tokens instead of key:value.
	assignments bool
	// bareKeys allows KEY tokens without =VALUE.
	bareKeys bool
	async    bool
	handler  handlerFunc
}

// actionTable registers every action. Order is the display order of Actions.
//
//nolint:gochecknoglobals // Read-only registration table
var actionTable = []actionSpec{
	{
		action: ActionCreateFolders, name: "createFolders",
		summary: "create every project folder in the process directory",
		handler: (*Service).createFolders,
	},
	{
		action: ActionAddRole, name: "addRole",
		summary:  "allow a role to work on a task",
		required: []string{paramTaskTitle, paramRole},
		handler:  (*Service).addRole,
	},
	{
		action: ActionDeleteRole, name: "deleteRole",
		summary:  "remove a role from a task",
		required: []string{paramTaskTitle, paramRole},
		handler:  (*Service).deleteRole,
	},
	{
		action: ActionSetStepStatus, name: "setStepStatus",
		summary:  "set the processing status of a task (0 locked .. 4 error)",
		required: []string{paramTaskTitle, paramStatus},
		handler:  (*Service).setStepStatus,
	},
	{
		action: ActionSetStepNumber, name: "setStepNumber",
		summary:  "move a task to another position in the workflow",
		required: []string{paramTaskTitle, paramNumber},
		handler:  (*Service).setStepNumber,
	},
	{
		action: ActionAddShellScriptToStep, name: "addShellScriptToStep",
		summary:  "attach a shell script to a task",
		required: []string{paramTaskTitle, paramLabel, paramScript},
		handler:  (*Service).addShellScriptToStep,
	},
	{
		action: ActionSetTaskProperty, name: "setTaskProperty",
		summary:  "set a boolean task property",
		required: []string{paramTaskTitle, paramProperty, paramValue},
		handler:  (*Service).setTaskProperty,
	},
	{
		action: ActionDeleteStep, name: "deleteStep",
		summary:  "remove a task from the workflow",
		required: []string{paramTaskTitle},
		handler:  (*Service).deleteStep,
	},
	{
		action: ActionGenerateImages, name: "generateImages",
		summary:  "generate derivative images in the background",
		required: []string{paramFolders},
		async:    true,
		handler:  (*Service).generateImages,
	},
	{
		action: ActionAddData, name: "addData",
		summary:     "add metadata entries (KEY=VALUE or KEY=@REF)",
		assignments: true,
		handler:     (*Service).addData,
	},
	{
		action: ActionDeleteData, name: "deleteData",
		summary:     "delete metadata entries by key or by key and value",
		assignments: true,
		bareKeys:    true,
		handler:     (*Service).deleteData,
	},
	{
		action: ActionOverwriteData, name: "overwriteData",
		summary:     "replace the values of metadata entries",
		assignments: true,
		handler:     (*Service).overwriteData,
	},
}

func lookupAction(name string) (*actionSpec, bool) {
	for i := range actionTable {
		if actionTable[i].name == name {
			return &actionTable[i], true
		}
	}
	return nil, false
}

func specFor(a Action) *actionSpec {
	for i := range actionTable {
		if actionTable[i].action == a {
			return &actionTable[i]
		}
	}
	return nil
}

// String returns the script name of the action.
func (a Action) String() string {
	if spec := specFor(a); spec != nil {
		return spec.name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Async reports whether the action runs as a background job.
func (a Action) Async() bool {
	spec := specFor(a)
	return spec != nil && spec.async
}

func (spec *actionSpec) validate(cmd *Command) error {
	for _, key := range spec.required {
		if _, ok := cmd.Params[key]; !ok {
			return fmt.Errorf("%w: %s requires %s", kerrors.ErrMissingParameter, spec.name, key)
		}
	}
	if spec.assignments && len(cmd.Assignments) == 0 {
		return fmt.Errorf("%w: %s requires at least one KEY=VALUE", kerrors.ErrMissingParameter, spec.name)
	}
	return nil
}

// ActionInfo describes a registered action.
type ActionInfo struct {
	Name     string   `json:"name"`
	Summary  string   `json:"summary"`
	Required []string `json:"required,omitempty"`
	Async    bool     `json:"async"`
}

// Actions lists the registered actions.
func Actions() []ActionInfo {
	out := make([]ActionInfo, 0, len(actionTable))
	for _, spec := range actionTable {
		info := ActionInfo{
			Name:     spec.name,
			Summary:  spec.summary,
			Required: append([]string(nil), spec.required...),
			Async:    spec.async,
		}
		if spec.assignments {
			info.Required = append(info.Required, "KEY=VALUE")
		}
		out = append(out, info)
	}
	return out
}
