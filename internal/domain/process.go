// Package domain provides shared domain types for the kscript workflow tools.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"sort"
	"time"
)

// Process is a unit of work in the digitization workflow. It owns an ordered
// task list and a metadata multimap.
//
// Example JSON representation (metadata is stored separately in meta.yaml):
//
//	{
//	    "id": 2,
//	    "title": "SecondProcess",
//	    "project_id": 1,
//	    "tasks": [...],
//	    "created_at": "2026-10-01T10:00:00Z",
//	    "updated_at": "2026-10-01T10:05:00Z",
//	    "schema_version": "1.0"
//	}
type Process struct {
	// ID is the numeric identifier; it also names the process directory.
	ID int `json:"id"`

	// Title is the human-readable process title. It is substituted for the
	// (processtitle) placeholder in folder paths.
	Title string `json:"title"`

	// ProjectID links the process to the project that configures its folders.
	ProjectID int `json:"project_id"`

	// Tasks is the workflow of the process, kept sorted by Ordering.
	Tasks []Task `json:"tasks"`

	// Metadata holds descriptive metadata entries. Keys may repeat.
	Metadata []MetadataEntry `json:"-"`

	// CreatedAt is when the process was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the process was last saved.
	UpdatedAt time.Time `json:"updated_at"`

	// SchemaVersion indicates the version of the persisted process format.
	SchemaVersion string `json:"schema_version"`
}

// TaskByTitle returns the task with exactly the given title, or nil.
// The comparison is case-sensitive.
func (p *Process) TaskByTitle(title string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].Title == title {
			return &p.Tasks[i]
		}
	}
	return nil
}

// RemoveTask deletes the task with the given title. It reports whether a task was removed.
func (p *Process) RemoveTask(title string) bool {
	for i := range p.Tasks {
		if p.Tasks[i].Title == title {
			p.Tasks = append(p.Tasks[:i], p.Tasks[i+1:]...)
			return true
		}
	}
	return false
}

// SortTasks orders the task list by Ordering, keeping the current order for ties.
func (p *Process) SortTasks() {
	sort.SliceStable(p.Tasks, func(i, j int) bool {
		return p.Tasks[i].Ordering < p.Tasks[j].Ordering
	})
}

// Clone returns a deep copy of the process.
func (p *Process) Clone() *Process {
	c := *p
	c.Tasks = make([]Task, len(p.Tasks))
	for i := range p.Tasks {
		c.Tasks[i] = p.Tasks[i]
		c.Tasks[i].Roles = append([]string(nil), p.Tasks[i].Roles...)
	}
	c.Metadata = append([]MetadataEntry(nil), p.Metadata...)
	return &c
}
