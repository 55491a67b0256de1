// Package models defines the shared task and result types used across strata.
package models

import (
	"context"
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusDone indicates the task completed successfully.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusBlocked, TaskStatusDone, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// RunFunc is an inline executable attached directly to a task.
// Callers that don't go through the tool registry supply work this way.
type RunFunc func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Task represents a unit of work in the system.
// A task carrying subtasks is composite; otherwise it is atomic.
// Tasks are immutable inputs to the scheduler except for the
// classification tag, which is set once during recursive execution.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" yaml:"id"`
	// Description is the human-readable description of the work.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Tool is the name of a registered tool to invoke, if any.
	Tool string `json:"tool,omitempty" yaml:"tool,omitempty"`
	// Params are the parameters passed to the tool or inline executable.
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	// Run is an optional inline executable. Takes precedence over Tool.
	Run RunFunc `json:"-" yaml:"-"`
	// Subtasks is the ordered list of child tasks for composite work.
	Subtasks []*Task `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
	// Dependencies lists tasks that must complete before this one.
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Prompt is an optional language-model prompt attached to the task.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	// Atomic forces the Atomic strategy regardless of analysis.
	Atomic bool `json:"atomic,omitempty" yaml:"atomic,omitempty"`
	// Recursive forces the Recursive strategy regardless of analysis.
	Recursive bool `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	// Strategy is an explicit strategy override (atomic, sequential, parallel, recursive).
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Priority orders tasks within the queue. Higher runs first.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
	// Timeout bounds this task's execution. Zero means the run default.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// CreatesFiles marks tasks that write files, used by bottleneck analysis.
	CreatesFiles bool `json:"creates_files,omitempty" yaml:"creates_files,omitempty"`
	// Classification is the atomic/composite tag set once by the recursive
	// strategy's classification step.
	Classification string `json:"classification,omitempty" yaml:"classification,omitempty"`
}

const (
	// ClassificationAtomic tags a task executed as a single unit.
	ClassificationAtomic = "atomic"
	// ClassificationComposite tags a task executed via decomposition.
	ClassificationComposite = "composite"
)

// IsComposite returns true if the task carries subtasks to be decomposed and ordered.
func (t *Task) IsComposite() bool {
	return len(t.Subtasks) > 0
}

// DependencyIDs returns the IDs of all declared dependencies, including
// ones that may not resolve to a known task.
func (t *Task) DependencyIDs() []string {
	if len(t.Dependencies) == 0 {
		return nil
	}
	ids := make([]string, 0, len(t.Dependencies))
	for _, d := range t.Dependencies {
		ids = append(ids, d.ID)
	}
	return ids
}

// DependencyType classifies how a dependency was declared.
type DependencyType string

const (
	// DependencySimple is a bare string task ID.
	DependencySimple DependencyType = "simple"
	// DependencyTyped carries an explicit type field.
	DependencyTyped DependencyType = "typed"
	// DependencyComplex carries additional descriptor fields.
	DependencyComplex DependencyType = "complex"
)

// Dependency is a reference to another task that must complete first.
// In YAML and JSON it is either a bare string ID or an object with an
// id field and optional type/condition descriptors.
type Dependency struct {
	// ID is the referenced task ID.
	ID string `json:"id" yaml:"id"`
	// Type is an optional dependency type tag.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// Condition is an optional condition expression for complex dependencies.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Kind returns the classification of this dependency declaration.
func (d Dependency) Kind() DependencyType {
	switch {
	case d.Condition != "":
		return DependencyComplex
	case d.Type != "":
		return DependencyTyped
	default:
		return DependencySimple
	}
}

// UnmarshalYAML accepts either a bare string ID or a mapping with an id field.
func (d *Dependency) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var id string
	if err := unmarshal(&id); err == nil {
		d.ID = id
		return nil
	}

	type rawDependency Dependency
	var raw rawDependency
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if raw.ID == "" {
		return fmt.Errorf("dependency object missing id field")
	}
	*d = Dependency(raw)
	return nil
}

// Dep is a convenience constructor for a simple dependency.
func Dep(id string) Dependency {
	return Dependency{ID: id}
}

// Deps converts bare string IDs into simple dependencies.
func Deps(ids ...string) []Dependency {
	deps := make([]Dependency, 0, len(ids))
	for _, id := range ids {
		deps = append(deps, Dependency{ID: id})
	}
	return deps
}
