// Package faults defines the closed error taxonomy used by the scheduler.
// Every failure routed through the recovery engine carries one of these
// kinds, a retryability flag, and a recommended action.
package faults

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. The set is closed: recovery routing
// is an explicit mapping over these values, never type inspection.
type Kind string

const (
	// KindTaskValidation indicates a task failed structural validation.
	KindTaskValidation Kind = "task_validation"
	// KindTaskExecution indicates a task's tool or executable failed.
	KindTaskExecution Kind = "task_execution"
	// KindTaskTimeout indicates a task or run exceeded its timeout.
	KindTaskTimeout Kind = "task_timeout"
	// KindDependencyCircular indicates a circular dependency was detected.
	KindDependencyCircular Kind = "dependency_circular"
	// KindDependencyMissing indicates a dependency was unresolved or failed.
	KindDependencyMissing Kind = "dependency_missing"
	// KindDependencyResolution indicates the resolver could not produce an order.
	KindDependencyResolution Kind = "dependency_resolution"
	// KindStrategySelection indicates no execution strategy could be selected.
	KindStrategySelection Kind = "strategy_selection"
	// KindStrategyExecution indicates a strategy failed while executing.
	KindStrategyExecution Kind = "strategy_execution"
	// KindQueueCapacity indicates the task queue rejected new work.
	KindQueueCapacity Kind = "queue_capacity"
	// KindQueueDraining indicates the queue was shutting down.
	KindQueueDraining Kind = "queue_draining"
	// KindResourceConflict indicates contention over a shared resource.
	KindResourceConflict Kind = "resource_conflict"
	// KindResourceUnavailable indicates a required resource was unavailable.
	KindResourceUnavailable Kind = "resource_unavailable"
	// KindSystem indicates an infrastructure or transient failure.
	KindSystem Kind = "system"
	// KindConfiguration indicates invalid configuration input.
	KindConfiguration Kind = "configuration"
	// KindUnknown is the fallback for unrecognized failures.
	KindUnknown Kind = "unknown"
)

// kindInfo holds the static retryability and recommended action per kind.
type kindInfo struct {
	retryable bool
	action    string
	code      string
}

var kinds = map[Kind]kindInfo{
	KindTaskValidation:       {false, "fix the task definition and resubmit", "TASK_VALIDATION"},
	KindTaskExecution:        {true, "retry the task or inspect the tool output", "TASK_EXECUTION"},
	KindTaskTimeout:          {true, "retry with a longer timeout", "TASK_TIMEOUT"},
	KindDependencyCircular:   {false, "break the dependency cycle", "DEPENDENCY_CIRCULAR"},
	KindDependencyMissing:    {false, "ensure the dependency completes successfully first", "DEPENDENCY_MISSING"},
	KindDependencyResolution: {false, "review the declared dependencies", "DEPENDENCY_RESOLUTION"},
	KindStrategySelection:    {false, "set an explicit strategy on the task", "STRATEGY_SELECTION"},
	KindStrategyExecution:    {true, "fall back to the atomic strategy", "STRATEGY_EXECUTION"},
	KindQueueCapacity:        {true, "wait for the queue to drain", "QUEUE_CAPACITY"},
	KindQueueDraining:        {true, "resubmit to a fresh queue", "QUEUE_DRAINING"},
	KindResourceConflict:     {true, "wait and retry", "RESOURCE_CONFLICT"},
	KindResourceUnavailable:  {true, "wait for the resource or substitute it", "RESOURCE_UNAVAILABLE"},
	KindSystem:               {true, "retry with exponential backoff", "SYSTEM"},
	KindConfiguration:        {false, "fix the configuration", "CONFIGURATION"},
	KindUnknown:              {false, "inspect the error message", "UNKNOWN"},
}

// Retryable reports whether failures of this kind are worth retrying by default.
func (k Kind) Retryable() bool {
	return kinds[k].retryable
}

// Action returns the recommended action string for this kind.
func (k Kind) Action() string {
	return kinds[k].action
}

// Code returns the stable error code for this kind.
func (k Kind) Code() string {
	if info, ok := kinds[k]; ok {
		return info.code
	}
	return kinds[KindUnknown].code
}

// Error is a failure annotated with its kind and the task it belongs to.
type Error struct {
	// Kind is the failure class.
	Kind Kind
	// TaskID identifies the task the failure occurred in, if known.
	TaskID string
	// Message is the human-readable description.
	Message string
	// Retryable overrides the kind default when a strategy knows better.
	Retryable bool
	// Err is the wrapped cause, if any.
	Err error
}

// New creates a fault of the given kind for a task.
func New(kind Kind, taskID, format string, args ...interface{}) *Error {
	return &Error{
		Kind:      kind,
		TaskID:    taskID,
		Message:   fmt.Sprintf(format, args...),
		Retryable: kind.Retryable(),
	}
}

// Wrap annotates an underlying error with a kind and task context.
func Wrap(kind Kind, taskID string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:      kind,
		TaskID:    taskID,
		Message:   err.Error(),
		Retryable: kind.Retryable(),
		Err:       err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("%s: task %s: %s", e.Kind, e.TaskID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an error, or KindUnknown if it carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether an error is worth retrying.
// Typed faults use their own flag; untyped errors fall back to
// classification of the message text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return Recoverable(err.Error())
}
