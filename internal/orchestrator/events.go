// Package orchestrator coordinates task execution: strategy selection,
// scheduling, recovery, and bookkeeping.
package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskQueued indicates a task is ready and queued for execution.
	EventTaskQueued EventType = "task_queued"
	// EventStrategySelected indicates a strategy was chosen for a task.
	EventStrategySelected EventType = "strategy_selected"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed terminally.
	EventTaskFailed EventType = "task_failed"
	// EventTaskRecovered indicates a failed task was rescued by recovery.
	EventTaskRecovered EventType = "task_recovered"
	// EventProgress provides periodic completion updates for a run.
	EventProgress EventType = "progress"
	// EventRunDone indicates a top-level run has finished.
	EventRunDone EventType = "run_done"
)

// Event represents an event emitted by the orchestrator. Subscribers
// receive these to track run progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// ExecutionID identifies the run the event belongs to.
	ExecutionID string
	// Strategy is the strategy involved, for selection events.
	Strategy string
	// Message provides additional context about the event.
	Message string
	// Error contains failure details for failure events.
	Error error
	// Progress is the run completion percentage, 0 to 100.
	Progress float64
	// Duration is the elapsed time, for completion events.
	Duration time.Duration
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
