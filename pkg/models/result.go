package models

import "time"

// TaskResult records the outcome of a single task execution.
type TaskResult struct {
	// TaskID is the ID of the task this result belongs to.
	TaskID string `json:"task_id"`
	// Success indicates whether the task completed successfully.
	Success bool `json:"success"`
	// Output is the payload produced by a successful execution.
	Output interface{} `json:"output,omitempty"`
	// Error is the failure message for an unsuccessful execution.
	Error string `json:"error,omitempty"`
	// Duration is the elapsed wall-clock time for the execution.
	Duration time.Duration `json:"duration"`
	// Strategy is the name of the strategy that executed the task.
	Strategy string `json:"strategy,omitempty"`
	// Metadata carries strategy-specific details such as partial successes.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RunResult is the aggregate outcome of a top-level orchestrator run.
// Execute always returns one of these, never an error.
type RunResult struct {
	// Success is true iff no task in the run failed.
	Success bool `json:"success"`
	// Output is the aggregated payload: the successful task payloads in
	// execution order for composite runs, or the single task payload.
	Output interface{} `json:"output,omitempty"`
	// Error is the human-readable failure message if the run failed.
	Error string `json:"error,omitempty"`
	// ErrorCode is the fault code for a failed run.
	ErrorCode string `json:"error_code,omitempty"`
	// Retryable indicates whether a failed run is worth retrying.
	Retryable bool `json:"retryable,omitempty"`
	// Metadata carries run bookkeeping: execution ID, duration, plan.
	Metadata RunMetadata `json:"metadata"`
}

// RunMetadata is the bookkeeping attached to every run result.
type RunMetadata struct {
	// ExecutionID is the unique ID assigned to this run.
	ExecutionID string `json:"execution_id"`
	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration"`
	// Strategy is the strategy used for the root task.
	Strategy string `json:"strategy,omitempty"`
	// ExecutionPlan describes the resolved group ordering for composite runs.
	ExecutionPlan *ExecutionPlan `json:"execution_plan,omitempty"`
	// FailedCount is the number of tasks that terminally failed.
	FailedCount int `json:"failed_count"`
	// CompletedCount is the number of tasks that succeeded.
	CompletedCount int `json:"completed_count"`
}

// ExecutionPlan describes the order a composite run executed in.
type ExecutionPlan struct {
	// Order is the topological execution order of task IDs.
	Order []string `json:"order"`
	// Groups is the parallel group partition, in execution order.
	Groups [][]string `json:"groups"`
}
