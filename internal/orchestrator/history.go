package orchestrator

import (
	"sync"
	"time"
)

// ExecutionRecord is one completed run in the history ring.
type ExecutionRecord struct {
	// ExecutionID is the run's unique ID.
	ExecutionID string `json:"execution_id"`
	// TaskID is the root task of the run.
	TaskID string `json:"task_id"`
	// Strategy is the strategy that executed the root task.
	Strategy string `json:"strategy"`
	// Success reports whether the run succeeded overall.
	Success bool `json:"success"`
	// Duration is the run's wall-clock time.
	Duration time.Duration `json:"duration"`
	// Error is the failure message for unsuccessful runs.
	Error string `json:"error,omitempty"`
	// Timestamp is when the run finished.
	Timestamp time.Time `json:"timestamp"`
}

// Statistics summarizes the recorded history.
type Statistics struct {
	// Executions is the total number of recorded runs.
	Executions int `json:"executions"`
	// Successes is the number of successful runs.
	Successes int `json:"successes"`
	// Failures is the number of failed runs.
	Failures int `json:"failures"`
	// SuccessRate is Successes over Executions, 0 when empty.
	SuccessRate float64 `json:"success_rate"`
	// AverageDuration is the mean run duration.
	AverageDuration time.Duration `json:"average_duration"`
}

// History is a bounded ring of recent execution records.
type History struct {
	mu       sync.Mutex
	records  []ExecutionRecord
	capacity int
}

// NewHistory creates a history bounded to the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{capacity: capacity}
}

// Record appends a run, evicting the oldest record past capacity.
func (h *History) Record(rec ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	if len(h.records) > h.capacity {
		h.records = h.records[len(h.records)-h.capacity:]
	}
}

// Records returns a copy of the recorded runs, oldest first.
func (h *History) Records() []ExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ExecutionRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Statistics computes the aggregate over the recorded runs.
func (h *History) Statistics() Statistics {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := Statistics{Executions: len(h.records)}
	if stats.Executions == 0 {
		return stats
	}

	var total time.Duration
	for _, rec := range h.records {
		if rec.Success {
			stats.Successes++
		} else {
			stats.Failures++
		}
		total += rec.Duration
	}
	stats.SuccessRate = float64(stats.Successes) / float64(stats.Executions)
	stats.AverageDuration = total / time.Duration(stats.Executions)
	return stats
}
