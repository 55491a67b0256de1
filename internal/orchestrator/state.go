package orchestrator

import (
	"sync"

	"github.com/ShayCichocki/strata/pkg/models"
)

// ExecutionState tracks per-task outcomes within one run. Strategies and
// queue workers report results here; only the orchestrator mutates the
// maps, through the setters.
type ExecutionState struct {
	mu      sync.RWMutex
	results map[string]*models.TaskResult
}

// NewExecutionState creates an empty state.
func NewExecutionState() *ExecutionState {
	return &ExecutionState{results: make(map[string]*models.TaskResult)}
}

// SetResult records the outcome for a task, replacing any earlier attempt.
func (s *ExecutionState) SetResult(res *models.TaskResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.TaskID] = res
}

// Result returns the recorded outcome for a task, or nil.
func (s *ExecutionState) Result(taskID string) *models.TaskResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results[taskID]
}

// Succeeded reports whether the task has a successful recorded outcome.
func (s *ExecutionState) Succeeded(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[taskID]
	return ok && res.Success
}

// Counts returns how many recorded outcomes succeeded and failed.
func (s *ExecutionState) Counts() (completed, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, res := range s.results {
		if res.Success {
			completed++
		} else {
			failed++
		}
	}
	return completed, failed
}

// FailedIDs returns the IDs of tasks with failed outcomes.
func (s *ExecutionState) FailedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, res := range s.results {
		if !res.Success {
			ids = append(ids, id)
		}
	}
	return ids
}
