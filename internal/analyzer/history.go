package analyzer

import (
	"time"

	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/pkg/models"
)

// PerformanceRecord is one observed strategy execution outcome. Records
// feed heuristic adjustment only, never correctness decisions.
type PerformanceRecord struct {
	// Timestamp is when the execution finished.
	Timestamp time.Time `json:"timestamp"`
	// Strategy is the strategy that ran.
	Strategy models.StrategyName `json:"strategy"`
	// Complexity is the overall complexity score of the task.
	Complexity float64 `json:"complexity"`
	// DependencyCount is the declared-dependency count of the task.
	DependencyCount int `json:"dependency_count"`
	// Success indicates whether the execution succeeded.
	Success bool `json:"success"`
	// Duration is the elapsed execution time.
	Duration time.Duration `json:"duration"`
	// ErrorCategory classifies the failure, if any.
	ErrorCategory faults.Category `json:"error_category,omitempty"`
}

// StrategyStats is the derived per-strategy performance summary.
type StrategyStats struct {
	Attempts        int           `json:"attempts"`
	Successes       int           `json:"successes"`
	Failures        int           `json:"failures"`
	AverageDuration time.Duration `json:"average_duration"`
	SuccessRate     float64       `json:"success_rate"`
}

// RecordPerformance appends a record to the bounded history log.
// The oldest record is evicted once the log exceeds its capacity.
func (a *Analyzer) RecordPerformance(record PerformanceRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, record)
	if len(a.history) > a.capacity {
		a.history = a.history[len(a.history)-a.capacity:]
	}
}

// GetPerformanceStats derives per-strategy statistics from the history log.
func (a *Analyzer) GetPerformanceStats() map[models.StrategyName]StrategyStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	totals := make(map[models.StrategyName]time.Duration)
	stats := make(map[models.StrategyName]StrategyStats)

	for _, rec := range a.history {
		s := stats[rec.Strategy]
		s.Attempts++
		if rec.Success {
			s.Successes++
		} else {
			s.Failures++
		}
		totals[rec.Strategy] += rec.Duration
		stats[rec.Strategy] = s
	}

	for name, s := range stats {
		s.AverageDuration = totals[name] / time.Duration(s.Attempts)
		s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		stats[name] = s
	}

	return stats
}

// HistoryLen returns the current history log length.
func (a *Analyzer) HistoryLen() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.history)
}

// History returns a copy of the history log, oldest first.
func (a *Analyzer) History() []PerformanceRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]PerformanceRecord, len(a.history))
	copy(out, a.history)
	return out
}

// statsFor returns the stats for one strategy, if any records exist.
func (a *Analyzer) statsFor(strategy models.StrategyName) (StrategyStats, bool) {
	stats := a.GetPerformanceStats()
	s, ok := stats[strategy]
	return s, ok
}
