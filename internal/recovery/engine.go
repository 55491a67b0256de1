// Package recovery routes classified failures to per-kind recovery
// strategies and bounds how often any one task may be rescued.
package recovery

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/internal/graph"
	"github.com/ShayCichocki/strata/pkg/models"
)

// Fault is one failure presented to the engine for recovery.
type Fault struct {
	// Task is the failed task.
	Task *models.Task
	// Kind is the resolved failure kind.
	Kind faults.Kind
	// Message is the failure text.
	Message string
	// Attempt is the 1-based recovery attempt for this (kind, task) pair.
	Attempt int
	// Graph is the dependency graph of the run, when one exists. Cycle
	// recovery uses it to name the edge to break.
	Graph *graph.DependencyGraph
}

// Result is a recovery strategy's verdict on a fault.
type Result struct {
	// Recovered reports whether a recovery path exists.
	Recovered bool
	// Retry asks the caller to re-execute the task.
	Retry bool
	// Delay is how long to wait before the retry.
	Delay time.Duration
	// FallbackStrategy, when set, asks the caller to re-execute the
	// task under a different strategy instead of the failed one.
	FallbackStrategy models.StrategyName
	// Action is the recommended operator action.
	Action string
	// Message describes what the recovery decided.
	Message string
}

// Strategy handles one class of failure.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// Recover decides what to do about the fault.
	Recover(f Fault) Result
}

// Engine dispatches faults to registered per-kind strategies. Each
// (kind, task) pair gets a bounded number of recovery attempts; once the
// budget is spent the failure is final.
type Engine struct {
	mu          sync.Mutex
	strategies  map[faults.Kind]Strategy
	attempts    map[string]int
	maxAttempts int
	logger      *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts overrides the per-(kind, task) recovery budget.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStrategy registers a strategy for a kind, replacing the default.
func WithStrategy(kind faults.Kind, s Strategy) Option {
	return func(e *Engine) { e.strategies[kind] = s }
}

// NewEngine creates an engine with the default strategy set registered.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		strategies:  make(map[faults.Kind]Strategy),
		attempts:    make(map[string]int),
		maxAttempts: 3,
		logger:      log.Default(),
	}

	retry := NewTaskRetry()
	e.strategies[faults.KindTaskExecution] = retry
	e.strategies[faults.KindTaskTimeout] = retry
	e.strategies[faults.KindDependencyCircular] = NewCycleBreak()
	resource := NewResourceWait()
	e.strategies[faults.KindResourceConflict] = resource
	e.strategies[faults.KindResourceUnavailable] = resource
	fallback := NewStrategyFallback()
	e.strategies[faults.KindStrategyExecution] = fallback
	e.strategies[faults.KindStrategySelection] = fallback
	queue := NewQueueWait()
	e.strategies[faults.KindQueueCapacity] = queue
	e.strategies[faults.KindQueueDraining] = queue
	e.strategies[faults.KindSystem] = NewSystemBackoff()

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recover resolves the failure kind, checks the attempt budget, and
// dispatches to the registered strategy. Kinds without a strategy, and
// tasks over budget, are reported unrecovered.
func (e *Engine) Recover(task *models.Task, kind faults.Kind, message string, g *graph.DependencyGraph) Result {
	if kind == "" || kind == faults.KindUnknown {
		kind = faults.KindFor(faults.Classify(message))
	}

	key := string(kind) + "|" + task.ID
	e.mu.Lock()
	e.attempts[key]++
	attempt := e.attempts[key]
	e.mu.Unlock()

	if attempt > e.maxAttempts {
		e.logger.Printf("[recovery] task %s: %s attempts exhausted (%d)", task.ID, kind, e.maxAttempts)
		return Result{
			Action:  kind.Action(),
			Message: fmt.Sprintf("recovery attempts exhausted for %s after %d tries", kind, e.maxAttempts),
		}
	}

	s, ok := e.strategies[kind]
	if !ok {
		return Result{
			Action:  kind.Action(),
			Message: fmt.Sprintf("no recovery available for %s", kind),
		}
	}

	res := s.Recover(Fault{Task: task, Kind: kind, Message: message, Attempt: attempt, Graph: g})
	e.logger.Printf("[recovery] task %s: %s via %s: recovered=%v retry=%v delay=%s",
		task.ID, kind, s.Name(), res.Recovered, res.Retry, res.Delay)
	return res
}

// Reset clears the attempt counters for a task, typically after it
// eventually succeeds.
func (e *Engine) Reset(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.attempts {
		if len(key) > len(taskID) && key[len(key)-len(taskID):] == taskID && key[len(key)-len(taskID)-1] == '|' {
			delete(e.attempts, key)
		}
	}
}

// Attempts returns the recovery attempts recorded for a (kind, task) pair.
func (e *Engine) Attempts(kind faults.Kind, taskID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts[string(kind)+"|"+taskID]
}
