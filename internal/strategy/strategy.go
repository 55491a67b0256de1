// Package strategy implements the interchangeable execution behaviors
// (atomic, sequential, parallel, recursive) behind one execute contract,
// plus the resolver that selects among them.
package strategy

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/pkg/models"
)

// Result is the outcome of one strategy execution.
type Result struct {
	// Success indicates whether the task completed successfully.
	Success bool
	// Output is the payload produced on success.
	Output interface{}
	// Error is the failure message on an unsuccessful execution.
	Error string
	// Metadata carries strategy-specific details, e.g. partial successes
	// from parallel execution.
	Metadata map[string]interface{}
}

// ExecContext carries per-execution state through strategy dispatch.
// Parent-child linkage lives here, never as object references between
// tasks.
type ExecContext struct {
	// ExecutionID identifies this execution scope.
	ExecutionID string
	// ParentID is the execution ID of the parent scope, if any.
	ParentID string
	// Depth is the recursion depth, starting at 0 for the root.
	Depth int
	// MaxDepth bounds recursive decomposition.
	MaxDepth int
	// Values accumulates step outputs keyed by task ID; sequential
	// execution passes these forward to later steps.
	Values map[string]interface{}
}

// NewExecContext creates a root execution context.
func NewExecContext(maxDepth int) *ExecContext {
	return &ExecContext{
		ExecutionID: uuid.New().String()[:8],
		MaxDepth:    maxDepth,
		Values:      make(map[string]interface{}),
	}
}

// Child derives a context for a sub-execution: a fresh sub-identifier,
// parent linkage, and one more level of depth. Values start empty; a
// child never mutates its parent's accumulated state.
func (ec *ExecContext) Child() *ExecContext {
	return &ExecContext{
		ExecutionID: ec.ExecutionID + "." + uuid.New().String()[:4],
		ParentID:    ec.ExecutionID,
		Depth:       ec.Depth + 1,
		MaxDepth:    ec.MaxDepth,
		Values:      make(map[string]interface{}),
	}
}

// Strategy is one pluggable execution behavior.
type Strategy interface {
	// Name returns the strategy's registry name.
	Name() models.StrategyName
	// Execute runs the task. A non-nil error indicates the strategy
	// itself could not run; task-level failure is carried in Result.
	Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error)
}

// Registry holds the available strategies. It is an explicit value passed
// into the orchestrator at construction time so tests can supply isolated
// instances.
type Registry struct {
	mu         sync.RWMutex
	strategies map[models.StrategyName]Strategy
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[models.StrategyName]Strategy)}
}

// Register adds a strategy under its own name, replacing any previous entry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name models.StrategyName) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, faults.New(faults.KindStrategySelection, "", "no strategy registered with name %q", name)
	}
	return s, nil
}

// Names returns the registered strategy names.
func (r *Registry) Names() []models.StrategyName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]models.StrategyName, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}
