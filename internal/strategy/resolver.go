package strategy

import (
	"github.com/ShayCichocki/strata/internal/analyzer"
	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/pkg/models"
)

// Resolver picks the strategy for a task. Explicit declarations on the
// task always win over analysis: a strategy override first, then the
// atomic and recursive flags, and only then the analyzer's recommendation.
type Resolver struct {
	registry *Registry
	analyzer *analyzer.Analyzer
}

// NewResolver creates a resolver over the given registry and analyzer.
func NewResolver(registry *Registry, an *analyzer.Analyzer) *Resolver {
	return &Resolver{registry: registry, analyzer: an}
}

// Resolve returns the strategy to run the task with, plus the
// recommendation that informed the choice (nil when an explicit
// declaration short-circuited analysis).
func (r *Resolver) Resolve(task *models.Task) (Strategy, *analyzer.Recommendation, error) {
	if task.Strategy != "" {
		name := models.StrategyName(task.Strategy)
		if !name.Valid() {
			return nil, nil, faults.New(faults.KindStrategySelection, task.ID, "unknown strategy override %q", task.Strategy)
		}
		s, err := r.registry.Get(name)
		return s, nil, err
	}

	if task.Atomic {
		s, err := r.registry.Get(models.StrategyAtomic)
		return s, nil, err
	}
	if task.Recursive {
		s, err := r.registry.Get(models.StrategyRecursive)
		return s, nil, err
	}

	rec := r.analyzer.RecommendStrategy(task)
	s, err := r.registry.Get(rec.Strategy)
	if err != nil {
		return nil, &rec, err
	}
	return s, &rec, nil
}
