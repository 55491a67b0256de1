// Package analyzer scores task complexity, dependencies, resources, and
// parallelization potential, and recommends an execution strategy with a
// confidence value adjusted by learned performance history.
package analyzer

import (
	"sync"

	"github.com/ShayCichocki/strata/pkg/models"
)

// Analyzer is a pure function of task descriptions plus a bounded
// performance-history log used to bias future recommendations.
// Safe for concurrent use.
type Analyzer struct {
	mu       sync.RWMutex
	history  []PerformanceRecord
	capacity int
	patterns []patternRule
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithHistoryCapacity bounds the performance-history ring.
// The default is 100 records; the oldest are evicted first.
func WithHistoryCapacity(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.capacity = n
		}
	}
}

// New creates an Analyzer with the default pattern table.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		capacity: 100,
		patterns: defaultPatterns(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analysis bundles the four scoring passes over one task.
type Analysis struct {
	// Complexity is the structural/computational/dependency score.
	Complexity ComplexityAnalysis
	// Dependencies describes the declared dependency structure.
	Dependencies DependencyAnalysis
	// Resources is the coarse resource-requirement estimate.
	Resources ResourceAnalysis
	// Parallelization describes the parallel-execution potential.
	Parallelization ParallelizationAnalysis
}

// Analyze runs all four analysis passes over a task.
func (a *Analyzer) Analyze(task *models.Task) Analysis {
	return Analysis{
		Complexity:      a.AnalyzeComplexity(task),
		Dependencies:    a.AnalyzeDependencies(task),
		Resources:       a.AnalyzeResourceRequirements(task),
		Parallelization: a.AnalyzeParallelization(task),
	}
}

// clamp01 clamps a score to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
