package analyzer

import (
	"github.com/ShayCichocki/strata/internal/graph"
	"github.com/ShayCichocki/strata/pkg/models"
)

// DependencyAnalysis describes a task's declared dependency structure.
type DependencyAnalysis struct {
	// Count is the total number of declared dependencies across sub-tasks.
	Count int `json:"count"`
	// Types counts dependencies by declaration kind.
	Types map[models.DependencyType]int `json:"types"`
	// HasCircular is true if the sub-task dependencies form a cycle.
	HasCircular bool `json:"has_circular"`
	// Cycle is one detected cycle path when HasCircular is true.
	Cycle []string `json:"cycle,omitempty"`
	// Parallelizable is true iff there is no cycle and more than one
	// sub-task has zero dependencies.
	Parallelizable bool `json:"parallelizable"`
}

// AnalyzeDependencies counts and classifies a task's declared dependencies
// and delegates cycle detection to the same graph logic the resolver uses.
func (a *Analyzer) AnalyzeDependencies(task *models.Task) DependencyAnalysis {
	analysis := DependencyAnalysis{
		Types: make(map[models.DependencyType]int),
	}

	for _, dep := range task.Dependencies {
		analysis.Count++
		analysis.Types[dep.Kind()]++
	}
	for _, sub := range task.Subtasks {
		for _, dep := range sub.Dependencies {
			analysis.Count++
			analysis.Types[dep.Kind()]++
		}
	}

	if len(task.Subtasks) == 0 {
		return analysis
	}

	g := graph.New()
	if err := g.Build(task.Subtasks); err != nil {
		// Duplicate IDs make the structure unschedulable either way.
		analysis.Parallelizable = false
		return analysis
	}

	if cycle := g.FindCycle(); len(cycle) > 0 {
		analysis.HasCircular = true
		analysis.Cycle = cycle
		return analysis
	}

	analysis.Parallelizable = g.RootCount() > 1
	return analysis
}
