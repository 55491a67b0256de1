package analyzer

import "github.com/ShayCichocki/strata/pkg/models"

// ComplexityAnalysis is the structural/computational/dependency breakdown
// of one task's complexity.
type ComplexityAnalysis struct {
	// Structural scores sub-task count and nesting depth.
	Structural float64 `json:"structural"`
	// Computational scores the presence of tools, executables, and prompts.
	Computational float64 `json:"computational"`
	// Dependency scores the declared-dependency count.
	Dependency float64 `json:"dependency"`
	// Overall is the clamped sum of the three components.
	Overall float64 `json:"overall"`
	// SubtaskCount is the direct sub-task count.
	SubtaskCount int `json:"subtask_count"`
	// MaxDepth is the maximum nesting depth of the sub-task tree.
	MaxDepth int `json:"max_depth"`
}

// longDescriptionThreshold is the description length that counts as
// computationally significant on its own.
const longDescriptionThreshold = 200

// AnalyzeComplexity scores a task's complexity. The structural component
// grows with sub-task count and nesting depth, the computational component
// with tool/executable/prompt presence, and the dependency component with
// the verbatim declared-dependency count (dangling references included).
func (a *Analyzer) AnalyzeComplexity(task *models.Task) ComplexityAnalysis {
	subtasks := len(task.Subtasks)
	depth := maxDepth(task)

	structural := float64(subtasks) * 0.05
	if structural > 0.4 {
		structural = 0.4
	}
	if depth > 1 {
		structural += float64(depth-1) * 0.1
		if structural > 0.6 {
			structural = 0.6
		}
	}

	var computational float64
	if task.Tool != "" {
		computational += 0.1
	}
	if task.Run != nil {
		computational += 0.1
	}
	if task.Prompt != "" || len(task.Description) > longDescriptionThreshold {
		computational += 0.2
	}

	// Declared dependencies are counted verbatim, never filtered against
	// the graph's resolvable edge set.
	declared := len(task.Dependencies)
	for _, sub := range task.Subtasks {
		declared += len(sub.Dependencies)
	}
	dependency := float64(declared) * 0.05
	if dependency > 0.3 {
		dependency = 0.3
	}

	return ComplexityAnalysis{
		Structural:    structural,
		Computational: computational,
		Dependency:    dependency,
		Overall:       clamp01(structural + computational + dependency),
		SubtaskCount:  subtasks,
		MaxDepth:      depth,
	}
}

// maxDepth returns the maximum nesting depth of a task's sub-task tree.
// A task with no sub-tasks has depth 0.
func maxDepth(task *models.Task) int {
	if len(task.Subtasks) == 0 {
		return 0
	}
	deepest := 0
	for _, sub := range task.Subtasks {
		if d := maxDepth(sub); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
