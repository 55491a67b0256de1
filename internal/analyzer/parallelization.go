package analyzer

import "github.com/ShayCichocki/strata/pkg/models"

// Bottleneck names a class of work that limits parallel speedup.
type Bottleneck string

const (
	// BottleneckExternalAPICalls covers sub-tasks invoking tools or prompts.
	BottleneckExternalAPICalls Bottleneck = "external_api_calls"
	// BottleneckFileIO covers sub-tasks that create files.
	BottleneckFileIO Bottleneck = "file_io"
)

// bottleneckPenalty is the efficiency reduction per detected bottleneck class.
const bottleneckPenalty = 0.1

// ParallelizationAnalysis describes how much of a composite task can run
// concurrently.
type ParallelizationAnalysis struct {
	// Possible is true when the task has at least two sub-tasks.
	Possible bool `json:"possible"`
	// IndependentCount is the number of sub-tasks with no declared dependencies.
	IndependentCount int `json:"independent_count"`
	// TotalCount is the total sub-task count.
	TotalCount int `json:"total_count"`
	// Efficiency is independent/total reduced per bottleneck class, in [0,1].
	Efficiency float64 `json:"efficiency"`
	// Bottlenecks lists the detected bottleneck classes.
	Bottlenecks []Bottleneck `json:"bottlenecks,omitempty"`
	// MaxParallelism is the widest group of tasks that could run at once.
	MaxParallelism int `json:"max_parallelism"`
}

// AnalyzeParallelization measures the parallel-execution potential of a
// task. Tasks with fewer than two sub-tasks have no potential. Independent
// sub-tasks (no declared dependencies) are the parallel candidates.
func (a *Analyzer) AnalyzeParallelization(task *models.Task) ParallelizationAnalysis {
	total := len(task.Subtasks)
	if total < 2 {
		return ParallelizationAnalysis{TotalCount: total}
	}

	independent := 0
	var bottlenecks []Bottleneck
	hasExternal := false
	hasFileIO := false

	for _, sub := range task.Subtasks {
		if len(sub.Dependencies) == 0 {
			independent++
		}
		if sub.Tool != "" || sub.Prompt != "" {
			hasExternal = true
		}
		if sub.CreatesFiles {
			hasFileIO = true
		}
	}

	if hasExternal {
		bottlenecks = append(bottlenecks, BottleneckExternalAPICalls)
	}
	if hasFileIO {
		bottlenecks = append(bottlenecks, BottleneckFileIO)
	}

	efficiency := float64(independent) / float64(total)
	efficiency -= float64(len(bottlenecks)) * bottleneckPenalty
	efficiency = clamp01(efficiency)

	return ParallelizationAnalysis{
		Possible:         true,
		IndependentCount: independent,
		TotalCount:       total,
		Efficiency:       efficiency,
		Bottlenecks:      bottlenecks,
		MaxParallelism:   independent,
	}
}
