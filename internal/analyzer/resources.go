package analyzer

import "github.com/ShayCichocki/strata/pkg/models"

// ResourceLevel is a coarse low/medium/high bucket.
type ResourceLevel string

const (
	ResourceLow    ResourceLevel = "low"
	ResourceMedium ResourceLevel = "medium"
	ResourceHigh   ResourceLevel = "high"
)

// Scalability is the verdict on how well a task's shape will scale.
type Scalability string

const (
	ScalabilityGood Scalability = "good"
	ScalabilityFair Scalability = "fair"
	ScalabilityPoor Scalability = "poor"
)

// ResourceAnalysis is the coarse resource-requirement estimate for a task.
type ResourceAnalysis struct {
	Memory      ResourceLevel `json:"memory"`
	CPU         ResourceLevel `json:"cpu"`
	IO          ResourceLevel `json:"io"`
	Network     ResourceLevel `json:"network"`
	Scalability Scalability   `json:"scalability"`
}

// AnalyzeResourceRequirements derives coarse resource buckets from
// sub-task count thresholds and file/tool/prompt indicators.
func (a *Analyzer) AnalyzeResourceRequirements(task *models.Task) ResourceAnalysis {
	count := len(task.Subtasks)

	bucket := func(n int) ResourceLevel {
		switch {
		case n >= 50:
			return ResourceHigh
		case n >= 20:
			return ResourceMedium
		default:
			return ResourceLow
		}
	}

	analysis := ResourceAnalysis{
		Memory:  bucket(count),
		CPU:     bucket(count),
		IO:      ResourceLow,
		Network: ResourceLow,
	}

	if task.CreatesFiles || anySubtask(task, func(t *models.Task) bool { return t.CreatesFiles }) {
		analysis.IO = ResourceHigh
	}
	if task.Tool != "" || task.Prompt != "" ||
		anySubtask(task, func(t *models.Task) bool { return t.Tool != "" || t.Prompt != "" }) {
		analysis.Network = ResourceMedium
		if count >= 20 {
			analysis.Network = ResourceHigh
		}
	}

	switch {
	case count >= 50:
		analysis.Scalability = ScalabilityPoor
	case count > 20:
		analysis.Scalability = ScalabilityFair
	default:
		analysis.Scalability = ScalabilityGood
	}

	return analysis
}

// anySubtask reports whether any direct sub-task satisfies the predicate.
func anySubtask(task *models.Task, pred func(*models.Task) bool) bool {
	for _, sub := range task.Subtasks {
		if pred(sub) {
			return true
		}
	}
	return false
}
