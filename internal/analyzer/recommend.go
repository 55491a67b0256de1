package analyzer

import (
	"github.com/ShayCichocki/strata/pkg/models"
)

// Alternative is a degradation path offered alongside a recommendation.
type Alternative struct {
	// Strategy is the alternative strategy name.
	Strategy models.StrategyName `json:"strategy"`
	// Reason explains why the alternative is viable.
	Reason string `json:"reason"`
}

// Recommendation is the analyzer's strategy recommendation for a task.
type Recommendation struct {
	// Strategy is the recommended strategy name.
	Strategy models.StrategyName `json:"strategy"`
	// Confidence is the [0.1, 1.0] backing score for the recommendation.
	Confidence float64 `json:"confidence"`
	// Reasoning is the ordered list of reasons behind the recommendation.
	Reasoning []string `json:"reasoning"`
	// Alternatives lists fallback strategies for graceful degradation.
	// Every recommendation carries at least one.
	Alternatives []Alternative `json:"alternatives"`
	// Parameters is the tunable parameter bag, e.g. max_concurrency.
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	// Pattern is the recognized textual pattern tag, if one matched.
	Pattern string `json:"pattern,omitempty"`
}

// maxRecommendedConcurrency caps the concurrency the analyzer will ever
// recommend for parallel execution.
const maxRecommendedConcurrency = 10

// RecommendStrategy runs the full analysis and applies the ordered
// decision policy. Every branch attaches at least one alternative.
func (a *Analyzer) RecommendStrategy(task *models.Task) Recommendation {
	analysis := a.Analyze(task)
	rec := a.recommend(task, analysis)
	rec.Confidence = a.calculateConfidence(rec, analysis)
	a.addHistoricalAlternatives(&rec)
	return rec
}

// recommend applies the decision branches in fixed order.
func (a *Analyzer) recommend(task *models.Task, analysis Analysis) Recommendation {
	complexity := analysis.Complexity
	deps := analysis.Dependencies
	par := analysis.Parallelization

	// 1. Circular dependencies force single-unit execution.
	if deps.HasCircular {
		return Recommendation{
			Strategy:  models.StrategyAtomic,
			Reasoning: []string{"Circular dependencies detected"},
			Alternatives: []Alternative{
				{Strategy: models.StrategySequential, Reason: "run sub-tasks in declared order after breaking the cycle"},
			},
		}
	}

	// 2. A single simple tool call needs no decomposition.
	if !task.IsComposite() && task.Tool != "" && complexity.Overall < 0.5 {
		return Recommendation{
			Strategy:  models.StrategyAtomic,
			Reasoning: []string{"Single tool invocation with low complexity"},
			Alternatives: []Alternative{
				{Strategy: models.StrategySequential, Reason: "wrap the call in a single-step sequence"},
			},
		}
	}

	// 3. Inter-sub-task dependencies require ordered execution.
	for _, sub := range task.Subtasks {
		if len(sub.Dependencies) > 0 {
			return Recommendation{
				Strategy:  models.StrategySequential,
				Reasoning: []string{"Sub-tasks declare dependencies on each other"},
				Alternatives: []Alternative{
					{Strategy: models.StrategyRecursive, Reason: "decompose and schedule dependency groups"},
				},
			}
		}
	}

	// 4. Small, highly independent task sets parallelize directly.
	if par.Efficiency >= 0.9 && par.TotalCount > 0 && par.TotalCount <= 6 {
		concurrency := par.MaxParallelism
		if concurrency > maxRecommendedConcurrency {
			concurrency = maxRecommendedConcurrency
		}
		return Recommendation{
			Strategy:  models.StrategyParallel,
			Reasoning: []string{"Sub-tasks are independent and few enough to run concurrently"},
			Alternatives: []Alternative{
				{Strategy: models.StrategySequential, Reason: "run the same sub-tasks one at a time"},
			},
			Parameters: map[string]interface{}{"max_concurrency": concurrency},
		}
	}

	// 5. Very complex or very large tasks need recursive decomposition.
	if complexity.Overall > 0.8 || complexity.SubtaskCount >= 8 {
		return Recommendation{
			Strategy:  models.StrategyRecursive,
			Reasoning: []string{"High complexity or large sub-task count requires decomposition"},
			Alternatives: []Alternative{
				{Strategy: models.StrategySequential, Reason: "run sub-tasks in order without decomposition"},
			},
		}
	}

	// 6. Mostly independent task sets still benefit from parallelism.
	if par.Efficiency > 0.6 {
		concurrency := par.MaxParallelism
		if concurrency > maxRecommendedConcurrency {
			concurrency = maxRecommendedConcurrency
		}
		return Recommendation{
			Strategy:  models.StrategyParallel,
			Reasoning: []string{"Majority of sub-tasks are independent"},
			Alternatives: []Alternative{
				{Strategy: models.StrategySequential, Reason: "serialize if contention appears"},
			},
			Parameters: map[string]interface{}{"max_concurrency": concurrency},
		}
	}

	// 7. Recognized textual patterns map to pattern-specific strategies.
	if rule := a.matchPattern(task.Description); rule != nil {
		return Recommendation{
			Strategy:  rule.strategy,
			Reasoning: []string{rule.reasoning},
			Alternatives: []Alternative{
				{Strategy: rule.alternative, Reason: "pattern-specific degradation path"},
			},
			Pattern: rule.name,
		}
	}

	// 8. Remaining dependency-bearing tasks run in order.
	if deps.Count > 0 {
		strategy := models.StrategySequential
		reasoning := "Declared dependencies require ordered execution"
		if complexity.Overall > 0.7 {
			strategy = models.StrategyRecursive
			reasoning = "Declared dependencies with high complexity require decomposition"
		}
		return Recommendation{
			Strategy:  strategy,
			Reasoning: []string{reasoning},
			Alternatives: []Alternative{
				{Strategy: models.StrategyAtomic, Reason: "execute as a single unit if ordering proves unnecessary"},
			},
		}
	}

	// 9. Everything else is a single unit.
	return Recommendation{
		Strategy:  models.StrategyAtomic,
		Reasoning: []string{"No decomposition signals detected"},
		Alternatives: []Alternative{
			{Strategy: models.StrategySequential, Reason: "sequence the task if it grows sub-tasks"},
		},
	}
}

// calculateConfidence derives the recommendation confidence. Base 0.7,
// raised for clear-cut cases, reduced for very high complexity or poor
// scalability, then blended with the strategy's historical success rate.
// Always clamped to [0.1, 1.0].
func (a *Analyzer) calculateConfidence(rec Recommendation, analysis Analysis) float64 {
	confidence := 0.7

	switch {
	case analysis.Dependencies.HasCircular:
		confidence = 0.95
	case rec.Strategy == models.StrategyParallel && analysis.Dependencies.Count == 0:
		confidence = 0.9
	case analysis.Complexity.Overall < 0.3:
		confidence = 0.85
	}

	if analysis.Complexity.Overall > 0.8 || analysis.Resources.Scalability == ScalabilityPoor {
		confidence *= 0.8
	}

	// Blend with the historical success rate. The weight grows as the
	// history becomes more convincing above a 0.8 success rate.
	if stats, ok := a.statsFor(rec.Strategy); ok && stats.Attempts >= 3 {
		weight := 0.2
		if stats.SuccessRate > 0.8 {
			weight += stats.SuccessRate - 0.8
		}
		confidence = confidence*(1-weight) + stats.SuccessRate*weight
	}

	if confidence < 0.1 {
		confidence = 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// addHistoricalAlternatives appends strategies with strong track records
// that the decision policy did not already mention.
func (a *Analyzer) addHistoricalAlternatives(rec *Recommendation) {
	stats := a.GetPerformanceStats()

	mentioned := map[models.StrategyName]bool{rec.Strategy: true}
	for _, alt := range rec.Alternatives {
		mentioned[alt.Strategy] = true
	}

	for _, name := range []models.StrategyName{
		models.StrategyAtomic,
		models.StrategySequential,
		models.StrategyParallel,
		models.StrategyRecursive,
	} {
		if mentioned[name] {
			continue
		}
		s, ok := stats[name]
		if ok && s.Attempts >= 3 && s.SuccessRate > 0.8 {
			rec.Alternatives = append(rec.Alternatives, Alternative{
				Strategy: name,
				Reason:   "historically successful for this workload",
			})
		}
	}
}
