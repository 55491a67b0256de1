package analyzer

import (
	"regexp"

	"github.com/ShayCichocki/strata/pkg/models"
)

// patternRule is one entry in the data-driven pattern table. Rules are
// evaluated in fixed priority order; the first matching rule wins. New
// patterns are added as table entries, not code branches.
type patternRule struct {
	// name is the recognized pattern tag attached to the recommendation.
	name string
	// matchers are tried against the task description; any match fires the rule.
	matchers []*regexp.Regexp
	// strategy is the recommended strategy for this pattern.
	strategy models.StrategyName
	// reasoning explains the recommendation.
	reasoning string
	// alternative is the degradation path offered alongside.
	alternative models.StrategyName
}

// defaultPatterns returns the built-in pattern table.
func defaultPatterns() []patternRule {
	return []patternRule{
		{
			name: "simple_tool",
			matchers: compilePatterns([]string{
				`\b(run|execute|invoke|call)\s+(the\s+)?\w+\s+tool\b`,
				`\bsingle\s+(tool|command|call)\b`,
			}),
			strategy:    models.StrategyAtomic,
			reasoning:   "Description matches a simple tool invocation",
			alternative: models.StrategySequential,
		},
		{
			name: "multi_step",
			matchers: compilePatterns([]string{
				`\b(step\s+\d+|first.*then|after\s+that|followed\s+by)\b`,
				`\b(pipeline|workflow|in\s+order|one\s+at\s+a\s+time)\b`,
			}),
			strategy:    models.StrategySequential,
			reasoning:   "Description matches a multi-step workflow",
			alternative: models.StrategyAtomic,
		},
		{
			name: "analysis",
			matchers: compilePatterns([]string{
				`\b(analyz|analys|examine|inspect|review|audit)\w*\b`,
				`\b(report\s+on|summariz)\w*\b`,
			}),
			strategy:    models.StrategyParallel,
			reasoning:   "Description matches an analysis task; sections can be examined concurrently",
			alternative: models.StrategySequential,
		},
		{
			name: "generation",
			matchers: compilePatterns([]string{
				`\b(generate|scaffold|create|build|write)\s+(a\s+|an\s+|the\s+)?(project|app|application|module|service|api)\b`,
			}),
			strategy:    models.StrategyRecursive,
			reasoning:   "Description matches a generation task; decomposition is needed",
			alternative: models.StrategySequential,
		},
		{
			name: "troubleshooting",
			matchers: compilePatterns([]string{
				`\b(debug|diagnose|troubleshoot|investigate)\w*\b`,
				`\b(fix|repair)\s+(the\s+)?(bug|error|issue|failure)\b`,
			}),
			strategy:    models.StrategySequential,
			reasoning:   "Description matches troubleshooting; steps depend on prior findings",
			alternative: models.StrategyAtomic,
		},
	}
}

// matchPattern returns the first pattern rule matching the description,
// or nil if none match.
func (a *Analyzer) matchPattern(description string) *patternRule {
	for i := range a.patterns {
		rule := &a.patterns[i]
		for _, re := range rule.matchers {
			if re.MatchString(description) {
				return rule
			}
		}
	}
	return nil
}

// compilePatterns compiles case-insensitive regular expressions.
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}
