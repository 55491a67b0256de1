package strategy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/strata/pkg/models"
)

// Parallel executes independent steps concurrently under a configured
// bound and waits for all of them to settle.
//
// The canonical success rule: parallel execution succeeds overall iff all
// items succeed. Partial failures populate both the failure list and the
// successful results in the result metadata.
type Parallel struct {
	unit           Strategy
	maxConcurrency int
}

// NewParallel creates the parallel strategy with a default concurrency
// bound. Individual steps run through the given unit strategy.
func NewParallel(unit Strategy, maxConcurrency int) *Parallel {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Parallel{unit: unit, maxConcurrency: maxConcurrency}
}

// Name returns the strategy name.
func (s *Parallel) Name() models.StrategyName { return models.StrategyParallel }

// stepOutcome pairs a step with its settled result.
type stepOutcome struct {
	id     string
	result *Result
}

// Execute runs all sub-tasks concurrently, bounded by the configured
// maximum (or a per-task "max_concurrency" parameter), and aggregates
// successes and failures without stopping on the first error.
func (s *Parallel) Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error) {
	steps := task.Subtasks
	if len(steps) == 0 {
		return s.unit.Execute(ctx, task, ec)
	}

	limit := s.maxConcurrency
	if v, ok := task.Params["max_concurrency"].(int); ok && v > 0 {
		limit = v
	}

	var mu sync.Mutex
	outcomes := make([]stepOutcome, 0, len(steps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, step := range steps {
		step := step
		g.Go(func() error {
			child := ec.Child()
			res, err := s.unit.Execute(gctx, step, child)
			if err != nil {
				res = &Result{Success: false, Error: err.Error()}
			}

			mu.Lock()
			outcomes = append(outcomes, stepOutcome{id: step.ID, result: res})
			mu.Unlock()

			// Errors are aggregated, never propagated: one failing step
			// must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	successes := make(map[string]interface{})
	var failures []string
	for _, oc := range outcomes {
		if oc.result.Success {
			successes[oc.id] = oc.result.Output
		} else {
			failures = append(failures, fmt.Sprintf("%s: %s", oc.id, oc.result.Error))
		}
	}

	metadata := map[string]interface{}{
		"total":     len(steps),
		"succeeded": len(successes),
		"failed":    len(failures),
		"successes": successes,
		"failures":  failures,
	}

	if len(failures) > 0 {
		return &Result{
			Success:  false,
			Error:    fmt.Sprintf("%d of %d parallel steps failed: %s", len(failures), len(steps), strings.Join(failures, "; ")),
			Metadata: metadata,
		}, nil
	}

	return &Result{Success: true, Output: successes, Metadata: metadata}, nil
}
