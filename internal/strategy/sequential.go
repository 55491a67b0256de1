package strategy

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/strata/pkg/models"
)

// Sequential executes an ordered list of steps one at a time, passing
// forward the accumulated outputs of earlier steps. Execution stops at
// the first failure.
type Sequential struct {
	unit Strategy
}

// NewSequential creates the sequential strategy. Individual steps run
// through the given unit strategy, normally Atomic.
func NewSequential(unit Strategy) *Sequential {
	return &Sequential{unit: unit}
}

// Name returns the strategy name.
func (s *Sequential) Name() models.StrategyName { return models.StrategySequential }

// Execute runs the task's sub-tasks one at a time in dependency order.
// Steps that declare no dependencies keep their declared position. Each
// step sees the outputs of every earlier step through the execution
// context. The first failing step stops the run and is reported as the
// overall failure.
func (s *Sequential) Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error) {
	if len(task.Subtasks) == 0 {
		// A sequential task without steps degrades to its own unit.
		return s.unit.Execute(ctx, task, ec)
	}

	steps, err := subtaskOrder(task.Subtasks)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(steps))
	for _, step := range steps {
		known[step.ID] = true
	}

	outputs := make([]interface{}, 0, len(steps))
	done := make(map[string]bool, len(steps))
	completed := 0

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return &Result{
				Success:  false,
				Error:    fmt.Sprintf("sequence cancelled at step %s: %v", step.ID, err),
				Metadata: map[string]interface{}{"completed_steps": completed},
			}, nil
		}

		for _, dep := range step.DependencyIDs() {
			if known[dep] && !done[dep] {
				return &Result{
					Success:  false,
					Error:    fmt.Sprintf("step %s blocked: dependency %s did not complete", step.ID, dep),
					Metadata: map[string]interface{}{"completed_steps": completed},
				}, nil
			}
		}

		res, err := s.unit.Execute(ctx, step, ec)
		if err != nil {
			return &Result{
				Success:  false,
				Error:    fmt.Sprintf("step %s: %v", step.ID, err),
				Metadata: map[string]interface{}{"completed_steps": completed},
			}, nil
		}
		if !res.Success {
			return &Result{
				Success:  false,
				Error:    fmt.Sprintf("step %s failed: %s", step.ID, res.Error),
				Metadata: map[string]interface{}{"completed_steps": completed},
			}, nil
		}

		ec.Values[step.ID] = res.Output
		outputs = append(outputs, res.Output)
		done[step.ID] = true
		completed++
	}

	return &Result{
		Success:  true,
		Output:   outputs,
		Metadata: map[string]interface{}{"completed_steps": completed},
	}, nil
}
