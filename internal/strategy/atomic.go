package strategy

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/internal/tool"
	"github.com/ShayCichocki/strata/pkg/models"
)

// Atomic executes a task's tool or inline executable exactly once,
// with no decomposition.
type Atomic struct {
	tools *tool.Registry
}

// NewAtomic creates the atomic strategy backed by a tool registry.
func NewAtomic(tools *tool.Registry) *Atomic {
	return &Atomic{tools: tools}
}

// Name returns the strategy name.
func (s *Atomic) Name() models.StrategyName { return models.StrategyAtomic }

// Execute runs the task's inline executable if present, otherwise looks
// up and invokes its tool. Accumulated context values, when present, are
// passed to the executable under the "context" parameter.
func (s *Atomic) Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error) {
	params := task.Params
	if ec != nil && len(ec.Values) > 0 {
		params = make(map[string]interface{}, len(task.Params)+1)
		for k, v := range task.Params {
			params[k] = v
		}
		params["context"] = ec.Values
	}

	if task.Run != nil {
		output, err := task.Run(ctx, params)
		if err != nil {
			return &Result{Success: false, Error: err.Error()}, nil
		}
		return &Result{Success: true, Output: output}, nil
	}

	if task.Tool == "" {
		return nil, faults.New(faults.KindTaskValidation, task.ID, "atomic task has no tool or executable")
	}

	t, err := s.tools.Lookup(task.Tool)
	if err != nil {
		return nil, faults.Wrap(faults.KindStrategyExecution, task.ID, err)
	}

	res, err := t.Execute(ctx, params)
	if err != nil {
		return nil, faults.Wrap(faults.KindTaskExecution, task.ID, err)
	}
	if !res.Success {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("tool %s failed: %s", task.Tool, res.Error),
		}, nil
	}
	return &Result{Success: true, Output: res.Output}, nil
}
