package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/internal/graph"
	"github.com/ShayCichocki/strata/internal/queue"
	"github.com/ShayCichocki/strata/internal/strategy"
	"github.com/ShayCichocki/strata/pkg/models"
)

// RunPlan executes a set of top-level tasks as one scheduled run: the
// dependency graph is resolved into parallel groups, each group's tasks
// go through the bounded queue in priority order, and a group must settle
// before the next one starts. Like Run, it always returns a result.
//
// A task whose dependency failed is not executed; it fails with a
// dependency fault after the recovery engine has had its say.
func (o *Orchestrator) RunPlan(ctx context.Context, tasks []*models.Task) *models.RunResult {
	start := time.Now()
	o.mu.Lock()
	maxDepth, maxConcurrency := o.maxDepth, o.maxConcurrency
	o.mu.Unlock()
	ec := strategy.NewExecContext(maxDepth)

	res := graph.Resolve(tasks)
	if !res.Success {
		root := &models.Task{ID: "plan"}
		rr := o.recovery.Recover(root, faults.KindDependencyCircular, res.Error, res.Graph)
		return o.finishRun(root, ec, start,
			nil, faults.New(faults.KindDependencyCircular, "", "%s: %s", res.Error, rr.Message), nil)
	}
	plan := &models.ExecutionPlan{Order: res.Order, Groups: res.Groups}

	o.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	o.active[ec.ExecutionID] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.active, ec.ExecutionID)
		o.mu.Unlock()
	}()

	state := NewExecutionState()
	q := queue.New(maxConcurrency)
	defer q.Close()

	total := len(res.Order)
	done := 0

	for _, group := range res.Groups {
		for _, id := range group {
			task := res.Graph.GetTask(id)
			if task == nil {
				continue
			}
			o.emitter.Emit(Event{Type: EventTaskQueued, TaskID: id, ExecutionID: ec.ExecutionID})
			submitErr := q.Submit(id, task.Priority, 0, func(context.Context) error {
				o.runPlanned(runCtx, task, ec, res.Graph, state)
				return nil
			})
			if submitErr != nil {
				state.SetResult(&models.TaskResult{TaskID: id, Error: submitErr.Error()})
			}
		}
		q.Wait()

		done += len(group)
		o.emitter.Emit(Event{
			Type:        EventProgress,
			ExecutionID: ec.ExecutionID,
			Progress:    float64(done) / float64(total) * 100,
		})
	}

	return o.finishPlan(ec, start, res, state, plan)
}

// runPlanned executes one scheduled task after re-checking that its
// resolvable dependencies actually succeeded. The resolver's group order
// already guarantees dependencies ran first; this guards against them
// having run and failed.
func (o *Orchestrator) runPlanned(ctx context.Context, task *models.Task, ec *strategy.ExecContext, g *graph.DependencyGraph, state *ExecutionState) {
	start := time.Now()

	for _, dep := range task.DependencyIDs() {
		if g.GetTask(dep) == nil {
			// Dangling reference, already counted at build time.
			continue
		}
		if !state.Succeeded(dep) {
			msg := fmt.Sprintf("dependency %s did not complete successfully", dep)
			rr := o.recovery.Recover(task, faults.KindDependencyMissing, msg, g)
			o.emitter.Emit(Event{Type: EventTaskFailed, TaskID: task.ID, ExecutionID: ec.ExecutionID, Message: msg})
			state.SetResult(&models.TaskResult{
				TaskID:   task.ID,
				Error:    fmt.Sprintf("%s: %s", msg, rr.Action),
				Duration: time.Since(start),
			})
			return
		}
	}

	res, err := o.Execute(ctx, task, ec.Child())
	tr := &models.TaskResult{TaskID: task.ID, Duration: time.Since(start)}
	switch {
	case err != nil:
		tr.Error = err.Error()
	case res == nil:
		tr.Error = "no result produced"
	default:
		tr.Success = res.Success
		tr.Output = res.Output
		tr.Error = res.Error
		tr.Metadata = res.Metadata
		if s, ok := res.Metadata["strategy"].(string); ok {
			tr.Strategy = s
		}
	}
	state.SetResult(tr)
}

// finishPlan aggregates the per-task results into the run result. The
// run succeeds iff every scheduled task succeeded.
func (o *Orchestrator) finishPlan(ec *strategy.ExecContext, start time.Time, res *graph.Resolution, state *ExecutionState, plan *models.ExecutionPlan) *models.RunResult {
	duration := time.Since(start)
	completed, failed := state.Counts()

	out := &models.RunResult{
		Success: failed == 0,
		Metadata: models.RunMetadata{
			ExecutionID:    ec.ExecutionID,
			Duration:       duration,
			ExecutionPlan:  plan,
			CompletedCount: completed,
			FailedCount:    failed,
		},
	}

	outputs := make([]interface{}, 0, completed)
	for _, id := range res.Order {
		if tr := state.Result(id); tr != nil && tr.Success {
			outputs = append(outputs, tr.Output)
		}
	}
	out.Output = outputs

	if failed > 0 {
		ids := state.FailedIDs()
		sort.Strings(ids)
		out.Error = fmt.Sprintf("%d of %d tasks failed: %s", failed, len(res.Order), strings.Join(ids, ", "))
		out.ErrorCode = faults.KindTaskExecution.Code()
		out.Retryable = faults.KindTaskExecution.Retryable()
	}

	o.history.Record(ExecutionRecord{
		ExecutionID: ec.ExecutionID,
		TaskID:      "plan",
		Success:     out.Success,
		Duration:    duration,
		Error:       out.Error,
		Timestamp:   time.Now(),
	})
	o.emitter.Emit(Event{
		Type:        EventRunDone,
		ExecutionID: ec.ExecutionID,
		Message:     out.Error,
		Duration:    duration,
	})
	return out
}
