package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ShayCichocki/strata/internal/analyzer"
	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/internal/tool"
	"github.com/ShayCichocki/strata/pkg/models"
)

func newTestRegistry(t *testing.T) (*tool.Registry, *Atomic) {
	t.Helper()
	tools := tool.NewRegistry()
	tools.Register(tool.Func{
		ToolName: "echo",
		Fn: func(ctx context.Context, params map[string]interface{}) (*tool.Result, error) {
			return &tool.Result{Success: true, Output: params["msg"]}, nil
		},
	})
	tools.Register(tool.Func{
		ToolName: "fail",
		Fn: func(ctx context.Context, params map[string]interface{}) (*tool.Result, error) {
			return &tool.Result{Success: false, Error: "boom"}, nil
		},
	})
	return tools, NewAtomic(tools)
}

func TestAtomicRunsInlineExecutable(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)

	task := &models.Task{
		ID: "inline",
		Run: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return "done", nil
		},
	}
	res, err := atomicStrat.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success || res.Output != "done" {
		t.Errorf("got %+v, want success with output done", res)
	}
}

func TestAtomicRunsTool(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)

	task := &models.Task{ID: "t", Tool: "echo", Params: map[string]interface{}{"msg": "hi"}}
	res, err := atomicStrat.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success || res.Output != "hi" {
		t.Errorf("got %+v, want success with output hi", res)
	}
}

func TestAtomicToolFailure(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)

	res, err := atomicStrat.Execute(context.Background(), &models.Task{ID: "t", Tool: "fail"}, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Error, "tool fail failed") {
		t.Errorf("error = %q, want tool failure message", res.Error)
	}
}

func TestAtomicMissingToolIsSelectionFault(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)

	_, err := atomicStrat.Execute(context.Background(), &models.Task{ID: "t", Tool: "nope"}, NewExecContext(3))
	if err == nil {
		t.Fatal("expected error for unregistered tool")
	}
	if faults.KindOf(err) != faults.KindStrategyExecution {
		t.Errorf("kind = %v, want %v", faults.KindOf(err), faults.KindStrategyExecution)
	}
}

func TestAtomicNoToolOrRunIsValidationFault(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)

	_, err := atomicStrat.Execute(context.Background(), &models.Task{ID: "t"}, NewExecContext(3))
	if err == nil {
		t.Fatal("expected error for bare task")
	}
	if faults.KindOf(err) != faults.KindTaskValidation {
		t.Errorf("kind = %v, want %v", faults.KindOf(err), faults.KindTaskValidation)
	}
}

func TestAtomicInjectsAccumulatedContext(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)

	var seen interface{}
	task := &models.Task{
		ID: "t",
		Run: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			seen = params["context"]
			return nil, nil
		},
	}
	ec := NewExecContext(3)
	ec.Values["earlier"] = "output"
	if _, err := atomicStrat.Execute(context.Background(), task, ec); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	values, ok := seen.(map[string]interface{})
	if !ok || values["earlier"] != "output" {
		t.Errorf("context param = %v, want accumulated values", seen)
	}
}

func runTask(id string, fn func() (interface{}, error)) *models.Task {
	return &models.Task{
		ID: id,
		Run: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return fn()
		},
	}
}

func TestSequentialRunsStepsInOrder(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)
	seq := NewSequential(atomicStrat)

	var mu sync.Mutex
	var order []string
	step := func(id string) *models.Task {
		return runTask(id, func() (interface{}, error) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return id, nil
		})
	}

	task := &models.Task{ID: "seq", Subtasks: []*models.Task{step("a"), step("b"), step("c")}}
	res, err := seq.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if got := strings.Join(order, ","); got != "a,b,c" {
		t.Errorf("order = %s, want a,b,c", got)
	}
	if res.Metadata["completed_steps"] != 3 {
		t.Errorf("completed_steps = %v, want 3", res.Metadata["completed_steps"])
	}
}

func TestSequentialOrdersStepsByDependencies(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)
	seq := NewSequential(atomicStrat)

	var mu sync.Mutex
	var order []string
	step := func(id string, deps ...string) *models.Task {
		task := runTask(id, func() (interface{}, error) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return id, nil
		})
		task.Dependencies = models.Deps(deps...)
		return task
	}

	// Declared order contradicts the dependencies.
	task := &models.Task{ID: "seq", Subtasks: []*models.Task{
		step("b", "a"), step("c", "b"), step("a"),
	}}
	res, err := seq.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if got := strings.Join(order, ","); got != "a,b,c" {
		t.Errorf("order = %s, want a,b,c", got)
	}
}

func TestSequentialCircularDependenciesFail(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)
	seq := NewSequential(atomicStrat)

	task := &models.Task{ID: "seq", Subtasks: []*models.Task{
		{ID: "a", Dependencies: models.Deps("b")},
		{ID: "b", Dependencies: models.Deps("a")},
	}}
	_, err := seq.Execute(context.Background(), task, NewExecContext(3))
	if err == nil {
		t.Fatal("expected error for circular steps")
	}
	if faults.KindOf(err) != faults.KindDependencyCircular {
		t.Errorf("kind = %v, want %v", faults.KindOf(err), faults.KindDependencyCircular)
	}
}

func TestSequentialStopsAtFirstFailure(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)
	seq := NewSequential(atomicStrat)

	ran := make(map[string]bool)
	task := &models.Task{ID: "seq", Subtasks: []*models.Task{
		runTask("a", func() (interface{}, error) { ran["a"] = true; return nil, nil }),
		runTask("b", func() (interface{}, error) { ran["b"] = true; return nil, errors.New("broken step") }),
		runTask("c", func() (interface{}, error) { ran["c"] = true; return nil, nil }),
	}}
	res, err := seq.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Error, "step b failed") {
		t.Errorf("error = %q, want step b failure", res.Error)
	}
	if ran["c"] {
		t.Error("step c ran after failure")
	}
	if res.Metadata["completed_steps"] != 1 {
		t.Errorf("completed_steps = %v, want 1", res.Metadata["completed_steps"])
	}
}

func TestSequentialForwardsStepOutputs(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)
	seq := NewSequential(atomicStrat)

	var second interface{}
	task := &models.Task{ID: "seq", Subtasks: []*models.Task{
		runTask("first", func() (interface{}, error) { return "payload", nil }),
		{
			ID: "second",
			Run: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				second = params["context"]
				return nil, nil
			},
		},
	}}
	if _, err := seq.Execute(context.Background(), task, NewExecContext(3)); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	values, ok := second.(map[string]interface{})
	if !ok || values["first"] != "payload" {
		t.Errorf("second step context = %v, want output of first", second)
	}
}

func TestParallelAllSucceed(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)
	par := NewParallel(atomicStrat, 4)

	task := &models.Task{ID: "par", Subtasks: []*models.Task{
		runTask("a", func() (interface{}, error) { return "ra", nil }),
		runTask("b", func() (interface{}, error) { return "rb", nil }),
		runTask("c", func() (interface{}, error) { return "rc", nil }),
	}}
	res, err := par.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if res.Metadata["succeeded"] != 3 || res.Metadata["failed"] != 0 {
		t.Errorf("metadata = %v, want 3 succeeded 0 failed", res.Metadata)
	}
}

func TestParallelPartialFailureFailsOverall(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)
	par := NewParallel(atomicStrat, 4)

	task := &models.Task{ID: "par", Subtasks: []*models.Task{
		runTask("ok1", func() (interface{}, error) { return "fine", nil }),
		runTask("bad", func() (interface{}, error) { return nil, errors.New("exploded") }),
		runTask("ok2", func() (interface{}, error) { return "fine", nil }),
	}}
	res, err := par.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("one failed step must fail the whole parallel run")
	}
	if !strings.Contains(res.Error, "1 of 3 parallel steps failed") {
		t.Errorf("error = %q, want aggregate failure message", res.Error)
	}
	successes, ok := res.Metadata["successes"].(map[string]interface{})
	if !ok || len(successes) != 2 {
		t.Errorf("successes = %v, want both successful steps preserved", res.Metadata["successes"])
	}
}

func TestParallelRespectsConcurrencyBound(t *testing.T) {
	_, atomicStrat := newTestRegistry(t)
	par := NewParallel(atomicStrat, 2)

	var active, peak int64
	gate := make(chan struct{})
	var once sync.Once
	steps := make([]*models.Task, 6)
	for i := range steps {
		steps[i] = runTask(fmt.Sprintf("s%d", i), func() (interface{}, error) {
			cur := atomic.AddInt64(&active, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			once.Do(func() { close(gate) })
			<-gate
			atomic.AddInt64(&active, -1)
			return nil, nil
		})
	}

	task := &models.Task{ID: "par", Subtasks: steps}
	res, err := par.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestRegistryGetUnknownStrategy(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get(models.StrategyParallel)
	if err == nil {
		t.Fatal("expected error for empty registry")
	}
	if faults.KindOf(err) != faults.KindStrategySelection {
		t.Errorf("kind = %v, want %v", faults.KindOf(err), faults.KindStrategySelection)
	}
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	_, atomicStrat := newTestRegistry(t)
	reg := NewRegistry()
	reg.Register(atomicStrat)
	reg.Register(NewSequential(atomicStrat))
	reg.Register(NewParallel(atomicStrat, 4))
	reg.Register(NewRecursive(stubExecutor{}, nil, atomicStrat))
	return NewResolver(reg, analyzer.New())
}

type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error) {
	return &Result{Success: true}, nil
}

func TestResolverExplicitOverrideWins(t *testing.T) {
	r := newTestResolver(t)

	// A task this composite would normally analyze to something other
	// than parallel; the override must win anyway.
	task := &models.Task{ID: "t", Strategy: "parallel", Subtasks: []*models.Task{
		{ID: "a"}, {ID: "b", Dependencies: models.Deps("a")},
	}}
	s, rec, err := r.Resolve(task)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if s.Name() != models.StrategyParallel {
		t.Errorf("strategy = %v, want parallel", s.Name())
	}
	if rec != nil {
		t.Error("explicit override should skip analysis")
	}
}

func TestResolverInvalidOverride(t *testing.T) {
	r := newTestResolver(t)

	_, _, err := r.Resolve(&models.Task{ID: "t", Strategy: "quantum"})
	if err == nil {
		t.Fatal("expected error for unknown strategy name")
	}
	if faults.KindOf(err) != faults.KindStrategySelection {
		t.Errorf("kind = %v, want %v", faults.KindOf(err), faults.KindStrategySelection)
	}
}

func TestResolverAtomicFlagBeatsComplexity(t *testing.T) {
	r := newTestResolver(t)

	// Deep, wide, and dependency-heavy: analysis alone would never pick
	// atomic for this shape.
	subtasks := make([]*models.Task, 10)
	for i := range subtasks {
		subtasks[i] = &models.Task{ID: fmt.Sprintf("s%d", i)}
		if i > 0 {
			subtasks[i].Dependencies = models.Deps(fmt.Sprintf("s%d", i-1))
		}
	}
	task := &models.Task{ID: "t", Atomic: true, Subtasks: subtasks}
	s, _, err := r.Resolve(task)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if s.Name() != models.StrategyAtomic {
		t.Errorf("strategy = %v, want atomic despite composite shape", s.Name())
	}
}

func TestResolverRecursiveFlag(t *testing.T) {
	r := newTestResolver(t)

	s, _, err := r.Resolve(&models.Task{ID: "t", Recursive: true})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if s.Name() != models.StrategyRecursive {
		t.Errorf("strategy = %v, want recursive", s.Name())
	}
}

func TestResolverFallsBackToAnalysis(t *testing.T) {
	r := newTestResolver(t)

	task := &models.Task{ID: "t", Tool: "echo"}
	s, rec, err := r.Resolve(task)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if s.Name() != models.StrategyAtomic {
		t.Errorf("strategy = %v, want atomic for a simple tool task", s.Name())
	}
	if rec == nil {
		t.Fatal("analysis path must surface the recommendation")
	}
	if rec.Confidence < 0.1 || rec.Confidence > 1.0 {
		t.Errorf("confidence = %v, want within [0.1, 1.0]", rec.Confidence)
	}
}
