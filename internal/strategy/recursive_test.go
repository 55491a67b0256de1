package strategy

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/internal/llm"
	"github.com/ShayCichocki/strata/pkg/models"
)

// fakeExecutor records the tasks and contexts it was handed, returning
// canned results keyed by task description (decomposed subtasks have
// generated IDs, so descriptions are the stable handle).
type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	depths   []int
	fail     map[string]int // description -> remaining failures
}

func (f *fakeExecutor) Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := task.Description
	if key == "" {
		key = task.ID
	}
	f.executed = append(f.executed, key)
	f.depths = append(f.depths, ec.Depth)
	if f.fail[key] > 0 {
		f.fail[key]--
		return &Result{Error: "transient failure on " + key}, nil
	}
	return &Result{Success: true, Output: key + " done"}, nil
}

type fakeClient struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeClient) Complete(ctx context.Context, prompt string, opts llm.CompleteOptions) (*llm.Completion, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Content: f.response}, nil
}

func TestRecursiveDelegatesDeclaredSubtasks(t *testing.T) {
	exec := &fakeExecutor{}
	_, fallback := newTestRegistry(t)
	rec := NewRecursive(exec, nil, fallback)

	task := &models.Task{ID: "root", Subtasks: []*models.Task{
		{ID: "a"},
		{ID: "b", Dependencies: models.Deps("a")},
		{ID: "c", Dependencies: models.Deps("b")},
	}}
	res, err := rec.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if got := strings.Join(exec.executed, ","); got != "a,b,c" {
		t.Errorf("execution order = %s, want a,b,c", got)
	}
	for _, d := range exec.depths {
		if d != 1 {
			t.Errorf("subtask depth = %d, want 1", d)
		}
	}
	if task.Classification != models.ClassificationComposite {
		t.Errorf("classification = %q, want composite", task.Classification)
	}
}

// valueExecutor returns a fixed output for every task it is handed.
type valueExecutor struct {
	out interface{}
}

func (v *valueExecutor) Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error) {
	return &Result{Success: true, Output: v.out}, nil
}

func TestRecursiveCollectsTypedSubtaskOutputs(t *testing.T) {
	exec := &valueExecutor{out: 42}
	_, fallback := newTestRegistry(t)
	rec := NewRecursive(exec, nil, fallback)

	task := &models.Task{ID: "root", Subtasks: []*models.Task{{ID: "a"}, {ID: "b"}}}
	res, err := rec.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	outputs, ok := res.Metadata["outputs"].(map[string]interface{})
	if !ok {
		t.Fatalf("outputs metadata = %T, want map[string]interface{}", res.Metadata["outputs"])
	}
	if outputs["a"] != 42 || outputs["b"] != 42 {
		t.Errorf("outputs = %v, want raw subtask outputs preserved", outputs)
	}
}

func TestRecursiveDecomposesViaModel(t *testing.T) {
	exec := &fakeExecutor{}
	client := &fakeClient{response: `Here is the breakdown:
[
  {"title": "fetch", "description": "fetch the data", "tool": "", "depends_on": []},
  {"title": "process", "description": "process the data", "tool": "", "depends_on": ["fetch"]}
]`}
	_, fallback := newTestRegistry(t)
	rec := NewRecursive(exec, client, fallback)

	task := &models.Task{ID: "root", Description: "fetch and process the data set"}
	res, err := rec.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if got := strings.Join(exec.executed, ","); got != "fetch the data,process the data" {
		t.Errorf("execution order = %s, want fetch before process", got)
	}
	if len(task.Subtasks) != 2 {
		t.Errorf("subtasks = %d, want decomposition cached on the task", len(task.Subtasks))
	}
	if len(client.prompts) != 1 || !strings.Contains(client.prompts[0], "fetch and process the data set") {
		t.Error("prompt must carry the task description")
	}
}

func TestRecursiveLeafFallsThroughToFallback(t *testing.T) {
	exec := &fakeExecutor{}
	_, fallback := newTestRegistry(t)
	rec := NewRecursive(exec, nil, fallback)

	ran := false
	task := &models.Task{ID: "leaf", Run: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		ran = true
		return "ok", nil
	}}
	res, err := rec.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success || !ran {
		t.Error("leaf task must run through the fallback strategy")
	}
	if len(exec.executed) != 0 {
		t.Error("leaf task must not be delegated")
	}
	if task.Classification != models.ClassificationAtomic {
		t.Errorf("classification = %q, want atomic", task.Classification)
	}
}

func TestRecursiveDepthCapForcesLeafExecution(t *testing.T) {
	exec := &fakeExecutor{}
	_, fallback := newTestRegistry(t)
	rec := NewRecursive(exec, nil, fallback)

	task := &models.Task{ID: "root",
		Run: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return "ran flat", nil
		},
		Subtasks: []*models.Task{{ID: "a"}, {ID: "b"}},
	}
	ec := NewExecContext(2)
	ec.Depth = 2
	res, err := rec.Execute(context.Background(), task, ec)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success || res.Output != "ran flat" {
		t.Errorf("got %+v, want direct execution at the depth cap", res)
	}
	if len(exec.executed) != 0 {
		t.Error("no delegation may happen at the depth cap")
	}
}

func TestRecursiveRetriesRecoverableFailures(t *testing.T) {
	exec := &fakeExecutor{fail: map[string]int{"flaky": 1}}
	_, fallback := newTestRegistry(t)
	rec := NewRecursive(exec, nil, fallback)

	task := &models.Task{ID: "root", Subtasks: []*models.Task{
		{ID: "stable"}, {ID: "flaky"},
	}}
	res, err := rec.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("continuation pass should have recovered: %s", res.Error)
	}
	count := 0
	for _, id := range exec.executed {
		if id == "flaky" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("flaky executed %d times, want 2", count)
	}
}

func TestRecursiveSkipsSubtasksBehindFailedDependency(t *testing.T) {
	exec := &fakeExecutor{fail: map[string]int{"base": 10}}
	_, fallback := newTestRegistry(t)
	rec := NewRecursive(exec, nil, fallback)

	task := &models.Task{ID: "root", Subtasks: []*models.Task{
		{ID: "base"},
		{ID: "dependent", Dependencies: models.Deps("base")},
	}}
	res, err := rec.Execute(context.Background(), task, NewExecContext(3))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("run must fail when a dependency chain fails")
	}
	for _, id := range exec.executed {
		if id == "dependent" {
			t.Error("dependent ran despite failed dependency")
		}
	}
	if res.Metadata["failed"].(int) < 2 {
		t.Errorf("failed = %v, want base and dependent both counted", res.Metadata["failed"])
	}
}

func TestRecursiveCircularSubtasksFault(t *testing.T) {
	exec := &fakeExecutor{}
	_, fallback := newTestRegistry(t)
	rec := NewRecursive(exec, nil, fallback)

	task := &models.Task{ID: "root", Subtasks: []*models.Task{
		{ID: "a", Dependencies: models.Deps("b")},
		{ID: "b", Dependencies: models.Deps("a")},
	}}
	_, err := rec.Execute(context.Background(), task, NewExecContext(3))
	if err == nil {
		t.Fatal("expected error for circular subtasks")
	}
	if faults.KindOf(err) != faults.KindDependencyCircular {
		t.Errorf("kind = %v, want %v", faults.KindOf(err), faults.KindDependencyCircular)
	}
}

func TestParseDecompositionRejectsGarbage(t *testing.T) {
	if _, err := parseDecomposition("no json here"); err == nil {
		t.Error("expected error for response without a JSON array")
	}
	if _, err := parseDecomposition("[]"); err == nil {
		t.Error("expected error for empty task list")
	}
	if _, err := parseDecomposition(`[{"title": "a", "depends_on": ["ghost"]}]`); err == nil {
		t.Error("expected error for unknown dependency title")
	}
}
