package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/internal/graph"
	"github.com/ShayCichocki/strata/internal/llm"
	"github.com/ShayCichocki/strata/pkg/models"
)

// Executor runs a single task end to end, selecting whatever strategy fits
// it. The orchestrator satisfies this; the indirection keeps the recursive
// strategy from depending on the orchestrator package directly.
type Executor interface {
	Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error)
}

// decomposedTask is the JSON structure returned by the model for one subtask.
type decomposedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tool        string   `json:"tool"`
	DependsOn   []string `json:"depends_on"`
}

const decompositionPrompt = `Break this task into smaller subtasks. Each subtask should be independently executable.

Task:
%s

Return ONLY a JSON array of subtasks with this exact structure (no other text):
[
  {
    "title": "Short subtask title",
    "description": "Detailed subtask description",
    "tool": "name of tool to run, or empty string",
    "depends_on": ["title of dependency 1"]
  }
]

Guidelines:
- Subtasks should be as independent as possible
- Only add dependencies when one subtask genuinely needs another's output
- Use empty array [] for depends_on if there are no dependencies
- Prefer 2-6 subtasks; do not split work that is already small`

// Recursive decomposes composite tasks into subtasks and delegates each one
// back to the executor, which selects a fresh strategy per subtask. Leaf
// tasks fall through to the atomic fallback. Depth is bounded by the
// execution context; at the cap the task runs as a leaf instead of
// decomposing further.
type Recursive struct {
	exec     Executor
	client   llm.Client
	fallback Strategy
}

// NewRecursive creates the recursive strategy. client may be nil, in which
// case only tasks with pre-declared subtasks can be decomposed.
func NewRecursive(exec Executor, client llm.Client, fallback Strategy) *Recursive {
	return &Recursive{exec: exec, client: client, fallback: fallback}
}

// Name returns the strategy name.
func (r *Recursive) Name() models.StrategyName { return models.StrategyRecursive }

// Execute classifies the task, decomposes it if composite, and runs the
// subtasks in dependency order through the executor. Failed subtasks that
// classify as recoverable get one continuation pass before the execution
// settles.
func (r *Recursive) Execute(ctx context.Context, task *models.Task, ec *ExecContext) (*Result, error) {
	if task.Classification == "" {
		if r.isLeaf(task) {
			task.Classification = models.ClassificationAtomic
		} else {
			task.Classification = models.ClassificationComposite
		}
	}

	if task.Classification == models.ClassificationAtomic || ec.Depth >= ec.MaxDepth {
		return r.fallback.Execute(ctx, task, ec)
	}

	subtasks := task.Subtasks
	if len(subtasks) == 0 {
		decomposed, err := r.decompose(ctx, task)
		if err != nil {
			return nil, faults.Wrap(faults.KindStrategyExecution, task.ID, fmt.Errorf("decompose: %w", err))
		}
		subtasks = decomposed
		task.Subtasks = subtasks
	}

	order, err := subtaskOrder(subtasks)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*Result, len(subtasks))
	failed := r.runPass(ctx, order, ec, results)

	// One continuation pass over recoverable failures before giving up.
	if len(failed) > 0 {
		var retryable []*models.Task
		var terminal []*models.Task
		for _, st := range failed {
			if faults.Recoverable(results[st.ID].Error) {
				retryable = append(retryable, st)
			} else {
				terminal = append(terminal, st)
			}
		}
		if len(retryable) > 0 {
			failed = append(terminal, r.runPass(ctx, retryable, ec, results)...)
		}
	}

	outputs := make(map[string]interface{}, len(results))
	for id, res := range results {
		outputs[id] = res.Output
	}
	metadata := map[string]interface{}{
		"subtasks":  len(subtasks),
		"failed":    len(failed),
		"outputs":   outputs,
		"max_depth": ec.MaxDepth,
	}

	if len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, st := range failed {
			ids[i] = st.ID
		}
		return &Result{
			Error:    fmt.Sprintf("%d of %d subtasks failed: %s", len(failed), len(subtasks), strings.Join(ids, ", ")),
			Metadata: metadata,
		}, nil
	}
	return &Result{
		Success:  true,
		Output:   fmt.Sprintf("completed %d subtasks", len(subtasks)),
		Metadata: metadata,
	}, nil
}

// runPass executes the given subtasks in order, recording results and
// returning the ones that failed. A subtask whose dependency has already
// failed is skipped and recorded as failed itself.
func (r *Recursive) runPass(ctx context.Context, subtasks []*models.Task, ec *ExecContext, results map[string]*Result) []*models.Task {
	var failed []*models.Task
	for _, st := range subtasks {
		if blocked := blockedOn(st, results); blocked != "" {
			results[st.ID] = &Result{Error: fmt.Sprintf("dependency %s failed", blocked)}
			failed = append(failed, st)
			continue
		}
		res, err := r.exec.Execute(ctx, st, ec.Child())
		if err != nil {
			res = &Result{Error: err.Error()}
		}
		results[st.ID] = res
		if !res.Success {
			failed = append(failed, st)
		}
	}
	return failed
}

func blockedOn(task *models.Task, results map[string]*Result) string {
	for _, id := range task.DependencyIDs() {
		if res, ok := results[id]; ok && !res.Success {
			return id
		}
	}
	return ""
}

func (r *Recursive) isLeaf(task *models.Task) bool {
	if task.Atomic {
		return true
	}
	if len(task.Subtasks) > 0 {
		return false
	}
	// Without a client there is nothing to decompose with.
	return r.client == nil || task.Tool != "" || task.Run != nil
}

// decompose asks the model to split the task and parses the JSON array it
// returns. Titles are mapped to generated IDs so depends_on references
// survive the translation.
func (r *Recursive) decompose(ctx context.Context, task *models.Task) ([]*models.Task, error) {
	if r.client == nil {
		return nil, fmt.Errorf("no completion client configured")
	}

	desc := task.Prompt
	if desc == "" {
		desc = task.Description
	}
	completion, err := r.client.Complete(ctx, fmt.Sprintf(decompositionPrompt, desc), llm.CompleteOptions{})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	return parseDecomposition(completion.Content)
}

func parseDecomposition(response string) ([]*models.Task, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, fmt.Errorf("no valid JSON array found in response (got %d chars): %q", len(response), preview)
	}

	var decomposed []decomposedTask
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &decomposed); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if len(decomposed) == 0 {
		return nil, fmt.Errorf("empty subtask list returned")
	}

	titleToID := make(map[string]string, len(decomposed))
	tasks := make([]*models.Task, len(decomposed))
	for i, dt := range decomposed {
		id := uuid.New().String()
		titleToID[dt.Title] = id
		tasks[i] = &models.Task{
			ID:          id,
			Description: dt.Description,
			Tool:        dt.Tool,
		}
	}
	for i, dt := range decomposed {
		for _, title := range dt.DependsOn {
			depID, ok := titleToID[title]
			if !ok {
				return nil, fmt.Errorf("subtask %q depends on unknown subtask %q", dt.Title, title)
			}
			tasks[i].Dependencies = append(tasks[i].Dependencies, models.Dep(depID))
		}
	}
	return tasks, nil
}

// subtaskOrder returns the subtasks in dependency order, surfacing circular
// references as a dependency fault.
func subtaskOrder(subtasks []*models.Task) ([]*models.Task, error) {
	res := graph.Resolve(subtasks)
	if !res.Success {
		return nil, faults.New(faults.KindDependencyCircular, "", "resolve subtasks: %s", res.Error)
	}
	ordered := make([]*models.Task, 0, len(res.Order))
	for _, id := range res.Order {
		if t := res.Graph.GetTask(id); t != nil {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}
