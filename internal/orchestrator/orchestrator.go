package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/strata/internal/analyzer"
	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/internal/graph"
	"github.com/ShayCichocki/strata/internal/llm"
	"github.com/ShayCichocki/strata/internal/recovery"
	"github.com/ShayCichocki/strata/internal/strategy"
	"github.com/ShayCichocki/strata/internal/tool"
	"github.com/ShayCichocki/strata/pkg/models"
)

// RequiredConfig contains the minimal required configuration for an
// Orchestrator. All fields are required and have no defaults.
type RequiredConfig struct {
	// Tools is the registry the atomic strategy executes against.
	Tools *tool.Registry
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	maxConcurrency int
	maxDepth       int
	defaultTimeout time.Duration
	historySize    int
	eventBuffer    int
	client         llm.Client
	logger         *DebugLogger
	analyzer       *analyzer.Analyzer
	recovery       *recovery.Engine
}

// WithMaxConcurrency sets the concurrency bound for parallel execution
// and the run queue.
func WithMaxConcurrency(n int) Option {
	return func(o *orchestratorOptions) { o.maxConcurrency = n }
}

// WithMaxDepth bounds recursive decomposition depth.
func WithMaxDepth(n int) Option {
	return func(o *orchestratorOptions) { o.maxDepth = n }
}

// WithDefaultTimeout sets the per-run timeout applied when a task does
// not carry its own. Zero disables the default timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.defaultTimeout = d }
}

// WithHistorySize bounds the execution history ring.
func WithHistorySize(n int) Option {
	return func(o *orchestratorOptions) { o.historySize = n }
}

// WithEventBuffer sets the emitter's channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *orchestratorOptions) { o.eventBuffer = n }
}

// WithClient sets the completion client used for recursive decomposition.
func WithClient(c llm.Client) Option {
	return func(o *orchestratorOptions) { o.client = c }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithAnalyzer injects a pre-built analyzer, mainly for tests.
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(o *orchestratorOptions) { o.analyzer = a }
}

// WithRecoveryEngine injects a pre-built recovery engine.
func WithRecoveryEngine(e *recovery.Engine) Option {
	return func(o *orchestratorOptions) { o.recovery = e }
}

// Orchestrator coordinates the entire execution path for a task: strategy
// selection, scheduling, recovery, events, and history. It implements
// strategy.Executor so the recursive strategy can delegate subtasks back
// through it.
type Orchestrator struct {
	tools          *tool.Registry
	analyzer       *analyzer.Analyzer
	strategies     *strategy.Registry
	resolver       *strategy.Resolver
	recovery       *recovery.Engine
	emitter        *EventEmitter
	history        *History
	logger         *DebugLogger
	maxConcurrency int
	maxDepth       int
	defaultTimeout time.Duration

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates an Orchestrator with the full strategy family registered.
func New(cfg RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if cfg.Tools == nil {
		return nil, faults.New(faults.KindConfiguration, "", "tool registry is required")
	}

	o := &orchestratorOptions{
		maxConcurrency: 4,
		maxDepth:       5,
		historySize:    100,
		eventBuffer:    100,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.analyzer == nil {
		o.analyzer = analyzer.New()
	}
	if o.recovery == nil {
		o.recovery = recovery.NewEngine()
	}
	if o.logger == nil {
		o.logger = &DebugLogger{}
	}

	orch := &Orchestrator{
		tools:          cfg.Tools,
		analyzer:       o.analyzer,
		recovery:       o.recovery,
		emitter:        NewEventEmitter(o.eventBuffer),
		history:        NewHistory(o.historySize),
		logger:         o.logger,
		maxConcurrency: o.maxConcurrency,
		maxDepth:       o.maxDepth,
		defaultTimeout: o.defaultTimeout,
		active:         make(map[string]context.CancelFunc),
	}

	atomic := strategy.NewAtomic(cfg.Tools)
	registry := strategy.NewRegistry()
	registry.Register(atomic)
	registry.Register(strategy.NewSequential(atomic))
	registry.Register(strategy.NewParallel(atomic, o.maxConcurrency))
	registry.Register(strategy.NewRecursive(orch, o.client, atomic))
	orch.strategies = registry
	orch.resolver = strategy.NewResolver(registry, o.analyzer)

	return orch, nil
}

// Events returns the subscriber channel for run events.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// History returns the execution history.
func (o *Orchestrator) History() *History {
	return o.history
}

// Analyzer returns the task analyzer, which accumulates performance
// records across runs.
func (o *Orchestrator) Analyzer() *analyzer.Analyzer {
	return o.analyzer
}

// Statistics returns the aggregate counters over the execution history.
func (o *Orchestrator) Statistics() Statistics {
	return o.history.Statistics()
}

// ActiveExecutions returns the execution IDs of runs currently in flight.
func (o *Orchestrator) ActiveExecutions() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(o.active))
	for id := range o.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateConfiguration adjusts the execution limits for subsequent runs.
// Zero or negative values leave the current setting unchanged. Runs
// already in flight keep the limits they started with.
func (o *Orchestrator) UpdateConfiguration(maxConcurrency, maxDepth int, defaultTimeout time.Duration) {
	o.mu.Lock()
	if maxConcurrency > 0 {
		o.maxConcurrency = maxConcurrency
	}
	if maxDepth > 0 {
		o.maxDepth = maxDepth
	}
	if defaultTimeout > 0 {
		o.defaultTimeout = defaultTimeout
	}
	o.mu.Unlock()

	if maxConcurrency > 0 {
		if atomic, err := o.strategies.Get(models.StrategyAtomic); err == nil {
			o.strategies.Register(strategy.NewParallel(atomic, maxConcurrency))
		}
	}
}

// Cancel aborts the run with the given execution ID. Returns false if no
// such run is active.
func (o *Orchestrator) Cancel(executionID string) bool {
	o.mu.Lock()
	cancel, ok := o.active[executionID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Close shuts the emitter down. Active runs are unaffected.
func (o *Orchestrator) Close() {
	o.emitter.Close()
}

// Run executes a task end to end and always returns a result, never an
// error: every failure mode is folded into the result's error fields.
func (o *Orchestrator) Run(ctx context.Context, task *models.Task) *models.RunResult {
	start := time.Now()
	o.mu.Lock()
	maxDepth, defaultTimeout := o.maxDepth, o.defaultTimeout
	o.mu.Unlock()
	ec := strategy.NewExecContext(maxDepth)

	if task == nil || task.ID == "" {
		return o.finishRun(task, ec, start, nil, faults.New(faults.KindTaskValidation, "", "task has no id"), nil)
	}

	timeout := task.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	o.mu.Lock()
	o.active[ec.ExecutionID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.active, ec.ExecutionID)
		o.mu.Unlock()
	}()

	var plan *models.ExecutionPlan
	if task.IsComposite() {
		res := graph.Resolve(task.Subtasks)
		if !res.Success {
			rr := o.recovery.Recover(task, faults.KindDependencyCircular, res.Error, res.Graph)
			o.logger.Log("run %s: unresolvable dependencies: %s (%s)", ec.ExecutionID, res.Error, rr.Message)
			return o.finishRun(task, ec, start,
				nil, faults.New(faults.KindDependencyCircular, task.ID, "%s: %s", res.Error, rr.Message), nil)
		}
		plan = &models.ExecutionPlan{Order: res.Order, Groups: res.Groups}
	}

	res, err := o.Execute(runCtx, task, ec)
	if err == nil && res != nil && !res.Success && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		err = faults.New(faults.KindTaskTimeout, task.ID, "task %s timed out after %s", task.ID, timeout)
	}
	return o.finishRun(task, ec, start, res, err, plan)
}

// finishRun folds a strategy result or fault into the run result, records
// history, and emits the terminal event.
func (o *Orchestrator) finishRun(task *models.Task, ec *strategy.ExecContext, start time.Time, res *strategy.Result, err error, plan *models.ExecutionPlan) *models.RunResult {
	duration := time.Since(start)
	taskID := ""
	strategyName := ""
	if task != nil {
		taskID = task.ID
		strategyName = lastStrategy(res)
	}

	out := &models.RunResult{
		Metadata: models.RunMetadata{
			ExecutionID:   ec.ExecutionID,
			Duration:      duration,
			Strategy:      strategyName,
			ExecutionPlan: plan,
		},
	}

	switch {
	case err != nil:
		kind := faults.KindOf(err)
		if taskID == "" {
			out.Error = fmt.Sprintf("run failed: %v", err)
		} else {
			out.Error = fmt.Sprintf("task %s failed: %v", taskID, err)
		}
		out.ErrorCode = kind.Code()
		out.Retryable = faults.IsRetryable(err)
		out.Metadata.FailedCount = 1
	case res == nil:
		out.Error = "no result produced"
		out.ErrorCode = faults.KindUnknown.Code()
		out.Metadata.FailedCount = 1
	case !res.Success:
		out.Error = res.Error
		out.ErrorCode = faults.KindFor(faults.Classify(res.Error)).Code()
		out.Retryable = faults.Recoverable(res.Error)
		out.Metadata.CompletedCount, out.Metadata.FailedCount = resultCounts(res)
	default:
		out.Success = true
		out.Output = res.Output
		out.Metadata.CompletedCount, out.Metadata.FailedCount = resultCounts(res)
	}

	o.history.Record(ExecutionRecord{
		ExecutionID: ec.ExecutionID,
		TaskID:      taskID,
		Strategy:    strategyName,
		Success:     out.Success,
		Duration:    duration,
		Error:       out.Error,
		Timestamp:   time.Now(),
	})

	o.emitter.Emit(Event{
		Type:        EventRunDone,
		TaskID:      taskID,
		ExecutionID: ec.ExecutionID,
		Message:     out.Error,
		Duration:    duration,
	})
	return out
}

// resultCounts extracts completion counts from strategy metadata. A
// strategy without counts contributes a single unit of work.
func resultCounts(res *strategy.Result) (completed, failed int) {
	if res.Metadata != nil {
		if v, ok := res.Metadata["succeeded"].(int); ok {
			f, _ := res.Metadata["failed"].(int)
			return v, f
		}
		if v, ok := res.Metadata["completed_steps"].(int); ok {
			if res.Success {
				return v, 0
			}
			return v, 1
		}
		if total, ok := res.Metadata["subtasks"].(int); ok {
			f, _ := res.Metadata["failed"].(int)
			return total - f, f
		}
	}
	if res.Success {
		return 1, 0
	}
	return 0, 1
}

// lastStrategy reads the strategy that produced the result, when recorded.
func lastStrategy(res *strategy.Result) string {
	if res == nil || res.Metadata == nil {
		return ""
	}
	if s, ok := res.Metadata["strategy"].(string); ok {
		return s
	}
	return ""
}

// Execute runs one task through strategy selection and recovery. It is
// the strategy.Executor implementation: the recursive strategy calls back
// into it for every subtask, so each subtask gets its own selection,
// events, and recovery attempts.
func (o *Orchestrator) Execute(ctx context.Context, task *models.Task, ec *strategy.ExecContext) (*strategy.Result, error) {
	start := time.Now()

	strat, rec, err := o.resolver.Resolve(task)
	if err != nil {
		return nil, err
	}

	selected := Event{
		Type:        EventStrategySelected,
		TaskID:      task.ID,
		ExecutionID: ec.ExecutionID,
		Strategy:    string(strat.Name()),
	}
	if rec != nil {
		selected.Message = fmt.Sprintf("confidence %.2f: %s", rec.Confidence, firstReason(rec))
	}
	o.emitter.Emit(selected)
	o.emitter.Emit(Event{Type: EventTaskStarted, TaskID: task.ID, ExecutionID: ec.ExecutionID})
	o.logger.Log("execute %s task=%s strategy=%s depth=%d", ec.ExecutionID, task.ID, strat.Name(), ec.Depth)

	res, err := o.runWithRecovery(ctx, strat, task, ec)
	duration := time.Since(start)

	o.recordPerformance(task, strat.Name(), res, err, duration)

	if err != nil {
		o.emitter.Emit(Event{Type: EventTaskFailed, TaskID: task.ID, ExecutionID: ec.ExecutionID, Error: err, Duration: duration})
		return nil, err
	}
	if res.Metadata == nil {
		res.Metadata = map[string]interface{}{}
	}
	res.Metadata["strategy"] = string(strat.Name())

	if res.Success {
		o.emitter.Emit(Event{Type: EventTaskCompleted, TaskID: task.ID, ExecutionID: ec.ExecutionID, Duration: duration})
	} else {
		o.emitter.Emit(Event{
			Type:        EventTaskFailed,
			TaskID:      task.ID,
			ExecutionID: ec.ExecutionID,
			Message:     res.Error,
			Duration:    duration,
		})
	}
	return res, nil
}

// runWithRecovery executes the task under its strategy, routing every
// failure through the recovery engine. Recovery may delay and retry,
// possibly under a fallback strategy; its attempt budget guarantees the
// loop terminates.
func (o *Orchestrator) runWithRecovery(ctx context.Context, strat strategy.Strategy, task *models.Task, ec *strategy.ExecContext) (*strategy.Result, error) {
	for {
		res, err := strat.Execute(ctx, task, ec)
		if err == nil && res != nil && res.Success {
			o.recovery.Reset(task.ID)
			return res, nil
		}
		if ctx.Err() != nil {
			return res, err
		}

		kind := faults.KindUnknown
		message := ""
		if err != nil {
			kind = faults.KindOf(err)
			message = err.Error()
		} else if res != nil {
			message = res.Error
		}

		rr := o.recovery.Recover(task, kind, message, nil)
		if !rr.Retry {
			o.logger.Log("task %s not recovered: %s", task.ID, rr.Message)
			return res, err
		}

		o.emitter.Emit(Event{
			Type:        EventTaskRecovered,
			TaskID:      task.ID,
			ExecutionID: ec.ExecutionID,
			Message:     rr.Message,
		})
		if rr.Delay > 0 {
			select {
			case <-ctx.Done():
				return res, err
			case <-time.After(rr.Delay):
			}
		}
		if rr.FallbackStrategy != "" {
			next, gerr := o.strategies.Get(rr.FallbackStrategy)
			if gerr != nil {
				return res, err
			}
			strat = next
		}
	}
}

// recordPerformance feeds the analyzer's history so later recommendations
// can blend in observed success rates.
func (o *Orchestrator) recordPerformance(task *models.Task, name models.StrategyName, res *strategy.Result, err error, duration time.Duration) {
	record := analyzer.PerformanceRecord{
		Strategy:        name,
		Complexity:      o.analyzer.AnalyzeComplexity(task).Overall,
		DependencyCount: len(task.Dependencies),
		Duration:        duration,
	}
	switch {
	case err != nil:
		record.ErrorCategory = faults.Classify(err.Error())
	case res != nil && !res.Success:
		record.ErrorCategory = faults.Classify(res.Error)
	default:
		record.Success = true
	}
	o.analyzer.RecordPerformance(record)
}

func firstReason(rec *analyzer.Recommendation) string {
	if rec == nil || len(rec.Reasoning) == 0 {
		return ""
	}
	return rec.Reasoning[0]
}
