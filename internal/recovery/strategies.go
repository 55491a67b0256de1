package recovery

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/ShayCichocki/strata/internal/faults"
	"github.com/ShayCichocki/strata/pkg/models"
)

// TaskRetry retries failed executions with a linearly growing delay.
// Non-retryable faults are never retried.
type TaskRetry struct {
	maxRetries int
	baseDelay  time.Duration
}

// NewTaskRetry creates the retry strategy with its defaults: two extra
// attempts, one second apart per attempt.
func NewTaskRetry() *TaskRetry {
	return &TaskRetry{maxRetries: 2, baseDelay: time.Second}
}

func (s *TaskRetry) Name() string { return "task_retry" }

func (s *TaskRetry) Recover(f Fault) Result {
	if !f.Kind.Retryable() || !faults.Recoverable(f.Message) {
		return Result{
			Action:  f.Kind.Action(),
			Message: fmt.Sprintf("failure is not retryable: %s", f.Message),
		}
	}
	if f.Attempt > s.maxRetries {
		return Result{
			Action:  f.Kind.Action(),
			Message: fmt.Sprintf("retry budget spent after %d attempts", s.maxRetries),
		}
	}
	return Result{
		Recovered: true,
		Retry:     true,
		Delay:     time.Duration(f.Attempt) * s.baseDelay,
		Action:    f.Kind.Action(),
		Message:   fmt.Sprintf("retrying task %s (attempt %d of %d)", f.Task.ID, f.Attempt, s.maxRetries),
	}
}

// CycleBreak handles circular dependencies. Cycles cannot be repaired
// automatically; the strategy names the edge whose removal breaks the
// cycle so the caller can fix the task definition.
type CycleBreak struct{}

// NewCycleBreak creates the cycle reporting strategy.
func NewCycleBreak() *CycleBreak { return &CycleBreak{} }

func (s *CycleBreak) Name() string { return "cycle_break" }

func (s *CycleBreak) Recover(f Fault) Result {
	msg := "circular dependency cannot be recovered automatically"
	if f.Graph != nil {
		if cycle := f.Graph.FindCycle(); len(cycle) >= 2 {
			msg = fmt.Sprintf("break the cycle %s by removing the dependency %s -> %s",
				strings.Join(cycle, " -> "), cycle[len(cycle)-2], cycle[len(cycle)-1])
		}
	}
	return Result{
		Action:  f.Kind.Action(),
		Message: msg,
	}
}

// ResourceWait waits out resource contention with capped exponential
// backoff. A per-resource circuit breaker stops the waiting once a
// resource has failed repeatedly, at which point the recommendation
// switches to substitution.
type ResourceWait struct {
	mu       sync.Mutex
	policies map[string]*backoff.ExponentialBackOff
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewResourceWait creates the resource wait strategy.
func NewResourceWait() *ResourceWait {
	return &ResourceWait{
		policies: make(map[string]*backoff.ExponentialBackOff),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (s *ResourceWait) Name() string { return "resource_wait" }

// resourceKey names the contended resource. The tool name is the closest
// stable identity available; tool-less tasks contend per task.
func resourceKey(t *models.Task) string {
	if t.Tool != "" {
		return t.Tool
	}
	return t.ID
}

func (s *ResourceWait) policyFor(key string) *backoff.ExponentialBackOff {
	if p, ok := s.policies[key]; ok {
		return p
	}
	p := backoff.NewExponentialBackOff()
	p.InitialInterval = 500 * time.Millisecond
	p.MaxInterval = 30 * time.Second
	p.MaxElapsedTime = 0
	s.policies[key] = p
	return p
}

func (s *ResourceWait) breakerFor(key string) *gobreaker.CircuitBreaker {
	if cb, ok := s.breakers[key]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	s.breakers[key] = cb
	return cb
}

func (s *ResourceWait) Recover(f Fault) Result {
	key := resourceKey(f.Task)

	s.mu.Lock()
	cb := s.breakerFor(key)
	policy := s.policyFor(key)
	s.mu.Unlock()

	// Record the failure. When the breaker opens the resource is
	// considered down and waiting longer is pointless.
	_, _ = cb.Execute(func() (interface{}, error) {
		return nil, fmt.Errorf("resource %s unavailable", key)
	})
	if cb.State() == gobreaker.StateOpen {
		return Result{
			Action:  "substitute the resource or wait for it to recover",
			Message: fmt.Sprintf("resource %s has failed repeatedly; not waiting further", key),
		}
	}

	return Result{
		Recovered: true,
		Retry:     true,
		Delay:     policy.NextBackOff(),
		Action:    f.Kind.Action(),
		Message:   fmt.Sprintf("waiting for resource %s before retrying", key),
	}
}

// StrategyFallback re-runs the task under the atomic strategy when the
// selected strategy itself failed.
type StrategyFallback struct{}

// NewStrategyFallback creates the fallback strategy.
func NewStrategyFallback() *StrategyFallback { return &StrategyFallback{} }

func (s *StrategyFallback) Name() string { return "strategy_fallback" }

func (s *StrategyFallback) Recover(f Fault) Result {
	// A task that cannot run atomically has nothing to fall back to.
	if f.Task.Tool == "" && f.Task.Run == nil {
		return Result{
			Action:  f.Kind.Action(),
			Message: fmt.Sprintf("task %s has no atomic form to fall back to", f.Task.ID),
		}
	}
	return Result{
		Recovered:        true,
		Retry:            true,
		FallbackStrategy: models.StrategyAtomic,
		Action:           f.Kind.Action(),
		Message:          fmt.Sprintf("falling back to the atomic strategy for task %s", f.Task.ID),
	}
}

// QueueWait handles queue rejections: capacity pressure waits briefly,
// a draining queue asks the caller to resubmit to a fresh one.
type QueueWait struct {
	capacityDelay time.Duration
}

// NewQueueWait creates the queue recovery strategy.
func NewQueueWait() *QueueWait {
	return &QueueWait{capacityDelay: 2 * time.Second}
}

func (s *QueueWait) Name() string { return "queue_wait" }

func (s *QueueWait) Recover(f Fault) Result {
	if f.Kind == faults.KindQueueDraining {
		return Result{
			Recovered: true,
			Retry:     true,
			Action:    f.Kind.Action(),
			Message:   "queue is draining; resubmit to a fresh queue",
		}
	}
	return Result{
		Recovered: true,
		Retry:     true,
		Delay:     time.Duration(f.Attempt) * s.capacityDelay,
		Action:    f.Kind.Action(),
		Message:   "waiting for queue capacity",
	}
}

// SystemBackoff retries infrastructure failures under full exponential
// backoff with jitter.
type SystemBackoff struct {
	mu       sync.Mutex
	policies map[string]*backoff.ExponentialBackOff
}

// NewSystemBackoff creates the system retry strategy.
func NewSystemBackoff() *SystemBackoff {
	return &SystemBackoff{policies: make(map[string]*backoff.ExponentialBackOff)}
}

func (s *SystemBackoff) Name() string { return "system_backoff" }

func (s *SystemBackoff) Recover(f Fault) Result {
	s.mu.Lock()
	policy, ok := s.policies[f.Task.ID]
	if !ok {
		policy = backoff.NewExponentialBackOff()
		policy.InitialInterval = time.Second
		policy.MaxInterval = time.Minute
		policy.MaxElapsedTime = 5 * time.Minute
		s.policies[f.Task.ID] = policy
	}
	s.mu.Unlock()

	delay := policy.NextBackOff()
	if delay == backoff.Stop {
		return Result{
			Action:  f.Kind.Action(),
			Message: fmt.Sprintf("system failure persisted past the backoff window for task %s", f.Task.ID),
		}
	}
	return Result{
		Recovered: true,
		Retry:     true,
		Delay:     delay,
		Action:    f.Kind.Action(),
		Message:   fmt.Sprintf("transient system failure; retrying task %s", f.Task.ID),
	}
}
