// Package queue provides a bounded-concurrency scheduler for prioritized,
// identified work items.
package queue

import (
	"container/heap"
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/ShayCichocki/strata/internal/faults"
)

// WorkFunc is the unit of work a queue entry executes.
type WorkFunc func(ctx context.Context) error

// item is one queued entry. Higher priority runs first; equal priorities
// run in submission order.
type item struct {
	id         string
	priority   int
	retryLimit int
	fn         WorkFunc
	seq        uint64
}

// itemHeap orders items by priority descending, then submission order.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(*item)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is a bounded-concurrency work scheduler. No more than the
// configured number of entries execute at once; the rest wait in a
// priority order. Safe for concurrent use.
type Queue struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	cond    *sync.Cond
	pending itemHeap
	seq     uint64
	closed  bool

	wg sync.WaitGroup
}

// New creates a queue executing at most maxConcurrent entries at a time.
// Values below 1 are treated as 1.
func New(maxConcurrent int) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		ctx:    ctx,
		cancel: cancel,
	}
	q.cond = sync.NewCond(&q.mu)

	go q.dispatch()
	return q
}

// Submit enqueues a work function under an identifier and priority.
// The work is retried up to retryLimit additional times if it returns an
// error. Submitting to a closed queue is a queue-draining fault.
func (q *Queue) Submit(id string, priority, retryLimit int, fn WorkFunc) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return faults.New(faults.KindQueueDraining, id, "queue closed, rejecting work item")
	}

	q.seq++
	heap.Push(&q.pending, &item{
		id:         id,
		priority:   priority,
		retryLimit: retryLimit,
		fn:         fn,
		seq:        q.seq,
	})
	q.wg.Add(1)
	q.cond.Signal()
	return nil
}

// dispatch runs items under the concurrency bound. A slot is acquired
// before an item is popped so that priorities apply to everything still
// waiting, not just to late submissions.
func (q *Queue) dispatch() {
	for {
		if err := q.sem.Acquire(q.ctx, 1); err != nil {
			return
		}

		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			q.sem.Release(1)
			return
		}
		it := heap.Pop(&q.pending).(*item)
		q.mu.Unlock()

		go func(it *item) {
			defer q.sem.Release(1)
			defer q.wg.Done()
			q.run(it)
		}(it)
	}
}

// run executes one item, retrying on error up to its retry limit.
func (q *Queue) run(it *item) {
	for attempt := 0; ; attempt++ {
		err := it.fn(q.ctx)
		if err == nil || attempt >= it.retryLimit {
			return
		}
		if q.ctx.Err() != nil {
			return
		}
	}
}

// Wait blocks until all submitted work has settled.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Close stops accepting new work and drains what was already submitted.
// Close returns after everything settles.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.wg.Wait()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
}

// Len returns the number of items waiting to be dispatched.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
