package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayCichocki/strata/internal/faults"
)

func TestQueueRunsSubmittedWork(t *testing.T) {
	q := New(2)
	defer q.Close()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		err := q.Submit("item", 0, 0, func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	q.Wait()
	if ran.Load() != 5 {
		t.Errorf("expected 5 executions, got %d", ran.Load())
	}
}

func TestQueueConcurrencyBound(t *testing.T) {
	const bound = 3
	q := New(bound)
	defer q.Close()

	var mu sync.Mutex
	current, peak := 0, 0

	for i := 0; i < 10; i++ {
		_ = q.Submit("item", 0, 0, func(ctx context.Context) error {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return nil
		})
	}

	q.Wait()
	if peak > bound {
		t.Errorf("observed %d concurrent executions, bound is %d", peak, bound)
	}
	if peak == 0 {
		t.Error("no work observed")
	}
}

func TestQueuePriorityOrder(t *testing.T) {
	// A single slot serializes execution so dispatch order is observable.
	q := New(1)
	defer q.Close()

	var mu sync.Mutex
	var order []string

	// Block the slot so remaining submissions queue up.
	release := make(chan struct{})
	_ = q.Submit("gate", 100, 0, func(ctx context.Context) error {
		<-release
		return nil
	})
	time.Sleep(20 * time.Millisecond)

	for _, entry := range []struct {
		id       string
		priority int
	}{
		{"low", 1},
		{"high", 10},
		{"mid", 5},
	} {
		id := entry.id
		_ = q.Submit(id, entry.priority, 0, func(ctx context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		})
	}

	close(release)
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"high", "mid", "low"}
	if len(order) != 3 {
		t.Fatalf("expected 3 executions, got %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestQueueRetriesFailedWork(t *testing.T) {
	q := New(1)
	defer q.Close()

	var attempts atomic.Int32
	_ = q.Submit("flaky", 0, 2, func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	q.Wait()
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", attempts.Load())
	}
}

func TestQueueSubmitAfterClose(t *testing.T) {
	q := New(1)
	q.Close()

	err := q.Submit("late", 0, 0, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error submitting to closed queue")
	}
	if faults.KindOf(err) != faults.KindQueueDraining {
		t.Errorf("expected queue draining fault, got %s", faults.KindOf(err))
	}
}

func TestQueueWaitOnEmptyQueue(t *testing.T) {
	q := New(1)
	defer q.Close()

	done := make(chan struct{})
	go func() {
		q.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait on empty queue did not return")
	}
}
