package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindRetryable(t *testing.T) {
	retryable := []Kind{
		KindTaskExecution,
		KindTaskTimeout,
		KindQueueCapacity,
		KindResourceUnavailable,
		KindSystem,
	}
	for _, k := range retryable {
		if !k.Retryable() {
			t.Errorf("expected %s to be retryable", k)
		}
	}

	terminal := []Kind{
		KindTaskValidation,
		KindDependencyCircular,
		KindDependencyMissing,
		KindStrategySelection,
		KindConfiguration,
	}
	for _, k := range terminal {
		if k.Retryable() {
			t.Errorf("expected %s to not be retryable", k)
		}
	}
}

func TestKindAction(t *testing.T) {
	for kind := range kinds {
		if kind.Action() == "" {
			t.Errorf("kind %s has no recommended action", kind)
		}
		if kind.Code() == "" {
			t.Errorf("kind %s has no code", kind)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(KindTaskExecution, "t1", "tool %s failed", "calc")
	msg := err.Error()
	if !strings.Contains(msg, "t1") {
		t.Errorf("expected task ID in message, got %q", msg)
	}
	if !strings.Contains(msg, "tool calc failed") {
		t.Errorf("expected formatted message, got %q", msg)
	}

	noTask := New(KindSystem, "", "transient failure")
	if strings.Contains(noTask.Error(), "task") {
		t.Errorf("expected no task context, got %q", noTask.Error())
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindSystem, "t1", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to match cause")
	}
	if KindOf(err) != KindSystem {
		t.Errorf("KindOf = %s, want %s", KindOf(err), KindSystem)
	}
	if Wrap(KindSystem, "t1", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := New(KindTaskTimeout, "t1", "deadline exceeded")
	outer := fmt.Errorf("run failed: %w", inner)

	if KindOf(outer) != KindTaskTimeout {
		t.Errorf("KindOf through chain = %s, want %s", KindOf(outer), KindTaskTimeout)
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain errors should classify as unknown kind")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(KindTaskExecution, "t1", "boom")) {
		t.Error("task execution faults should be retryable")
	}
	if IsRetryable(New(KindDependencyCircular, "t1", "cycle")) {
		t.Error("circular dependency faults should not be retryable")
	}
	// Untyped errors fall back to message classification.
	if !IsRetryable(errors.New("connection reset by peer")) {
		t.Error("network errors should be retryable")
	}
	if IsRetryable(errors.New("permission denied: /etc/shadow")) {
		t.Error("permission errors should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}
