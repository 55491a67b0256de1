package faults

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    Category
	}{
		{"request timed out after 30s", CategoryTimeout},
		{"context deadline exceeded", CategoryTimeout},
		{"dial tcp: connection refused", CategoryNetwork},
		{"429 Too Many Requests", CategoryRateLimit},
		{"failed to unmarshal response", CategoryParsing},
		{"no tool registered with name calc", CategoryToolMissing},
		{"claude completion failed", CategoryLLMFailure},
		{"401 unauthorized", CategoryAuthError},
		{"permission denied", CategoryPermissionDenied},
		{"quota exceeded for project", CategoryResourceExhausted},
		{"circular dependency detected: a -> b -> a", CategoryCircularDep},
		{"task b has unresolved dependency a", CategoryMissingDep},
		{"validation failed for field id", CategoryValidationError},
		{"malformed task: no id", CategoryMalformedTask},
		{"context canceled", CategoryCancelled},
		{"queue at capacity", CategoryQueueFull},
		{"open /tmp/x: no such file or directory", CategoryFileIO},
		{"out of memory", CategoryMemory},
		{"lock held by another worker", CategoryConflict},
		{"task not found", CategoryNotFound},
		{"something entirely novel", CategoryUnknown},
		{"", CategoryUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.message); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.message, got, tt.want)
		}
	}
}

func TestClassifyOrderSpecificFirst(t *testing.T) {
	// "dependency cycle detected during timeout handling" mentions both a
	// cycle and a timeout; the cycle rule is earlier and must win.
	got := Classify("dependency cycle detected while waiting for timeout")
	if got != CategoryCircularDep {
		t.Errorf("expected circular_dependency to win, got %s", got)
	}
}

func TestRecoverableDenylist(t *testing.T) {
	denied := []string{
		"401 unauthorized: invalid api key",
		"permission denied",
		"malformed task: missing id",
		"circular dependency detected",
		"resource exhausted: quota exceeded",
	}
	for _, msg := range denied {
		if Recoverable(msg) {
			t.Errorf("expected %q to be non-recoverable", msg)
		}
	}

	allowed := []string{
		"request timed out",
		"connection refused",
		"tool flaked",
	}
	for _, msg := range allowed {
		if !Recoverable(msg) {
			t.Errorf("expected %q to be recoverable", msg)
		}
	}
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		category Category
		want     Kind
	}{
		{CategoryTimeout, KindTaskTimeout},
		{CategoryCircularDep, KindDependencyCircular},
		{CategoryMissingDep, KindDependencyMissing},
		{CategoryToolMissing, KindStrategyExecution},
		{CategoryRateLimit, KindResourceUnavailable},
		{CategoryQueueFull, KindQueueCapacity},
		{CategoryNetwork, KindSystem},
		{CategoryAuthError, KindConfiguration},
		{CategoryUnknown, KindTaskExecution},
	}
	for _, tt := range tests {
		if got := KindFor(tt.category); got != tt.want {
			t.Errorf("KindFor(%s) = %s, want %s", tt.category, got, tt.want)
		}
	}
}
