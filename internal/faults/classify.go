package faults

import "strings"

// Category is a named classification of free-form error text.
// Categories are independent of the Kind taxonomy: kinds drive recovery
// routing, categories describe what the underlying message looks like.
type Category string

const (
	CategoryTimeout           Category = "timeout"
	CategoryNetwork           Category = "network"
	CategoryRateLimit         Category = "rate_limit"
	CategoryParsing           Category = "parsing"
	CategoryToolMissing       Category = "tool_missing"
	CategoryLLMFailure        Category = "llm_failure"
	CategoryAuthError         Category = "auth_error"
	CategoryPermissionDenied  Category = "permission_denied"
	CategoryResourceExhausted Category = "resource_exhausted"
	CategoryCircularDep       Category = "circular_dependency"
	CategoryMissingDep        Category = "missing_dependency"
	CategoryValidationError   Category = "validation_error"
	CategoryMalformedTask     Category = "malformed_task"
	CategoryCancelled         Category = "cancelled"
	CategoryQueueFull         Category = "queue_full"
	CategoryFileIO            Category = "file_io"
	CategoryMemory            Category = "memory"
	CategoryConflict          Category = "conflict"
	CategoryNotFound          Category = "not_found"
	CategoryUnknown           Category = "unknown"
)

// categoryRule maps message substrings to a category. Rules are evaluated
// in order; the first match wins, so more specific substrings come first.
type categoryRule struct {
	substrings []string
	category   Category
}

var categoryRules = []categoryRule{
	{[]string{"circular dependency", "dependency cycle", "cycle detected"}, CategoryCircularDep},
	{[]string{"missing dependency", "unresolved dependency", "dependency failed"}, CategoryMissingDep},
	{[]string{"malformed task", "invalid task"}, CategoryMalformedTask},
	{[]string{"tool not found", "unknown tool", "no tool registered", "tool_missing"}, CategoryToolMissing},
	{[]string{"rate limit", "rate_limit", "429", "too many requests"}, CategoryRateLimit},
	{[]string{"unauthorized", "authentication", "invalid api key", "401"}, CategoryAuthError},
	{[]string{"permission denied", "forbidden", "403", "access denied"}, CategoryPermissionDenied},
	{[]string{"resource exhausted", "quota exceeded", "out of capacity"}, CategoryResourceExhausted},
	{[]string{"out of memory", "oom", "memory limit"}, CategoryMemory},
	{[]string{"queue full", "queue at capacity", "queue closed", "queue draining"}, CategoryQueueFull},
	{[]string{"deadline exceeded", "timed out", "timeout"}, CategoryTimeout},
	{[]string{"connection refused", "connection reset", "no such host", "network", "dns", "broken pipe", "eof"}, CategoryNetwork},
	{[]string{"llm", "model overloaded", "completion failed", "claude"}, CategoryLLMFailure},
	{[]string{"parse", "unmarshal", "invalid json", "invalid yaml", "syntax error"}, CategoryParsing},
	{[]string{"validation", "invalid argument", "invalid parameter"}, CategoryValidationError},
	{[]string{"context canceled", "cancelled", "canceled", "aborted"}, CategoryCancelled},
	{[]string{"no such file", "file exists", "read-only file system", "disk", "i/o error"}, CategoryFileIO},
	{[]string{"conflict", "already locked", "lock held"}, CategoryConflict},
	{[]string{"not found", "does not exist", "404"}, CategoryNotFound},
}

// Classify maps free-form error text or a code to a named category using
// ordered substring matching. Unmatched text classifies as unknown.
func Classify(message string) Category {
	lower := strings.ToLower(message)
	for _, rule := range categoryRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

// nonRecoverable is the fixed denylist of categories whose partial results
// are never worth salvaging with a retry.
var nonRecoverable = map[Category]bool{
	CategoryAuthError:         true,
	CategoryPermissionDenied:  true,
	CategoryMalformedTask:     true,
	CategoryCircularDep:       true,
	CategoryResourceExhausted: true,
}

// Recoverable reports whether an error message is, on its face, worth
// retrying. Messages matching the non-recoverable denylist are not.
func Recoverable(message string) bool {
	return !nonRecoverable[Classify(message)]
}

// KindFor maps a category to the recovery kind that should handle it.
func KindFor(category Category) Kind {
	switch category {
	case CategoryTimeout:
		return KindTaskTimeout
	case CategoryCircularDep:
		return KindDependencyCircular
	case CategoryMissingDep:
		return KindDependencyMissing
	case CategoryToolMissing:
		return KindStrategyExecution
	case CategoryRateLimit, CategoryResourceExhausted, CategoryMemory, CategoryConflict:
		return KindResourceUnavailable
	case CategoryQueueFull:
		return KindQueueCapacity
	case CategoryNetwork, CategoryLLMFailure:
		return KindSystem
	case CategoryValidationError, CategoryMalformedTask:
		return KindTaskValidation
	case CategoryAuthError, CategoryPermissionDenied:
		return KindConfiguration
	default:
		return KindTaskExecution
	}
}
