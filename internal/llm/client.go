// Package llm defines the language-model client contract used by the
// recursive strategy's classification, decomposition, and evaluation steps.
package llm

import "context"

// CompleteOptions tunes one completion request.
type CompleteOptions struct {
	// System is an optional system prompt.
	System string
	// MaxTokens bounds the response length. Zero means the client default.
	MaxTokens int
}

// Completion is the response to one completion request.
type Completion struct {
	// Content is the text of the completion.
	Content string
	// InputTokens and OutputTokens are the reported token usage, if known.
	InputTokens  int64
	OutputTokens int64
}

// Client completes prompts. Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends a prompt and returns the model's completion.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (*Completion, error)
}
