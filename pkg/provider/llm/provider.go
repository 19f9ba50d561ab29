// Package llm defines the Provider interface for Large Language Model
// backends.
//
// Call analysis and coaching plan generation both reduce to the same shape:
// one system prompt, one user prompt, one completion. The interface stays
// deliberately small so any chat-completion backend can satisfy it.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// CompletionRequest is one single-turn completion job.
type CompletionRequest struct {
	// SystemPrompt sets the model's role and output contract. Optional.
	SystemPrompt string

	// Prompt is the user-turn content.
	Prompt string

	// Temperature controls sampling randomness. Zero means the backend
	// default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the backend default.
	MaxTokens int
}

// Usage reports token consumption for a completion, when the backend
// provides it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the outcome of a successful completion.
type CompletionResponse struct {
	// Content is the model's text output.
	Content string

	// Usage holds token counts, or zeros when the backend does not report
	// them.
	Usage Usage
}

// Provider is the abstraction over any chat-completion LLM backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Complete runs one single-turn completion and blocks until the backend
	// returns. The context bounds the whole operation; implementations must
	// honour cancellation.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
