// Package llm defines the Completer interface for Large Language Model
// backends.
//
// The discovery pipeline uses completions in exactly two spots: turning a
// free-text query into a structured intent, and overriding the baseline
// provider plan. Both expect a single JSON object back and both treat the
// completer as an optional collaborator, so every caller carries a
// deterministic fallback for when no backend is configured or a call fails.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and may differ between providers for the same
// text.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Request carries everything the model needs to produce a response. Messages
// must be non-empty.
type Request struct {
	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Backends without a dedicated system slot prepend it
	// as a "system"-role message.
	SystemPrompt string

	// Messages is the ordered conversation. The last message drives the
	// response.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the backend default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means backend default.
	MaxTokens int

	// JSONOnly asks the backend to constrain output to a single JSON object
	// where it supports that natively. Callers must still instruct the model
	// through the prompt and validate the response; backends without native
	// support ignore the flag.
	JSONOnly bool
}

// Response is the full completion for one Request.
type Response struct {
	// Content is the text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Completer is the abstraction over any LLM backend.
type Completer interface {
	// Complete sends req to the model and waits for the full response. It
	// must propagate context cancellation promptly.
	Complete(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the backend model identifier, for logging.
	ModelID() string
}
