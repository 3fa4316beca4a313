// Package mock provides a test double for the llm.Completer interface.
//
// Use Completer in unit tests to feed controlled completions without a live
// backend and to verify what was asked of the model.
//
// Example:
//
//	c := &mock.Completer{
//	    Response: &llm.Response{Content: `{"category":"cafe"}`},
//	}
//	resp, err := c.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/aroundmehq/aroundme/pkg/provider/llm"
)

// Completer is a mock implementation of llm.Completer.
// Zero values cause Complete to return (nil, nil); set Err to inject errors.
type Completer struct {
	mu sync.Mutex

	// Response is returned by Complete unless Responses or CompleteFunc are
	// set.
	Response *llm.Response

	// Responses, if non-empty, is consumed one entry per Complete call in
	// order; after exhaustion Response is returned.
	Responses []*llm.Response

	// Err, if non-nil, is returned as the error from every Complete call.
	Err error

	// CompleteFunc, if non-nil, handles Complete calls entirely.
	CompleteFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	// Model is returned by ModelID; defaults to "mock-model".
	Model string

	// Calls records every request passed to Complete in order.
	Calls []llm.Request
}

// Complete records the call and returns the configured response.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, req)
	fn := c.CompleteFunc
	err := c.Err
	resp := c.Response
	if len(c.Responses) > 0 {
		resp = c.Responses[0]
		c.Responses = c.Responses[1:]
	}
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ModelID returns the configured model name.
func (c *Completer) ModelID() string {
	if c.Model == "" {
		return "mock-model"
	}
	return c.Model
}

// CallCount returns the number of recorded Complete calls. Thread-safe.
func (c *Completer) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (c *Completer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
}

// Ensure Completer implements llm.Completer at compile time.
var _ llm.Completer = (*Completer)(nil)
