package resilience

import (
	"context"

	"github.com/aroundmehq/aroundme/pkg/provider/llm"
)

// CompleterFallback implements [llm.Completer] with automatic failover across
// multiple completion backends. Each backend has its own circuit breaker; when
// the primary fails or its breaker is open, the next healthy fallback is
// tried. The intent extractor, planner, and follow-up parser all degrade to
// deterministic behavior when every backend is down, so an open breaker here
// costs quality, not availability.
type CompleterFallback struct {
	group *FallbackGroup[llm.Completer]
}

// Compile-time interface assertion.
var _ llm.Completer = (*CompleterFallback)(nil)

// NewCompleterFallback creates a [CompleterFallback] with primary as the
// preferred backend.
func NewCompleterFallback(primary llm.Completer, primaryName string, cfg FallbackConfig) *CompleterFallback {
	return &CompleterFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional completion backend.
func (f *CompleterFallback) AddFallback(name string, completer llm.Completer) {
	f.group.AddFallback(name, completer)
}

// Complete sends the request to the first healthy backend and returns its
// response.
func (f *CompleterFallback) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return ExecuteWithResult(f.group, func(c llm.Completer) (*llm.Response, error) {
		return c.Complete(ctx, req)
	})
}

// ModelID reports the primary backend's model identifier.
func (f *CompleterFallback) ModelID() string {
	if len(f.group.values) > 0 {
		return f.group.values[0].ModelID()
	}
	return ""
}
