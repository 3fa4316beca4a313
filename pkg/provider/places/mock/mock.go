// Package mock provides a test double for the places.Provider interface.
//
// Use Provider to return pre-canned place records without live upstream calls
// and to verify the parameters each search was invoked with.
//
// Example:
//
//	p := &mock.Provider{
//	    NameValue: "google",
//	    SearchResult: []places.ProviderPlace{{Name: "Blue Bottle Coffee"}},
//	}
//	got, _ := p.SearchNearby(ctx, places.SearchParams{Lat: 37.77, Lng: -122.41})
package mock

import (
	"context"
	"sync"

	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

// SearchCall records a single invocation of SearchNearby.
type SearchCall struct {
	// Ctx is the context passed to SearchNearby.
	Ctx context.Context
	// Params is the parameter struct passed to SearchNearby.
	Params places.SearchParams
}

// Provider is a mock implementation of places.Provider.
type Provider struct {
	mu sync.Mutex

	// NameValue is returned by Name. Defaults to "mock" when empty.
	NameValue string

	// SearchResult is returned by SearchNearby when SearchFunc is nil.
	SearchResult []places.ProviderPlace

	// SearchErr, if non-nil, is returned as the error from SearchNearby.
	SearchErr error

	// SearchFunc, if non-nil, handles SearchNearby calls entirely. Useful for
	// per-call behaviour such as blocking until the context is cancelled.
	SearchFunc func(ctx context.Context, params places.SearchParams) ([]places.ProviderPlace, error)

	// SearchCalls records every call to SearchNearby in order.
	SearchCalls []SearchCall
}

// Name returns NameValue or "mock".
func (p *Provider) Name() string {
	if p.NameValue == "" {
		return "mock"
	}
	return p.NameValue
}

// SearchNearby records the call and returns the configured result.
func (p *Provider) SearchNearby(ctx context.Context, params places.SearchParams) ([]places.ProviderPlace, error) {
	p.mu.Lock()
	p.SearchCalls = append(p.SearchCalls, SearchCall{Ctx: ctx, Params: params})
	fn := p.SearchFunc
	result, err := p.SearchResult, p.SearchErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}
	return result, err
}

// CallCount returns the number of recorded SearchNearby calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SearchCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SearchCalls = nil
}

// Ensure Provider implements places.Provider at compile time.
var _ places.Provider = (*Provider)(nil)
