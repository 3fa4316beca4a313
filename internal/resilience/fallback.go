package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or has an
// open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the per-entry circuit breaker created for each
// provider in a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// FallbackGroup wraps a primary and zero or more fallback instances of the same
// provider type, each behind its own circuit breaker. Entries are tried in
// registration order; open-breaker entries are skipped.
//
// FallbackGroup is safe for concurrent use after registration.
type FallbackGroup[T any] struct {
	names    []string
	values   []T
	breakers []*CircuitBreaker
	cfg      FallbackConfig
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first entry.
// Additional fallbacks are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a fallback provider, tried after all earlier entries.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.names = append(fg.names, name)
	fg.values = append(fg.values, fallback)
	fg.breakers = append(fg.breakers, NewCircuitBreaker(cbCfg))
}

// attempt runs fn against entry i through its breaker and logs the outcome.
func (fg *FallbackGroup[T]) attempt(i int, fn func(T) error) error {
	err := fg.breakers[i].Execute(func() error {
		return fn(fg.values[i])
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrCircuitOpen):
		slog.Debug("skipping provider (circuit open)", "provider", fg.names[i])
	default:
		slog.Warn("provider failed, trying next", "provider", fg.names[i], "error", err)
	}
	return err
}

// Execute tries fn against each entry in order until one succeeds. Returns
// [ErrAllFailed] wrapped with the last error if every entry fails.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	var lastErr error
	for i := range fg.values {
		if lastErr = fg.attempt(i, fn); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// ExecuteWithResult tries fn against each entry in the group until one
// succeeds, returning its result. This is a package-level function because Go
// does not support method-level type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		result  R
		lastErr error
	)
	for i := range fg.values {
		lastErr = fg.attempt(i, func(v T) error {
			var err error
			result, err = fn(v)
			return err
		})
		if lastErr == nil {
			return result, nil
		}
	}
	var zero R
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
