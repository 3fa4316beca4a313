package search

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aroundmehq/aroundme/internal/geo"
	"github.com/aroundmehq/aroundme/internal/observe"
	"github.com/aroundmehq/aroundme/internal/plan"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

// callProviders executes the plan's calls concurrently. Each call gets its own
// timeout, and failures are absorbed: a dead provider contributes zero records
// and an error metric, nothing more. Results keep plan order so the fused
// output is deterministic.
func (s *Service) callProviders(ctx context.Context, p plan.Plan, req Request) ([]places.ProviderPlace, map[string]int) {
	ctx, span := observe.StartSpan(ctx, "call_providers")
	defer span.End()

	results := make([][]places.ProviderPlace, len(p.Calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range p.Calls {
		provider, ok := s.providers[call.Provider]
		if !ok {
			s.logger.Warn("plan references unconfigured provider", "provider", call.Provider)
			continue
		}
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.cfg.CallTimeout)
			defer cancel()

			start := time.Now()
			got, err := provider.SearchNearby(callCtx, places.SearchParams{
				Lat:      req.Lat,
				Lng:      req.Lng,
				RadiusM:  req.RadiusM,
				Query:    call.Query,
				Category: call.Category,
				Limit:    s.cfg.MaxPerProvider,
			})
			seconds := time.Since(start).Seconds()

			if err != nil {
				s.recordProviderCall(gctx, call.Provider, "error", seconds)
				s.recordProviderError(gctx, call.Provider, errorKind(callCtx, err))
				s.logger.Warn("provider call failed",
					"provider", call.Provider,
					"query", call.Query,
					"error", err)
				return nil
			}
			s.recordProviderCall(gctx, call.Provider, "ok", seconds)
			results[i] = insideRadius(got, req)
			return nil
		})
	}
	// Goroutines never return errors; Wait only joins them.
	_ = g.Wait()

	var records []places.ProviderPlace
	counts := make(map[string]int, len(s.providers))
	for i, call := range p.Calls {
		records = append(records, results[i]...)
		counts[call.Provider] += len(results[i])
	}
	return records, counts
}

// insideRadius keeps records within the requested circle. Text-search
// endpoints bias toward the area but do not guarantee containment.
func insideRadius(records []places.ProviderPlace, req Request) []places.ProviderPlace {
	if req.RadiusM <= 0 {
		return records
	}
	kept := make([]places.ProviderPlace, 0, len(records))
	for _, rec := range records {
		if geo.WithinRadius(req.Lat, req.Lng, rec.Lat, rec.Lng, float64(req.RadiusM)) {
			kept = append(kept, rec)
		}
	}
	return kept
}

func errorKind(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "upstream"
	}
}

func (s *Service) recordProviderCall(ctx context.Context, provider, status string, seconds float64) {
	if s.metrics != nil {
		s.metrics.RecordProviderCall(ctx, provider, status, seconds)
	}
}

func (s *Service) recordProviderError(ctx context.Context, provider, kind string) {
	if s.metrics != nil {
		s.metrics.RecordProviderError(ctx, provider, kind)
	}
}
