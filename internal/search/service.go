// Package search orchestrates the discovery pipeline.
//
// A fresh request moves through the stages in data-flow order: intent
// parsing, provider planning, concurrent fan-out, dedupe and fusion,
// multi-entity constraint joining, requirement matching and ranking, and
// finally storage of the result set for follow-ups. A follow-up request
// refines the stored set without touching providers; it falls back to a fresh
// search when the stored set has expired or the utterance asks for something
// new.
//
// Provider, LLM, and embedding failures are absorbed: they degrade result
// quality, never availability. The only errors Search surfaces come from the
// session store.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/internal/geo"
	"github.com/aroundmehq/aroundme/internal/intent"
	"github.com/aroundmehq/aroundme/internal/observe"
	"github.com/aroundmehq/aroundme/internal/plan"
	"github.com/aroundmehq/aroundme/internal/rank"
	"github.com/aroundmehq/aroundme/internal/refine"
	"github.com/aroundmehq/aroundme/internal/session"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

// Execution modes reported in metrics and debug output.
const (
	modeFresh    = "fresh"
	modeFollowup = "followup"
)

// Followup references a stored result set to refine instead of re-querying
// providers.
type Followup struct {
	ResultSetID string
	Utterance   string
}

// Request is one search invocation. The transport layer validates ranges
// before constructing it.
type Request struct {
	Query   string
	Lat     float64
	Lng     float64
	RadiusM int
	TopK    int

	Filters *intent.Filters

	// MultiEntity overrides intent parsing with a pre-structured intent.
	MultiEntity *intent.Intent

	ConversationID string
	Preset         string

	// Followup switches the request onto the refinement path.
	Followup *Followup
}

// Validation is the result-quality assessment attached to debug output.
type Validation struct {
	Valid        bool     `json:"valid"`
	Issues       []string `json:"issues"`
	Suggestions  []string `json:"suggestions"`
	ExpandSearch bool     `json:"expand_search"`
}

// Debug carries per-request pipeline introspection.
type Debug struct {
	Timings           map[string]float64 `json:"timings"`
	CacheHit          bool               `json:"cache_hit"`
	TraceID           string             `json:"trace_id"`
	ProviderCounts    map[string]int     `json:"provider_counts,omitempty"`
	CountsBeforeAfter map[string]int     `json:"counts_before_after,omitempty"`
	RankingPreset     string             `json:"ranking_preset,omitempty"`
	Mode              string             `json:"agent_mode"`
	Validation        *Validation        `json:"validation,omitempty"`
	Constraints       *fusion.JoinStats  `json:"constraints_satisfied,omitempty"`
}

// Response is the pipeline output for one request.
type Response struct {
	Places      []rank.ScoredPlace `json:"places"`
	Debug       Debug              `json:"debug"`
	ResultSetID string             `json:"result_set_id"`
}

// Config wires a [Service]. Providers, Deduper, Ranker, and Sessions are
// required; everything else has a working default or is optional.
type Config struct {
	// Providers in preference order; the first name doubles as the dedupe
	// representative preference.
	Providers []places.Provider

	Extractor *intent.Extractor
	Planner   *plan.Planner
	Deduper   *fusion.Deduper
	Ranker    *rank.Ranker
	Sessions  *session.Sessions
	Refiner   *refine.Refiner

	// Cache holds whole search responses. Nil disables response caching.
	Cache    session.Store
	CacheTTL time.Duration

	Metrics *observe.Metrics
	Logger  *slog.Logger

	// CallTimeout bounds each provider call. Default 10s.
	CallTimeout time.Duration

	// MaxPerProvider caps records requested from one provider call.
	MaxPerProvider int

	// NearDistanceM is the partner scan distance for NEAR relations without
	// an explicit distance.
	NearDistanceM float64

	// DefaultTopK applies when a request carries no limit.
	DefaultTopK int
}

// Service runs the discovery pipeline.
type Service struct {
	cfg       Config
	providers map[string]places.Provider
	logger    *slog.Logger
	metrics   *observe.Metrics
}

// NewService builds a Service from cfg, filling defaults.
func NewService(cfg Config) *Service {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 1200 * time.Second
	}
	if cfg.MaxPerProvider <= 0 {
		cfg.MaxPerProvider = 60
	}
	if cfg.NearDistanceM <= 0 {
		cfg.NearDistanceM = fusion.DefaultNearDistanceM
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = intent.NewExtractor()
	}
	if cfg.Planner == nil {
		names := make([]string, 0, len(cfg.Providers))
		for _, p := range cfg.Providers {
			names = append(names, p.Name())
		}
		cfg.Planner = plan.NewPlanner(names)
	}

	byName := make(map[string]places.Provider, len(cfg.Providers))
	for _, p := range cfg.Providers {
		byName[p.Name()] = p
	}
	return &Service{
		cfg:       cfg,
		providers: byName,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Search executes one request end to end.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	ctx, span := observe.StartSpan(ctx, "search")
	defer span.End()

	if req.TopK <= 0 {
		req.TopK = s.cfg.DefaultTopK
	}
	if req.Preset == "" {
		req.Preset = rank.PresetBalanced
	}
	// Callers inside the service (follow-up restarts, tests) bypass the HTTP
	// validation, so coordinates are normalized here as well.
	req.Lat, req.Lng = geo.Normalize(req.Lat, req.Lng)

	if req.Followup != nil {
		return s.followup(ctx, req)
	}
	return s.fresh(ctx, req)
}

func (s *Service) fresh(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	traceID := observe.CorrelationID(ctx)
	debug := Debug{
		Timings:       make(map[string]float64),
		TraceID:       traceID,
		RankingPreset: req.Preset,
		Mode:          modeFresh,
	}

	key := responseCacheKey(req)
	if cached, ok := s.cacheLookup(ctx, key); ok {
		cached.Debug.CacheHit = true
		cached.Debug.TraceID = traceID
		s.recordSearch(ctx, modeFresh, "cache_hit")
		return cached, nil
	}

	// Intent and requirements.
	stage := time.Now()
	in := s.resolveIntent(ctx, req)
	var reqs []intent.Requirement
	if in.Kind == intent.KindSimple {
		reqs = s.cfg.Extractor.ExtractRequirements(ctx, req.Query)
	}
	s.timeStage(ctx, debug.Timings, "parse_intent", stage)

	// Plan.
	stage = time.Now()
	searchPlan := s.cfg.Planner.Build(ctx, in)
	s.timeStage(ctx, debug.Timings, "plan", stage)

	// Fan-out.
	stage = time.Now()
	records, counts := s.callProviders(ctx, searchPlan, req)
	debug.ProviderCounts = counts
	s.timeStage(ctx, debug.Timings, "call_providers", stage)

	// Dedupe and fuse.
	stage = time.Now()
	fused, stats := s.cfg.Deduper.Fuse(records)
	debug.CountsBeforeAfter = map[string]int{
		"before": stats.InputCount,
		"after":  stats.OutputCount,
	}
	s.timeStage(ctx, debug.Timings, "fuse_dedupe", stage)

	// Multi-entity constraint join.
	if in.Kind == intent.KindMultiEntity {
		stage = time.Now()
		joined, joinStats := fusion.JoinConstraints(fused, in.Entities, in.Relations, s.cfg.NearDistanceM)
		fused = joined
		debug.Constraints = &joinStats
		s.timeStage(ctx, debug.Timings, "filter_constraints", stage)
	}

	// Rank.
	stage = time.Now()
	scored := s.cfg.Ranker.Rank(ctx, fused, reqs, req.Preset, req.Filters)
	s.timeStage(ctx, debug.Timings, "score_rank", stage)

	debug.Validation = validateResults(len(scored))

	if len(scored) > req.TopK {
		scored = scored[:req.TopK]
	}

	// Store the result set for follow-ups.
	rs := &session.ResultSet{
		ID:             session.NewResultSetID(),
		Places:         scored,
		Query:          req.Query,
		RadiusM:        req.RadiusM,
		ConversationID: req.ConversationID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.cfg.Sessions.Save(ctx, rs); err != nil {
		s.recordSearch(ctx, modeFresh, "error")
		return nil, fmt.Errorf("search: store result set: %w", err)
	}
	if s.metrics != nil {
		s.metrics.LiveResultSets.Add(ctx, 1)
	}

	debug.Timings["total"] = time.Since(start).Seconds()
	resp := &Response{Places: scored, Debug: debug, ResultSetID: rs.ID}

	s.cacheStore(ctx, key, resp)
	s.recordSearch(ctx, modeFresh, "ok")
	s.logger.Info("search complete",
		"trace_id", traceID,
		"query", req.Query,
		"places", len(scored),
		"duration_s", debug.Timings["total"])
	return resp, nil
}

// resolveIntent prefers an explicit multi-entity intent from the request over
// parsing the query text.
func (s *Service) resolveIntent(ctx context.Context, req Request) intent.Intent {
	if req.MultiEntity != nil {
		if err := req.MultiEntity.Validate(); err == nil {
			return *req.MultiEntity
		}
		s.logger.Warn("invalid multi-entity intent on request, parsing query instead",
			"query", req.Query)
	}
	return s.cfg.Extractor.Parse(ctx, req.Query)
}

func (s *Service) followup(ctx context.Context, req Request) (*Response, error) {
	result, err := s.cfg.Refiner.Refine(ctx, req.ConversationID, req.Followup.ResultSetID, req.Followup.Utterance, req.TopK)
	if err != nil {
		s.recordSearch(ctx, modeFollowup, "error")
		return nil, fmt.Errorf("search: follow-up: %w", err)
	}

	if result.NewSearch {
		fresh := req
		fresh.Query = result.Query
		fresh.Followup = nil
		if result.Intent.AdjustRadiusM != nil {
			fresh.RadiusM = int(*result.Intent.AdjustRadiusM)
		}
		return s.fresh(ctx, fresh)
	}

	s.recordSearch(ctx, modeFollowup, "ok")
	if s.metrics != nil {
		s.metrics.LiveResultSets.Add(ctx, 1)
	}
	return &Response{
		Places: result.ResultSet.Places,
		Debug: Debug{
			Timings: map[string]float64{},
			TraceID: observe.CorrelationID(ctx),
			Mode:    modeFollowup,
			CountsBeforeAfter: map[string]int{
				"before": result.Before,
				"after":  len(result.ResultSet.Places),
			},
			RankingPreset: req.Preset,
		},
		ResultSetID: result.ResultSet.ID,
	}, nil
}

// validateResults is the deterministic result-quality check.
func validateResults(count int) *Validation {
	v := &Validation{
		Valid:       count > 0,
		Issues:      []string{},
		Suggestions: []string{},
	}
	switch {
	case count == 0:
		v.Issues = append(v.Issues, "No results found")
		v.Suggestions = append(v.Suggestions, "Try broadening your search criteria")
		v.ExpandSearch = true
	case count < 5:
		v.Issues = append(v.Issues, "Few results found")
		v.Suggestions = append(v.Suggestions, "Consider increasing search radius")
	}
	return v
}

func (s *Service) timeStage(ctx context.Context, timings map[string]float64, stage string, start time.Time) {
	seconds := time.Since(start).Seconds()
	timings[stage] = seconds
	if s.metrics != nil {
		s.metrics.RecordStage(ctx, stage, seconds)
	}
}

func (s *Service) recordSearch(ctx context.Context, mode, status string) {
	if s.metrics != nil {
		s.metrics.RecordSearch(ctx, mode, status)
	}
}
