// Package refine applies follow-up utterances to stored result sets.
//
// A follow-up never re-queries providers: the prior result set is loaded from
// the session store, filtered and re-sorted according to the parsed
// [intent.FollowupIntent], and stored again under a fresh result set id. Two
// situations push the caller back onto the full pipeline instead: the stored
// set has expired, or the utterance turns out to be a new search.
package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/internal/intent"
	"github.com/aroundmehq/aroundme/internal/rank"
	"github.com/aroundmehq/aroundme/internal/session"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

// Result is the outcome of one follow-up.
//
// When NewSearch is set the refiner did not produce a result set; the caller
// should run the full pipeline with Query. Otherwise ResultSet holds the
// freshly stored refinement.
type Result struct {
	NewSearch bool
	Query     string

	ResultSet *session.ResultSet
	Intent    intent.FollowupIntent

	// Before is the place count prior to filtering.
	Before int
}

// Refiner loads, filters, and re-stores result sets for follow-ups.
type Refiner struct {
	sessions *session.Sessions
	parser   *intent.FollowupParser
	logger   *slog.Logger
}

// NewRefiner returns a Refiner over the given session layer and follow-up
// parser.
func NewRefiner(sessions *session.Sessions, parser *intent.FollowupParser, logger *slog.Logger) *Refiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refiner{sessions: sessions, parser: parser, logger: logger}
}

// Refine handles one follow-up utterance. The prior result set is looked up
// by resultSetID when given, else by the conversation's latest pointer. A
// store miss or a new-search utterance yields Result.NewSearch instead of an
// error; only store and marshal failures surface.
func (r *Refiner) Refine(ctx context.Context, conversationID, resultSetID, utterance string, topK int) (Result, error) {
	prior, err := r.load(ctx, conversationID, resultSetID)
	if errors.Is(err, session.ErrNotFound) {
		r.logger.Info("follow-up found no stored results, falling back to fresh search",
			"conversation_id", conversationID, "result_set_id", resultSetID)
		return Result{NewSearch: true, Query: utterance}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("refine: load prior result set: %w", err)
	}

	fi := r.parser.Parse(ctx, utterance, prior.Query, prior.RadiusM)
	if fi.IsNewSearch {
		query := fi.NewQuery
		if query == "" {
			query = utterance
		}
		return Result{NewSearch: true, Query: query, Intent: fi}, nil
	}

	refined := &session.ResultSet{
		ID:             session.NewResultSetID(),
		Places:         Apply(prior.Places, fi, topK),
		Query:          prior.Query,
		RadiusM:        radiusAfter(prior.RadiusM, fi),
		ConversationID: conversationID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.sessions.Save(ctx, refined); err != nil {
		return Result{}, fmt.Errorf("refine: store refined result set: %w", err)
	}

	r.logger.Info("follow-up refined result set",
		"prior_result_set_id", prior.ID,
		"result_set_id", refined.ID,
		"before", len(prior.Places),
		"after", len(refined.Places))
	return Result{ResultSet: refined, Intent: fi, Before: len(prior.Places)}, nil
}

func (r *Refiner) load(ctx context.Context, conversationID, resultSetID string) (*session.ResultSet, error) {
	if resultSetID != "" {
		return r.sessions.ResultSet(ctx, resultSetID)
	}
	if conversationID != "" {
		return r.sessions.Latest(ctx, conversationID)
	}
	return nil, session.ErrNotFound
}

func radiusAfter(current int, fi intent.FollowupIntent) int {
	if fi.AdjustRadiusM != nil {
		return int(*fi.AdjustRadiusM)
	}
	return current
}

// Apply filters and re-sorts scored places per the follow-up intent. Filters
// run in a fixed order: radius, price, rating, features. The input slice is
// never mutated, so applying the same intent twice yields the same list.
func Apply(scored []rank.ScoredPlace, fi intent.FollowupIntent, topK int) []rank.ScoredPlace {
	out := make([]rank.ScoredPlace, 0, len(scored))
	for _, sp := range scored {
		rep := sp.Fused.Representative
		if fi.AdjustRadiusM != nil && rep.DistanceKm*1000 > *fi.AdjustRadiusM {
			continue
		}
		if !priceFits(rep.PriceLevel, fi.PriceMin, fi.PriceMax) {
			continue
		}
		if fi.MinRating != nil && rep.RatingValue() < *fi.MinRating {
			continue
		}
		if !hasFeatures(rep, fi.RequiredFeatures) {
			continue
		}
		out = append(out, sp)
	}

	sortPlaces(out, fi.SortBy)

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// priceFits applies the inclusive price bounds. Places without a price level
// pass; an unpriced listing is not evidence of a mismatch.
func priceFits(level, min, max *int) bool {
	if min == nil && max == nil {
		return true
	}
	if level == nil {
		return true
	}
	if min != nil && *level < *min {
		return false
	}
	if max != nil && *level > *max {
		return false
	}
	return true
}

// hasFeatures requires every named feature to be present and true on the
// place. Structured flags decide when they exist; otherwise the rendered
// place text is scanned for aliases.
func hasFeatures(rep places.ProviderPlace, features []string) bool {
	if len(features) == 0 {
		return true
	}
	text := fusion.PlaceText(rep)
	for _, feature := range features {
		if v, ok := rep.Amenities.Flag(feature); ok {
			if !v {
				return false
			}
			continue
		}
		if feature == "parking" && rep.Amenities.AnyParking() {
			continue
		}
		if !fusion.MatchMustHave(text, feature) {
			return false
		}
	}
	return true
}

// sortPlaces re-orders in place. Score (and the empty default) preserves the
// stored order, which is already score-descending.
func sortPlaces(scored []rank.ScoredPlace, by intent.SortOrder) {
	switch by {
	case intent.SortDistance:
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Fused.Representative.DistanceKm < scored[j].Fused.Representative.DistanceKm
		})
	case intent.SortRating:
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Fused.Representative.RatingValue() > scored[j].Fused.Representative.RatingValue()
		})
	case intent.SortPrice:
		sort.SliceStable(scored, func(i, j int) bool {
			return priceValue(scored[i]) < priceValue(scored[j])
		})
	}
}

// priceValue sorts unpriced places last.
func priceValue(sp rank.ScoredPlace) int {
	if sp.Fused.Representative.PriceLevel == nil {
		return 5
	}
	return *sp.Fused.Representative.PriceLevel
}
