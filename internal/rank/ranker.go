package rank

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/internal/intent"
)

// Preset names.
const (
	PresetBalanced    = "balanced"
	PresetNearby      = "nearby"
	PresetReviewHeavy = "review-heavy"
)

// Weights holds the base points per signal. The three fields sum to 100.
type Weights struct {
	Rating   float64
	Reviews  float64
	Distance float64
}

var presets = map[string]Weights{
	PresetBalanced:    {Rating: 55, Reviews: 30, Distance: 15},
	PresetNearby:      {Rating: 35, Reviews: 20, Distance: 45},
	PresetReviewHeavy: {Rating: 45, Reviews: 50, Distance: 5},
}

// PresetWeights returns the weights for a preset name, defaulting to
// balanced for unknown names.
func PresetWeights(name string) Weights {
	if w, ok := presets[name]; ok {
		return w
	}
	return presets[PresetBalanced]
}

const (
	// baseScoreMax is the ceiling of the base signals under any preset.
	baseScoreMax = 100.0

	// priceFitBonus is awarded when the place's price level sits inside the
	// requested range.
	priceFitBonus = 5.0

	// maxDistanceKm is where the distance signal bottoms out.
	maxDistanceKm = 10.0

	// reviewLogDivisor normalizes ln(1+reviews) into [0, 1].
	reviewLogDivisor = 8.0
)

// ScoredPlace is one fused place with its score and the evidence behind it.
type ScoredPlace struct {
	Fused fusion.FusedPlace `json:"fused"`

	Score float64 `json:"score"`

	// Evidence maps signal names to their point contributions.
	Evidence map[string]float64 `json:"evidence"`

	RequirementMatches []MatchedRequirement `json:"requirement_matches"`

	MaxPossibleScore float64 `json:"max_possible_score"`

	// MatchPercentage is the share of requirements matched, or 100 when
	// there are none.
	MatchPercentage float64 `json:"match_percentage"`
}

// Ranker scores fused places and sorts them into the final order.
type Ranker struct {
	matcher *Matcher
}

// NewRanker returns a Ranker using the given requirement matcher.
func NewRanker(matcher *Matcher) *Ranker {
	return &Ranker{matcher: matcher}
}

// Rank scores every fused place and returns them ordered by score descending.
// Ties break by rating, then review count, then distance, so the order is
// total and deterministic.
func (r *Ranker) Rank(ctx context.Context, fused []fusion.FusedPlace, reqs []intent.Requirement, preset string, filters *intent.Filters) []ScoredPlace {
	if len(fused) == 0 {
		return nil
	}

	weights := PresetWeights(preset)
	maxPossible := baseScoreMax + requirementBonusScale*float64(len(reqs))

	scored := make([]ScoredPlace, 0, len(fused))
	for _, place := range fused {
		scored = append(scored, r.score(ctx, place, reqs, weights, filters, maxPossible))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ar, br := a.Fused.Representative, b.Fused.Representative
		if ar.RatingValue() != br.RatingValue() {
			return ar.RatingValue() > br.RatingValue()
		}
		if ar.ReviewCountValue() != br.ReviewCountValue() {
			return ar.ReviewCountValue() > br.ReviewCountValue()
		}
		return ar.DistanceKm < br.DistanceKm
	})
	return scored
}

func (r *Ranker) score(ctx context.Context, place fusion.FusedPlace, reqs []intent.Requirement, weights Weights, filters *intent.Filters, maxPossible float64) ScoredPlace {
	rep := place.Representative
	evidence := make(map[string]float64)
	score := 0.0

	if rep.Rating != nil {
		pts := rep.RatingValue() / 5 * weights.Rating
		score += pts
		evidence["rating"] = round2(pts)
	}

	if n := rep.ReviewCountValue(); n > 0 {
		pts := math.Min(1, math.Log1p(float64(n))/reviewLogDivisor) * weights.Reviews
		score += pts
		evidence["reviews"] = round2(pts)
	}

	pts := math.Max(0, 1-math.Min(rep.DistanceKm, maxDistanceKm)/maxDistanceKm) * weights.Distance
	score += pts
	evidence["distance"] = round2(pts)

	if filters.HasPriceRange() && rep.PriceLevel != nil {
		bonus := 0.0
		if *filters.PriceMin <= *rep.PriceLevel && *rep.PriceLevel <= *filters.PriceMax {
			bonus = priceFitBonus
		}
		score += bonus
		evidence["price_fit"] = round2(bonus)
	}

	matches := make([]MatchedRequirement, 0, len(reqs))
	matchedCount := 0
	for _, req := range reqs {
		match := r.matcher.Match(ctx, rep, req)
		matches = append(matches, match)
		if match.Matched {
			matchedCount++
			score += match.BonusPoints
			evidence["req_"+evidenceKey(req.Name)] = round2(match.BonusPoints)
		}
	}

	matchPercentage := 100.0
	if len(reqs) > 0 {
		matchPercentage = float64(matchedCount) / float64(len(reqs)) * 100
	}

	return ScoredPlace{
		Fused:              place,
		Score:              score,
		Evidence:           evidence,
		RequirementMatches: matches,
		MaxPossibleScore:   maxPossible,
		MatchPercentage:    round1(matchPercentage),
	}
}

func evidenceKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
