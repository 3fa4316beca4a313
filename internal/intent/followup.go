package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/aroundmehq/aroundme/pkg/provider/llm"
)

// Distance-word conversions applied to follow-up utterances.
const (
	nearbyRadiusM  = 1000
	walkingRadiusM = 800
	metersPerMile  = 1609
	metersPerKm    = 1000
)

var (
	milesPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*miles?\b`)
	kmPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:km|kilometers?)\b`)
)

// FollowupParser turns a follow-up utterance into a [FollowupIntent].
//
// With a completer configured the utterance goes through the model; without
// one, or on any model failure, a deterministic rule pass applies the same
// distance, price, feature, rating, and sort conversions the prompt describes.
type FollowupParser struct {
	completer llm.Completer
	logger    *slog.Logger
}

// FollowupOption is a functional option for configuring a [FollowupParser].
type FollowupOption func(*FollowupParser)

// WithFollowupCompleter enables LLM-assisted follow-up parsing.
func WithFollowupCompleter(c llm.Completer) FollowupOption {
	return func(p *FollowupParser) {
		p.completer = c
	}
}

// WithFollowupLogger sets the structured logger. Default: slog.Default().
func WithFollowupLogger(l *slog.Logger) FollowupOption {
	return func(p *FollowupParser) {
		p.logger = l
	}
}

// NewFollowupParser returns a FollowupParser configured with the options.
func NewFollowupParser(opts ...FollowupOption) *FollowupParser {
	p := &FollowupParser{logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// followupWire mirrors the JSON shape the follow-up prompt asks for.
type followupWire struct {
	IsNewSearch      bool     `json:"is_new_search"`
	NewQuery         string   `json:"new_query"`
	AdjustRadius     *float64 `json:"adjust_radius"`
	PriceMin         *int     `json:"price_min"`
	PriceMax         *int     `json:"price_max"`
	OpenNow          *bool    `json:"open_now"`
	RequiredFeatures []string `json:"required_features"`
	MinRating        *float64 `json:"min_rating"`
	SortBy           string   `json:"sort_by"`
}

// Parse converts the utterance into a FollowupIntent. originalQuery and
// currentRadiusM give the model (and the "closer" rule) their reference
// point. Parse never fails; worst case is the deterministic rule pass.
func (p *FollowupParser) Parse(ctx context.Context, utterance, originalQuery string, currentRadiusM int) FollowupIntent {
	if p.completer == nil {
		return parseFollowupRules(utterance, currentRadiusM)
	}

	resp, err := p.completer.Complete(ctx, llm.Request{
		SystemPrompt: followupSystem,
		Messages: []llm.Message{
			{Role: "user", Content: buildFollowupPrompt(utterance, originalQuery, currentRadiusM)},
		},
		Temperature: 0.3,
		JSONOnly:    true,
	})
	if err != nil {
		p.logger.Warn("follow-up parse failed, using rule pass",
			"utterance", utterance, "error", err)
		return parseFollowupRules(utterance, currentRadiusM)
	}

	var wire followupWire
	if err := json.Unmarshal([]byte(resp.Content), &wire); err != nil {
		p.logger.Warn("follow-up parse returned malformed JSON, using rule pass",
			"utterance", utterance, "error", err)
		return parseFollowupRules(utterance, currentRadiusM)
	}

	return FollowupIntent{
		IsNewSearch:      wire.IsNewSearch,
		NewQuery:         wire.NewQuery,
		AdjustRadiusM:    wire.AdjustRadius,
		PriceMin:         wire.PriceMin,
		PriceMax:         wire.PriceMax,
		OpenNow:          wire.OpenNow,
		MinRating:        wire.MinRating,
		RequiredFeatures: wire.RequiredFeatures,
		SortBy:           SortOrder(wire.SortBy),
	}
}

// parseFollowupRules is the deterministic rule pass. It applies the same
// conversion tables the prompt carries, treating everything as a refinement.
func parseFollowupRules(utterance string, currentRadiusM int) FollowupIntent {
	lower := strings.ToLower(utterance)
	var out FollowupIntent

	if radius, ok := parseDistanceWords(lower, currentRadiusM); ok {
		out.AdjustRadiusM = &radius
	}

	switch {
	case containsAny(lower, "cheap", "affordable", "budget", "inexpensive"):
		out.PriceMin, out.PriceMax = intPtr(1), intPtr(2)
	case containsAny(lower, "moderate", "mid-range"):
		out.PriceMin, out.PriceMax = intPtr(2), intPtr(3)
	case containsAny(lower, "expensive", "fancy", "upscale"):
		out.PriceMin, out.PriceMax = intPtr(3), intPtr(4)
	}

	if containsAny(lower, "wifi", "internet") {
		out.RequiredFeatures = append(out.RequiredFeatures, "wifi")
	}
	if containsAny(lower, "outdoor seating", "patio", "outside") {
		out.RequiredFeatures = append(out.RequiredFeatures, "outdoor_seating")
	}
	if strings.Contains(lower, "parking") {
		out.RequiredFeatures = append(out.RequiredFeatures, "parking")
	}
	if containsAny(lower, "family friendly", "kids") {
		out.RequiredFeatures = append(out.RequiredFeatures, "family_friendly")
	}

	if strings.Contains(lower, "open now") {
		openNow := true
		out.OpenNow = &openNow
	}
	if containsAny(lower, "highly rated", "top rated", "best rated") {
		minRating := 4.0
		out.MinRating = &minRating
	}

	switch {
	case strings.Contains(lower, "highest rated first"):
		out.SortBy = SortRating
	case containsAny(lower, "closest first", "nearest"):
		out.SortBy = SortDistance
	}

	return out
}

// parseDistanceWords resolves distance phrases to a radius in meters.
// Explicit units win over the vaguer words.
func parseDistanceWords(lower string, currentRadiusM int) (float64, bool) {
	if m := milesPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return n * metersPerMile, true
		}
	}
	if m := kmPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return n * metersPerKm, true
		}
	}
	switch {
	case strings.Contains(lower, "closer"):
		return float64(currentRadiusM) * 0.5, true
	case strings.Contains(lower, "walking distance"):
		return walkingRadiusM, true
	case strings.Contains(lower, "nearby"):
		return nearbyRadiusM, true
	}
	return 0, false
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func intPtr(v int) *int {
	return &v
}
