// Package rank scores and orders the fused result set. It combines base
// signals (rating, review volume, distance, price fit) under a named weight
// preset with bonuses from a four-method requirement matcher.
package rank

import (
	"context"
	"fmt"
	"strings"

	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/internal/intent"
	"github.com/aroundmehq/aroundme/pkg/provider/embeddings"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

// Method names the matching method that decided a requirement.
type Method string

const (
	MethodStructured Method = "structured"
	MethodKeyword    Method = "keyword"
	MethodSemantic   Method = "semantic"
	MethodEditorial  Method = "editorial"
	MethodNone       Method = "none"
)

// Confidence per method. Semantic confidence is the similarity itself.
const (
	structuredConfidence = 1.0
	keywordConfidence    = 0.8
	editorialConfidence  = 0.7

	// DefaultSemanticThreshold is the minimum cosine similarity for a
	// semantic match.
	DefaultSemanticThreshold = 0.75

	// requirementBonusScale converts a match confidence into score points.
	requirementBonusScale = 10.0

	// editorialWindow is the number of evidence characters kept on each side
	// of a keyword found in the editorial summary.
	editorialWindow = 30
)

// MatchedRequirement records the outcome of matching one requirement against
// one place. At most one method is recorded per pair.
type MatchedRequirement struct {
	RequirementName string  `json:"requirement_name"`
	Matched         bool    `json:"matched"`
	Method          Method  `json:"method"`
	Confidence      float64 `json:"confidence"`
	BonusPoints     float64 `json:"bonus_points"`
	EvidenceText    string  `json:"evidence_text,omitempty"`
	Category        string  `json:"category,omitempty"`
}

// structuredFields maps requirement keywords onto the amenity flag each one
// asserts. The special field "parking" checks the nested parking facts.
var structuredFields = map[string][]string{
	"wifi":            {"wifi"},
	"internet":        {"wifi"},
	"wireless":        {"wifi"},
	"outdoor seating": {"outdoor_seating"},
	"outdoor":         {"outdoor_seating"},
	"patio":           {"outdoor_seating"},
	"parking":         {"parking"},
	"family friendly": {"good_for_children"},
	"family":          {"good_for_children"},
	"kids":            {"good_for_children"},
	"pet friendly":    {"allows_dogs"},
	"dog":             {"allows_dogs"},
	"pet":             {"allows_dogs"},
	"wheelchair":      {"wheelchair_accessible"},
	"accessible":      {"wheelchair_accessible"},
	"delivery":        {"delivery"},
	"takeout":         {"takeout"},
	"pickup":          {"takeout"},
	"reservations":    {"reservable"},
	"reservation":     {"reservable"},
	"booking":         {"reservable"},
	"vegetarian":      {"serves_vegetarian_food"},
	"breakfast":       {"serves_breakfast"},
	"brunch":          {"serves_brunch"},
	"lunch":           {"serves_lunch"},
	"dinner":          {"serves_dinner"},
	"beer":            {"serves_beer"},
	"wine":            {"serves_wine"},
	"groups":          {"good_for_groups"},
}

// Matcher evaluates requirements against places. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	embedder          embeddings.Embedder
	semanticThreshold float64
}

// MatcherOption is a functional option for configuring a [Matcher].
type MatcherOption func(*Matcher)

// WithEmbedder enables the semantic method. Without an embedder the matcher
// degrades to the structured and keyword methods.
func WithEmbedder(e embeddings.Embedder) MatcherOption {
	return func(m *Matcher) {
		m.embedder = e
	}
}

// WithSemanticThreshold sets the minimum cosine similarity for a semantic
// match. Default: 0.75.
func WithSemanticThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) {
		m.semanticThreshold = threshold
	}
}

// NewMatcher returns a Matcher configured with the supplied options.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{semanticThreshold: DefaultSemanticThreshold}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match tries each method in order and stops at the first that matches. The
// order and confidences are fixed: structured (1.0), keyword (0.8), semantic
// (the similarity, at least the threshold), editorial mention (0.7). An
// unmatched requirement earns zero bonus.
func (m *Matcher) Match(ctx context.Context, place places.ProviderPlace, req intent.Requirement) MatchedRequirement {
	result := MatchedRequirement{
		RequirementName: req.Name,
		Method:          MethodNone,
		Category:        req.Category,
	}

	methods := []func(context.Context, places.ProviderPlace, intent.Requirement) (Method, float64, string, bool){
		m.matchStructured,
		m.matchKeyword,
		m.matchSemantic,
		m.matchEditorial,
	}
	for _, method := range methods {
		name, confidence, evidence, ok := method(ctx, place, req)
		if !ok {
			continue
		}
		result.Matched = true
		result.Method = name
		result.Confidence = confidence
		result.BonusPoints = requirementBonusScale * confidence
		result.EvidenceText = evidence
		break
	}
	return result
}

func (m *Matcher) matchStructured(_ context.Context, place places.ProviderPlace, req intent.Requirement) (Method, float64, string, bool) {
	if field, ok := structuredLookup(place, req); ok {
		evidence := "verified amenity: " + strings.ReplaceAll(field, "_", " ")
		return MethodStructured, structuredConfidence, evidence, true
	}
	return MethodNone, 0, "", false
}

// structuredLookup resolves the requirement against the amenity field table:
// first by exact keyword, then by key terms contained in the requirement name.
func structuredLookup(place places.ProviderPlace, req intent.Requirement) (string, bool) {
	for _, keyword := range req.Keywords {
		for _, field := range structuredFields[strings.ToLower(keyword)] {
			if amenityFieldTrue(place.Amenities, field) {
				return field, true
			}
		}
	}

	name := strings.ToLower(req.Name)
	for term, fields := range structuredFields {
		if !strings.Contains(name, term) {
			continue
		}
		for _, field := range fields {
			if amenityFieldTrue(place.Amenities, field) {
				return field, true
			}
		}
	}
	return "", false
}

func amenityFieldTrue(a places.Amenities, field string) bool {
	if field == "parking" {
		return a.AnyParking()
	}
	v, ok := a.Flag(field)
	return ok && v
}

func (m *Matcher) matchKeyword(_ context.Context, place places.ProviderPlace, req intent.Requirement) (Method, float64, string, bool) {
	text := fusion.PlaceText(place)
	for _, keyword := range req.Keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return MethodKeyword, keywordConfidence, fmt.Sprintf("found keyword %q", keyword), true
		}
	}
	return MethodNone, 0, "", false
}

// matchSemantic embeds the requirement name and the place's descriptive texts
// and matches when any cosine similarity clears the threshold. Embedder
// errors degrade to no match; the collaborator is optional.
func (m *Matcher) matchSemantic(ctx context.Context, place places.ProviderPlace, req intent.Requirement) (Method, float64, string, bool) {
	if m.embedder == nil {
		return MethodNone, 0, "", false
	}

	texts := placeDescriptions(place)
	if len(texts) == 0 {
		return MethodNone, 0, "", false
	}

	vectors, err := m.embedder.Embed(ctx, append([]string{req.Name}, texts...))
	if err != nil || len(vectors) != len(texts)+1 {
		return MethodNone, 0, "", false
	}

	reqVector := vectors[0]
	best := 0.0
	bestText := ""
	for i, text := range texts {
		if sim := embeddings.CosineSimilarity(reqVector, vectors[i+1]); sim > best {
			best = sim
			bestText = text
		}
	}
	if best < m.semanticThreshold {
		return MethodNone, 0, "", false
	}

	evidence := fmt.Sprintf("semantic match (%d%%): %s", int(best*100), clip(bestText, 100))
	return MethodSemantic, best, evidence, true
}

func (m *Matcher) matchEditorial(_ context.Context, place places.ProviderPlace, req intent.Requirement) (Method, float64, string, bool) {
	editorial := strings.ToLower(place.Amenities.EditorialSummary)
	if editorial == "" {
		return MethodNone, 0, "", false
	}

	for _, keyword := range req.Keywords {
		kw := strings.ToLower(keyword)
		idx := strings.Index(editorial, kw)
		if idx < 0 {
			continue
		}
		start := idx - editorialWindow
		if start < 0 {
			start = 0
		}
		end := idx + len(kw) + editorialWindow
		if end > len(editorial) {
			end = len(editorial)
		}
		evidence := "summary mentions: " + strings.TrimSpace(editorial[start:end])
		return MethodEditorial, editorialConfidence, evidence, true
	}
	return MethodNone, 0, "", false
}

// placeDescriptions are the texts the semantic method compares against.
func placeDescriptions(place places.ProviderPlace) []string {
	var texts []string
	for _, t := range []string{place.Name, place.Category, place.Amenities.EditorialSummary, place.Address} {
		if t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
