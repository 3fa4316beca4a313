package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/aroundmehq/aroundme/pkg/provider/llm"
)

// distanceStopwords disqualify a requirement whose name mentions proximity.
// Distance is a search parameter, never a scorable requirement.
var distanceStopwords = []string{"nearby", "close", "walking", "distance", "proximity", "near"}

// genericQueries carry no extractable requirements on their own.
var genericQueries = map[string]struct{}{
	"restaurant": {},
	"food":       {},
	"cafe":       {},
	"bar":        {},
	"place":      {},
	"nearby":     {},
	"close by":   {},
}

// distanceOnlyQueries are full queries that express nothing but proximity.
var distanceOnlyQueries = map[string]struct{}{
	"restaurant nearby":      {},
	"restaurant close by":    {},
	"restaurant near me":     {},
	"places nearby":          {},
	"food near me":           {},
	"restaurants around here": {},
}

// Extractor turns free-text queries into structured intents and requirements.
//
// Without a completer it runs in deterministic mode: Parse returns a simple
// intent wrapping the raw query and ExtractRequirements returns nothing. With
// a completer both operations go through the model but fall back to the
// deterministic result on any failure, including malformed JSON.
type Extractor struct {
	completer llm.Completer
	logger    *slog.Logger
}

// ExtractorOption is a functional option for configuring an [Extractor].
type ExtractorOption func(*Extractor)

// WithCompleter enables LLM-assisted extraction.
func WithCompleter(c llm.Completer) ExtractorOption {
	return func(e *Extractor) {
		e.completer = c
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor returns an Extractor configured with the supplied options.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// intentWire mirrors the JSON shape the parse prompt asks for.
type intentWire struct {
	Type      string         `json:"type"`
	Query     string         `json:"query"`
	Category  string         `json:"category"`
	Filters   *filtersWire   `json:"filters"`
	Entities  []entityWire   `json:"entities"`
	Relations []relationWire `json:"relations"`
}

type filtersWire struct {
	// Price is the inclusive [min, max] pair.
	Price   []int `json:"price"`
	OpenNow *bool `json:"open_now"`
}

type entityWire struct {
	Kind      string       `json:"kind"`
	MustHaves []string     `json:"must_haves"`
	Filters   *filtersWire `json:"filters"`
}

type relationWire struct {
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Relation  string  `json:"relation"`
	DistanceM float64 `json:"distance_m"`
}

// Parse extracts the structured intent for a query. It never fails: any model
// or parse error degrades to a simple intent carrying the raw query.
func (e *Extractor) Parse(ctx context.Context, query string) Intent {
	if e.completer == nil {
		return Simple(query)
	}

	resp, err := e.completer.Complete(ctx, llm.Request{
		SystemPrompt: parseIntentSystem,
		Messages: []llm.Message{
			{Role: "user", Content: parseIntentExamples},
			{Role: "user", Content: "Query: " + query},
		},
		Temperature: 0.1,
		JSONOnly:    true,
	})
	if err != nil {
		e.logger.Warn("intent parse failed, using deterministic fallback",
			"query", query, "error", err)
		return Simple(query)
	}

	var wire intentWire
	if err := json.Unmarshal([]byte(resp.Content), &wire); err != nil {
		e.logger.Warn("intent parse returned malformed JSON, using deterministic fallback",
			"query", query, "error", err)
		return Simple(query)
	}

	parsed, ok := wire.toIntent(query)
	if !ok {
		e.logger.Warn("intent parse returned invalid intent, using deterministic fallback",
			"query", query)
		return Simple(query)
	}
	return parsed
}

// toIntent converts the wire form into a validated Intent. The original query
// backstops an empty extracted query.
func (w intentWire) toIntent(query string) (Intent, bool) {
	switch Kind(w.Type) {
	case KindSimple:
		in := Intent{
			Kind:     KindSimple,
			Query:    w.Query,
			Category: w.Category,
		}
		if in.Query == "" {
			in.Query = query
		}
		return in, true

	case KindMultiEntity:
		in := Intent{Kind: KindMultiEntity}
		for _, ent := range w.Entities {
			in.Entities = append(in.Entities, EntitySpec{
				Kind:      ent.Kind,
				MustHaves: ent.MustHaves,
				Filters:   ent.Filters.toFilters(),
			})
		}
		for _, rel := range w.Relations {
			in.Relations = append(in.Relations, Relation{
				Left:      rel.Left,
				Right:     rel.Right,
				Predicate: Predicate(rel.Relation),
				DistanceM: rel.DistanceM,
			})
		}
		if err := in.Validate(); err != nil {
			return Intent{}, false
		}
		return in, true

	default:
		return Intent{}, false
	}
}

func (w *filtersWire) toFilters() *Filters {
	if w == nil {
		return nil
	}
	f := &Filters{OpenNow: w.OpenNow}
	if len(w.Price) == 2 {
		lo, hi := w.Price[0], w.Price[1]
		f.PriceMin = &lo
		f.PriceMax = &hi
	}
	return f
}

// requirementsWire mirrors the JSON shape of the requirement extraction prompt.
type requirementsWire struct {
	NormalizedRequirements []requirementWire `json:"normalized_requirements"`
}

type requirementWire struct {
	Requirement string   `json:"requirement"`
	Category    string   `json:"category"`
	Keywords    []string `json:"keywords"`
	Importance  string   `json:"importance"`
}

// ExtractRequirements pulls scorable requirements out of the query. Distance
// wants are never requirements: any extracted name containing a proximity word
// is dropped in a post-filter regardless of what the model returned. All
// keywords come back lowercased. Errors degrade to no requirements.
func (e *Extractor) ExtractRequirements(ctx context.Context, query string) []Requirement {
	if e.completer == nil {
		return nil
	}

	trimmed := strings.ToLower(strings.TrimSpace(query))
	if len(trimmed) < 3 {
		return nil
	}
	if _, ok := genericQueries[trimmed]; ok {
		return nil
	}
	if _, ok := distanceOnlyQueries[trimmed]; ok {
		return nil
	}

	resp, err := e.completer.Complete(ctx, llm.Request{
		SystemPrompt: requirementExtractionSystem,
		Messages: []llm.Message{
			{Role: "user", Content: "Query: " + query},
		},
		Temperature: 0.1,
		MaxTokens:   800,
		JSONOnly:    true,
	})
	if err != nil {
		e.logger.Warn("requirement extraction failed", "query", query, "error", err)
		return nil
	}

	var wire requirementsWire
	if err := json.Unmarshal([]byte(resp.Content), &wire); err != nil {
		e.logger.Warn("requirement extraction returned malformed JSON",
			"query", query, "error", err)
		return nil
	}

	var reqs []Requirement
	for _, rw := range wire.NormalizedRequirements {
		if rw.Requirement == "" || isDistanceRequirement(rw.Requirement) {
			continue
		}
		keywords := make([]string, 0, len(rw.Keywords))
		for _, kw := range rw.Keywords {
			keywords = append(keywords, strings.ToLower(kw))
		}
		reqs = append(reqs, Requirement{
			Name:       rw.Requirement,
			Category:   rw.Category,
			Keywords:   keywords,
			Importance: Importance(rw.Importance),
		})
	}
	return reqs
}

func isDistanceRequirement(name string) bool {
	lower := strings.ToLower(name)
	for _, stopword := range distanceStopwords {
		if strings.Contains(lower, stopword) {
			return true
		}
	}
	return false
}
