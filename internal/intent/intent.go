// Package intent defines the structured intent model of the discovery
// pipeline and the extractors that produce it from natural-language queries.
//
// An [Intent] is a tagged variant: simple free-text searches carry a query and
// an optional category, multi-entity searches carry entity specifications and
// spatial relations between them. Extraction comes in two modes, deterministic
// and LLM-assisted; every LLM path falls back to the deterministic result on
// failure so the pipeline never depends on the collaborator being up.
package intent

import "fmt"

// Kind discriminates the Intent variant.
type Kind string

const (
	// KindSimple is a single free-text or category search.
	KindSimple Kind = "simple"

	// KindMultiEntity is a search for an anchor entity constrained by the
	// presence of nearby partner entities.
	KindMultiEntity Kind = "multi_entity"
)

// Predicate is the spatial relation between two entities.
type Predicate string

const (
	// PredicateNear means within the default near distance.
	PredicateNear Predicate = "NEAR"

	// PredicateWithinDistance means within an explicit distance, which the
	// relation must carry.
	PredicateWithinDistance Predicate = "WITHIN_DISTANCE"
)

// Filters narrows a search by price range, opening state, or category.
type Filters struct {
	// PriceMin and PriceMax bound the price level inclusively, both in 0..4.
	// Nil means unbounded on that side.
	PriceMin *int `json:"price_min,omitempty"`
	PriceMax *int `json:"price_max,omitempty"`

	OpenNow  *bool  `json:"open_now,omitempty"`
	Category string `json:"category,omitempty"`
}

// HasPriceRange reports whether both price bounds are set.
func (f *Filters) HasPriceRange() bool {
	return f != nil && f.PriceMin != nil && f.PriceMax != nil
}

// EntitySpec describes one entity of a multi-entity search.
type EntitySpec struct {
	// Kind is the place type, e.g. "restaurant" or "park".
	Kind string `json:"kind"`

	// MustHaves lists required amenity names in user order. A candidate
	// failing any must-have is dropped by the constraint joiner.
	MustHaves []string `json:"must_haves,omitempty"`

	Filters *Filters `json:"filters,omitempty"`
}

// Relation ties two entities of a multi-entity intent together.
type Relation struct {
	// Left and Right index into the intent's entity list.
	Left  int `json:"left"`
	Right int `json:"right"`

	Predicate Predicate `json:"relation"`

	// DistanceM is required for WITHIN_DISTANCE and ignored otherwise.
	DistanceM float64 `json:"distance_m,omitempty"`
}

// Intent is the structured form of a user query.
type Intent struct {
	Kind Kind `json:"type"`

	// Query and Category apply to simple intents.
	Query    string `json:"query,omitempty"`
	Category string `json:"category,omitempty"`

	// Entities and Relations apply to multi-entity intents. Entity 0 is the
	// anchor.
	Entities  []EntitySpec `json:"entities,omitempty"`
	Relations []Relation   `json:"relations,omitempty"`
}

// Simple returns a simple intent for the given query.
func Simple(query string) Intent {
	return Intent{Kind: KindSimple, Query: query}
}

// Validate checks structural invariants: relation indices must address
// existing entities and WITHIN_DISTANCE relations must carry a distance.
func (in Intent) Validate() error {
	if in.Kind != KindMultiEntity {
		return nil
	}
	if len(in.Entities) == 0 {
		return fmt.Errorf("intent: multi-entity intent without entities")
	}
	for i, r := range in.Relations {
		if r.Left < 0 || r.Left >= len(in.Entities) {
			return fmt.Errorf("intent: relation %d: left index %d out of range", i, r.Left)
		}
		if r.Right < 0 || r.Right >= len(in.Entities) {
			return fmt.Errorf("intent: relation %d: right index %d out of range", i, r.Right)
		}
		if r.Predicate == PredicateWithinDistance && r.DistanceM <= 0 {
			return fmt.Errorf("intent: relation %d: WITHIN_DISTANCE requires distance_m", i)
		}
	}
	return nil
}

// Importance ranks a requirement's weight to the user.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Requirement is a user-stated want extracted from the query, e.g. "WiFi" or
// "family-friendly". Unmet requirements lower the score but never drop a
// candidate.
type Requirement struct {
	Name string `json:"name"`

	// Category is "feature" for concrete amenities and "quality" for softer
	// wants like "cozy".
	Category string `json:"category"`

	// Keywords are lowercased search terms for the requirement.
	Keywords []string `json:"keywords"`

	Importance Importance `json:"importance"`
}

// SortOrder names the orderings a follow-up may request.
type SortOrder string

const (
	// SortScore preserves the stored scoring order.
	SortScore    SortOrder = "score"
	SortDistance SortOrder = "distance"
	SortRating   SortOrder = "rating"
	SortPrice    SortOrder = "price"
)

// FollowupIntent is the filter/sort delta parsed from a follow-up utterance.
// Nil pointer fields mean the utterance did not touch that dimension.
type FollowupIntent struct {
	// IsNewSearch signals the utterance is a fresh query, not a refinement.
	IsNewSearch bool   `json:"is_new_search"`
	NewQuery    string `json:"new_query,omitempty"`

	// AdjustRadiusM tightens the result set to places within this many
	// meters of the origin.
	AdjustRadiusM *float64 `json:"adjust_radius_m,omitempty"`

	PriceMin  *int     `json:"price_min,omitempty"`
	PriceMax  *int     `json:"price_max,omitempty"`
	OpenNow   *bool    `json:"open_now,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`

	// RequiredFeatures lists amenity names every surviving place must have.
	RequiredFeatures []string `json:"required_features,omitempty"`

	SortBy SortOrder `json:"sort_by,omitempty"`
}
