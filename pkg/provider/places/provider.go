// Package places defines the Provider interface for place-catalog backends.
//
// A places provider wraps an upstream catalog API (e.g., Google Places v1 or
// Yelp Fusion) and normalizes its results into the shared [ProviderPlace]
// record. The rest of the discovery pipeline only ever sees ProviderPlace
// values; upstream wire formats never escape the adapter.
//
// Implementations must be safe for concurrent use.
package places

import "context"

// SearchParams carries the parameters of one nearby search against a provider.
type SearchParams struct {
	// Lat and Lng are the search origin in degrees.
	Lat float64
	Lng float64

	// RadiusM is the search radius in meters. Adapters clamp it to the
	// upstream maximum.
	RadiusM int

	// Query is an optional free-text query. When set, adapters route the
	// search through the upstream text-search path.
	Query string

	// Category is an optional category filter used when Query is empty.
	Category string

	// Limit caps the total number of records returned. Adapters paginate up
	// to this value, clamped to the upstream per-page maximum.
	Limit int
}

// Provider is the abstraction over any upstream place catalog.
//
// SearchNearby returns normalized records ordered as the upstream returned
// them. A record with missing coordinates or display name is dropped by the
// adapter rather than returned partially parsed.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name returns the stable provider identifier (e.g., "google", "yelp").
	Name() string

	// SearchNearby searches the catalog around the given origin. It retries
	// transient upstream failures internally; the returned error is final.
	SearchNearby(ctx context.Context, params SearchParams) ([]ProviderPlace, error)
}

// ProviderPlace is the normalized record emitted by every adapter.
//
// (Provider, ProviderID) is unique within one provider response. Rating,
// ReviewCount and PriceLevel are nil when the upstream omits them.
type ProviderPlace struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`

	Name     string `json:"name"`
	Category string `json:"category,omitempty"`

	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`

	// Rating is in [0, 5].
	Rating *float64 `json:"rating,omitempty"`

	// ReviewCount is the upstream review volume, >= 0.
	ReviewCount *int `json:"review_count,omitempty"`

	// PriceLevel is in {0..4}.
	PriceLevel *int `json:"price_level,omitempty"`

	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	MapURL  string `json:"map_url,omitempty"`
	Address string `json:"address,omitempty"`

	// DistanceKm is the haversine distance from the search origin.
	DistanceKm float64 `json:"distance_km"`

	// Types is the ordered upstream type/category tag list.
	Types []string `json:"types,omitempty"`

	// Amenities holds the structured amenity facts the upstream exposes.
	Amenities Amenities `json:"amenities"`
}

// RatingValue returns the rating or 0 when absent.
func (p ProviderPlace) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// ReviewCountValue returns the review count or 0 when absent.
func (p ProviderPlace) ReviewCountValue() int {
	if p.ReviewCount == nil {
		return 0
	}
	return *p.ReviewCount
}
