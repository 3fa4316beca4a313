// Package google provides a places provider backed by the Google Places API v1.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"

	// maxPageSize is the upstream per-request result cap.
	maxPageSize = 20

	// maxRadiusM is the largest circle radius the API accepts.
	maxRadiusM = 50000
)

// fieldMask lists the response fields requested from the API. Keeping it
// explicit keeps billing predictable and the normalizer total.
const fieldMask = "places.id,places.displayName,places.location,places.types,places.primaryType," +
	"places.rating,places.userRatingCount,places.priceLevel,places.internationalPhoneNumber," +
	"places.websiteUri,places.googleMapsUri,places.formattedAddress,places.editorialSummary," +
	"places.outdoorSeating,places.goodForChildren,places.goodForGroups,places.allowsDogs," +
	"places.reservable,places.servesBeer,places.servesBreakfast,places.servesBrunch," +
	"places.servesDinner,places.servesLunch,places.servesVegetarianFood,places.servesWine," +
	"places.takeout,places.delivery,places.dineIn,places.restroom,places.liveMusic," +
	"places.parkingOptions,places.paymentOptions,places.accessibilityOptions,nextPageToken"

// Ensure Provider implements the places.Provider interface.
var _ places.Provider = (*Provider)(nil)

// Provider implements places.Provider using the Google Places API v1.
type Provider struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	maxAttempts int
}

// config holds optional configuration for the provider.
type config struct {
	baseURL     string
	timeout     time.Duration
	maxAttempts int
	client      *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default API base URL. Used in tests to point the
// adapter at a local server.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-call HTTP timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMaxAttempts sets the total attempt count for transient failures. Default: 3.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		c.maxAttempts = n
	}
}

// WithHTTPClient supplies a custom HTTP client, overriding WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.client = client
	}
}

// New constructs a Google places provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google places: apiKey must not be empty")
	}

	cfg := &config{
		baseURL:     defaultBaseURL,
		timeout:     places.DefaultTimeout,
		maxAttempts: places.DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(cfg)
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	return &Provider{
		apiKey:      apiKey,
		baseURL:     cfg.baseURL,
		client:      client,
		maxAttempts: cfg.maxAttempts,
	}, nil
}

// Name implements places.Provider.
func (p *Provider) Name() string {
	return "google"
}

// SearchNearby implements places.Provider. A non-empty query routes through
// the text-search endpoint, otherwise the circle nearby-search endpoint is
// used with an optional category filter.
func (p *Provider) SearchNearby(ctx context.Context, params places.SearchParams) ([]places.ProviderPlace, error) {
	if params.Limit <= 0 {
		params.Limit = maxPageSize
	}
	if params.Query != "" {
		return p.paginate(ctx, p.baseURL+"/places:searchText", p.textPayload(params), params)
	}
	return p.paginate(ctx, p.baseURL+"/places:searchNearby", p.nearbyPayload(params), params)
}

func (p *Provider) nearbyPayload(params places.SearchParams) map[string]any {
	payload := map[string]any{
		"locationRestriction": map[string]any{
			"circle": map[string]any{
				"center": map[string]any{
					"latitude":  params.Lat,
					"longitude": params.Lng,
				},
				"radius": min(params.RadiusM, maxRadiusM),
			},
		},
		"maxResultCount": min(params.Limit, maxPageSize),
	}
	if params.Category != "" {
		payload["includedTypes"] = []string{params.Category}
	}
	return payload
}

func (p *Provider) textPayload(params places.SearchParams) map[string]any {
	return map[string]any{
		"textQuery": params.Query,
		"locationBias": map[string]any{
			"circle": map[string]any{
				"center": map[string]any{
					"latitude":  params.Lat,
					"longitude": params.Lng,
				},
				"radius": min(params.RadiusM, maxRadiusM),
			},
		},
		"maxResultCount": min(params.Limit, maxPageSize),
	}
}

// paginate follows nextPageToken until the limit is reached or the upstream
// runs out of pages.
func (p *Provider) paginate(ctx context.Context, url string, payload map[string]any, params places.SearchParams) ([]places.ProviderPlace, error) {
	var results []places.ProviderPlace

	for len(results) < params.Limit {
		body, err := p.post(ctx, url, payload)
		if err != nil {
			return nil, err
		}

		var page searchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("google places: decode response: %w", err)
		}

		for _, raw := range page.Places {
			if place, ok := normalize(raw, params.Lat, params.Lng); ok {
				results = append(results, place)
			}
		}

		if page.NextPageToken == "" || len(results) >= params.Limit {
			break
		}
		payload["pageToken"] = page.NextPageToken
	}

	if len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

func (p *Provider) post(ctx context.Context, url string, payload map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("google places: encode payload: %w", err)
	}

	return places.DoWithRetry(ctx, p.client, p.Name(), p.maxAttempts, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-Api-Key", p.apiKey)
		req.Header.Set("X-Goog-FieldMask", fieldMask)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}
