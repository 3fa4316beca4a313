// Package yelp provides a places provider backed by the Yelp Fusion API.
package yelp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aroundmehq/aroundme/internal/geo"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

const (
	defaultBaseURL = "https://api.yelp.com/v3"

	// maxPageSize is the upstream per-request result cap.
	maxPageSize = 50

	// maxRadiusM is the largest radius the business search accepts.
	maxRadiusM = 40000
)

// Ensure Provider implements the places.Provider interface.
var _ places.Provider = (*Provider)(nil)

// Provider implements places.Provider using the Yelp Fusion business search.
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

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *config) {
		c.baseURL = u
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

// New constructs a Yelp places provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("yelp places: apiKey must not be empty")
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
	return "yelp"
}

// SearchNearby implements places.Provider. It pages through the business
// search with increasing offsets until the limit is reached or the upstream
// runs out of results.
func (p *Provider) SearchNearby(ctx context.Context, params places.SearchParams) ([]places.ProviderPlace, error) {
	if params.Limit <= 0 {
		params.Limit = maxPageSize
	}

	var results []places.ProviderPlace
	offset := 0

	for len(results) < params.Limit {
		pageLimit := min(maxPageSize, params.Limit-len(results))

		body, err := p.get(ctx, params, pageLimit, offset)
		if err != nil {
			return nil, err
		}

		var page searchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("yelp places: decode response: %w", err)
		}
		if len(page.Businesses) == 0 {
			break
		}

		for _, raw := range page.Businesses {
			if place, ok := normalize(raw, params.Lat, params.Lng); ok {
				results = append(results, place)
			}
		}

		offset += len(page.Businesses)
		if len(page.Businesses) < pageLimit {
			break
		}
	}

	if len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

func (p *Provider) get(ctx context.Context, params places.SearchParams, limit, offset int) ([]byte, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(params.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(params.Lng, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(min(params.RadiusM, maxRadiusM)))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("sort_by", "best_match")
	if params.Query != "" {
		q.Set("term", params.Query)
	}
	if params.Category != "" {
		q.Set("categories", params.Category)
	}

	endpoint := p.baseURL + "/businesses/search?" + q.Encode()

	return places.DoWithRetry(ctx, p.client, p.Name(), p.maxAttempts, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

// searchResponse is the subset of the business search response we consume.
type searchResponse struct {
	Businesses []businessPayload `json:"businesses"`
	Total      int               `json:"total"`
}

type businessPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Coordinates struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"coordinates"`
	Categories []struct {
		Alias string `json:"alias"`
		Title string `json:"title"`
	} `json:"categories"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"review_count"`
	Price       string   `json:"price"`
	Phone       string   `json:"phone"`
	URL         string   `json:"url"`
	Location    struct {
		Address1 string `json:"address1"`
		City     string `json:"city"`
		State    string `json:"state"`
		ZipCode  string `json:"zip_code"`
	} `json:"location"`
}

// normalize converts one business payload into a ProviderPlace. Records
// without coordinates or a name are dropped.
func normalize(data businessPayload, originLat, originLng float64) (places.ProviderPlace, bool) {
	if data.Coordinates.Latitude == nil || data.Coordinates.Longitude == nil || data.Name == "" {
		return places.ProviderPlace{}, false
	}

	lat := *data.Coordinates.Latitude
	lng := *data.Coordinates.Longitude

	place := places.ProviderPlace{
		Provider:   "yelp",
		ProviderID: data.ID,
		Name:       data.Name,
		Lat:        lat,
		Lng:        lng,
		Rating:     data.Rating,
		Phone:      data.Phone,
		// The business page serves as both website and map link.
		Website:    data.URL,
		MapURL:     data.URL,
		DistanceKm: geo.DistanceKm(originLat, originLng, lat, lng),
	}
	if data.ReviewCount != nil && *data.ReviewCount >= 0 {
		place.ReviewCount = data.ReviewCount
	}
	if len(data.Categories) > 0 {
		place.Category = data.Categories[0].Alias
		for _, c := range data.Categories {
			place.Types = append(place.Types, c.Alias)
		}
	}
	if level, ok := priceLevel(data.Price); ok {
		place.PriceLevel = &level
	}
	place.Address = joinAddress(
		data.Location.Address1,
		data.Location.City,
		data.Location.State,
		data.Location.ZipCode,
	)

	return place, true
}

// priceLevel maps Yelp's "$".."$$$$" onto the shared 1..4 scale.
func priceLevel(price string) (int, bool) {
	n := len(price)
	if n == 0 || n > 4 || strings.Count(price, "$") != n {
		return 0, false
	}
	return n, true
}

func joinAddress(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
