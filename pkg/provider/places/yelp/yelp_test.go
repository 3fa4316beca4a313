package yelp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aroundmehq/aroundme/pkg/provider/places"
	"github.com/aroundmehq/aroundme/pkg/provider/places/yelp"
)

func respond(t *testing.T, w http.ResponseWriter, body map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func business(id, name string, lat, lng float64) map[string]any {
	return map[string]any{
		"id":   id,
		"name": name,
		"coordinates": map[string]any{
			"latitude":  lat,
			"longitude": lng,
		},
		"categories": []any{
			map[string]any{"alias": "coffee", "title": "Coffee & Tea"},
			map[string]any{"alias": "bakeries", "title": "Bakeries"},
		},
	}
}

func TestSearchNearby_Normalization(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/businesses/search" {
			t.Errorf("path = %q, want /businesses/search", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		q := r.URL.Query()
		if q.Get("term") != "coffee" {
			t.Errorf("term = %q, want coffee", q.Get("term"))
		}
		if q.Get("radius") != "3000" {
			t.Errorf("radius = %q, want 3000", q.Get("radius"))
		}

		full := business("y1", "Ritual Coffee Roasters", 37.7764, -122.4242)
		full["rating"] = 4.0
		full["review_count"] = 870
		full["price"] = "$$"
		full["phone"] = "+14155551234"
		full["url"] = "https://www.yelp.com/biz/ritual-coffee"
		full["location"] = map[string]any{
			"address1": "1026 Valencia St",
			"city":     "San Francisco",
			"state":    "CA",
			"zip_code": "94110",
		}
		respond(t, w, map[string]any{"businesses": []any{full}, "total": 1})
	}))
	defer srv.Close()

	p, err := yelp.New("test-key", yelp.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 3000, Query: "coffee", Limit: 20,
	})
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d places, want 1", len(got))
	}

	place := got[0]
	if place.Provider != "yelp" || place.ProviderID != "y1" {
		t.Errorf("identity = (%s, %s), want (yelp, y1)", place.Provider, place.ProviderID)
	}
	if place.Name != "Ritual Coffee Roasters" {
		t.Errorf("Name = %q", place.Name)
	}
	if place.Category != "coffee" {
		t.Errorf("Category = %q, want first alias", place.Category)
	}
	if len(place.Types) != 2 || place.Types[1] != "bakeries" {
		t.Errorf("Types = %v, want both aliases", place.Types)
	}
	if place.PriceLevel == nil || *place.PriceLevel != 2 {
		t.Errorf("PriceLevel = %v, want 2 for $$", place.PriceLevel)
	}
	if place.RatingValue() != 4.0 || place.ReviewCountValue() != 870 {
		t.Errorf("rating/reviews = %v/%v", place.RatingValue(), place.ReviewCountValue())
	}
	if place.Website != place.MapURL || place.Website == "" {
		t.Errorf("business page must serve as website and map link, got %q / %q", place.Website, place.MapURL)
	}
	if place.Address != "1026 Valencia St, San Francisco, CA, 94110" {
		t.Errorf("Address = %q", place.Address)
	}
	if place.DistanceKm <= 0 {
		t.Errorf("DistanceKm = %v, want > 0", place.DistanceKm)
	}
}

func TestSearchNearby_DropsPartialRecords(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noCoords := map[string]any{"id": "y2", "name": "Phantom Diner"}
		noName := map[string]any{
			"id": "y3",
			"coordinates": map[string]any{
				"latitude": 37.78, "longitude": -122.42,
			},
		}
		respond(t, w, map[string]any{"businesses": []any{
			business("y1", "Kept", 37.78, -122.42),
			noCoords,
			noName,
		}})
	}))
	defer srv.Close()

	p, err := yelp.New("test-key", yelp.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 3000, Limit: 20,
	})
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(got) != 1 || got[0].ProviderID != "y1" {
		t.Fatalf("got %d places, want only the fully-parsed record", len(got))
	}
}

func TestSearchNearby_OffsetPagination(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		q := r.URL.Query()

		if n == 1 {
			if q.Get("offset") != "0" {
				t.Errorf("first offset = %q, want 0", q.Get("offset"))
			}
			if q.Get("limit") != "50" {
				t.Errorf("first limit = %q, want page cap 50", q.Get("limit"))
			}
			full := make([]any, 0, 50)
			for i := 0; i < 50; i++ {
				full = append(full, business("first", "First Page", 37.78, -122.42))
			}
			respond(t, w, map[string]any{"businesses": full, "total": 60})
			return
		}
		if q.Get("offset") != "50" {
			t.Errorf("second offset = %q, want 50", q.Get("offset"))
		}
		respond(t, w, map[string]any{"businesses": []any{
			business("last", "Second Page", 37.79, -122.43),
		}, "total": 60})
	}))
	defer srv.Close()

	p, err := yelp.New("test-key", yelp.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 3000, Limit: 60,
	})
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(got) != 51 {
		t.Fatalf("got %d places, want 51 across pages", len(got))
	}
	if got[50].ProviderID != "last" {
		t.Errorf("page order not preserved, last id = %s", got[50].ProviderID)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream called %d times, want 2", calls.Load())
	}
}

func TestSearchNearby_ClampsRadius(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("radius"); got != "40000" {
			t.Errorf("radius = %q, want clamped 40000", got)
		}
		respond(t, w, map[string]any{"businesses": []any{}})
	}))
	defer srv.Close()

	p, err := yelp.New("test-key", yelp.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 90000, Limit: 10,
	}); err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
}

func TestSearchNearby_RejectsMalformedPrice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		odd := business("y1", "Odd Price", 37.78, -122.42)
		odd["price"] = "€€"
		respond(t, w, map[string]any{"businesses": []any{odd}})
	}))
	defer srv.Close()

	p, err := yelp.New("test-key", yelp.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 3000, Limit: 10,
	})
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d places, want 1", len(got))
	}
	if got[0].PriceLevel != nil {
		t.Errorf("PriceLevel = %v, want nil for non-dollar price string", *got[0].PriceLevel)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := yelp.New(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
