package google_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aroundmehq/aroundme/pkg/provider/places"
	"github.com/aroundmehq/aroundme/pkg/provider/places/google"
)

func respond(t *testing.T, w http.ResponseWriter, body map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func placePayload(id, name string, lat, lng float64) map[string]any {
	return map[string]any{
		"id":          id,
		"displayName": map[string]any{"text": name},
		"location":    map[string]any{"latitude": lat, "longitude": lng},
		"types":       []string{"cafe", "food"},
		"primaryType": "cafe",
	}
}

func TestSearchNearby_TextSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places:searchText" {
			t.Errorf("path = %q, want /places:searchText", r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["textQuery"] != "coffee" {
			t.Errorf("textQuery = %v, want coffee", payload["textQuery"])
		}

		full := placePayload("p1", "Blue Bottle Coffee", 37.7749, -122.4194)
		full["rating"] = 4.5
		full["userRatingCount"] = 1250
		full["priceLevel"] = "PRICE_LEVEL_MODERATE"
		full["outdoorSeating"] = true
		full["editorialSummary"] = map[string]any{"text": "A popular third-wave cafe."}
		full["parkingOptions"] = map[string]any{"freeParkingLot": true}

		respond(t, w, map[string]any{"places": []any{full}})
	}))
	defer srv.Close()

	p, err := google.New("test-key", google.WithBaseURL(srv.URL))
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
	if place.Provider != "google" || place.ProviderID != "p1" {
		t.Errorf("identity = (%s, %s), want (google, p1)", place.Provider, place.ProviderID)
	}
	if place.Name != "Blue Bottle Coffee" {
		t.Errorf("Name = %q", place.Name)
	}
	if place.RatingValue() != 4.5 || place.ReviewCountValue() != 1250 {
		t.Errorf("rating/reviews = %v/%v", place.RatingValue(), place.ReviewCountValue())
	}
	if place.PriceLevel == nil || *place.PriceLevel != 2 {
		t.Errorf("PriceLevel = %v, want 2", place.PriceLevel)
	}
	if v, ok := place.Amenities.Flag("outdoor_seating"); !ok || !v {
		t.Errorf("outdoor_seating flag = (%v, %v), want (true, true)", v, ok)
	}
	if !place.Amenities.AnyParking() {
		t.Error("expected nested parking fact to be true")
	}
	if place.Amenities.EditorialSummary == "" {
		t.Error("expected editorial summary")
	}
	if place.DistanceKm != 0 {
		t.Errorf("DistanceKm = %v, want 0 for origin point", place.DistanceKm)
	}
}

func TestSearchNearby_CategorySearchDropsPartialRecords(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places:searchNearby" {
			t.Errorf("path = %q, want /places:searchNearby", r.URL.Path)
		}
		noName := map[string]any{
			"id":       "p2",
			"location": map[string]any{"latitude": 37.78, "longitude": -122.42},
		}
		noCoords := map[string]any{
			"id":          "p3",
			"displayName": map[string]any{"text": "Phantom Cafe"},
		}
		respond(t, w, map[string]any{"places": []any{
			placePayload("p1", "Starbucks", 37.7800, -122.4200),
			noName,
			noCoords,
		}})
	}))
	defer srv.Close()

	p, err := google.New("test-key", google.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 3000, Category: "cafe", Limit: 20,
	})
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(got) != 1 || got[0].ProviderID != "p1" {
		t.Fatalf("got %d places, want only the fully-parsed record", len(got))
	}
}

func TestSearchNearby_Pagination(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)

		if n == 1 {
			if payload["pageToken"] != nil {
				t.Error("first call must not carry a page token")
			}
			respond(t, w, map[string]any{
				"places":        []any{placePayload("p1", "First", 37.78, -122.42)},
				"nextPageToken": "tok-2",
			})
			return
		}
		if payload["pageToken"] != "tok-2" {
			t.Errorf("pageToken = %v, want tok-2", payload["pageToken"])
		}
		respond(t, w, map[string]any{
			"places": []any{placePayload("p2", "Second", 37.79, -122.43)},
		})
	}))
	defer srv.Close()

	p, err := google.New("test-key", google.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 3000, Category: "cafe", Limit: 40,
	})
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d places, want 2 across pages", len(got))
	}
	if got[0].ProviderID != "p1" || got[1].ProviderID != "p2" {
		t.Errorf("page order not preserved: %s, %s", got[0].ProviderID, got[1].ProviderID)
	}
}

func TestSearchNearby_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
			return
		}
		respond(t, w, map[string]any{"places": []any{placePayload("p1", "Recovered", 37.78, -122.42)}})
	}))
	defer srv.Close()

	p, err := google.New("test-key",
		google.WithBaseURL(srv.URL),
		google.WithTimeout(30*time.Second),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 3000, Category: "cafe", Limit: 20,
	})
	if err != nil {
		t.Fatalf("SearchNearby after retry: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d places, want 1", len(got))
	}
	if calls.Load() != 2 {
		t.Errorf("upstream called %d times, want 2", calls.Load())
	}
}

func TestSearchNearby_FailsFastOnClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad field mask", http.StatusBadRequest)
	}))
	defer srv.Close()

	p, err := google.New("test-key", google.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.SearchNearby(context.Background(), places.SearchParams{
		Lat: 37.7749, Lng: -122.4194, RadiusM: 3000, Category: "cafe", Limit: 20,
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("upstream called %d times, want exactly 1 (no retry on 4xx)", calls.Load())
	}

	var provErr *places.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T, want *places.Error", err)
	}
	if provErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", provErr.StatusCode)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := google.New(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
