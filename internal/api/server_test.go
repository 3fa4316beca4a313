package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aroundmehq/aroundme/internal/api"
	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/internal/intent"
	"github.com/aroundmehq/aroundme/internal/rank"
	"github.com/aroundmehq/aroundme/internal/refine"
	"github.com/aroundmehq/aroundme/internal/search"
	"github.com/aroundmehq/aroundme/internal/session"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
	placemock "github.com/aroundmehq/aroundme/pkg/provider/places/mock"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func newTestServer(t *testing.T) (http.Handler, *placemock.Provider, *session.Sessions) {
	t.Helper()

	provider := &placemock.Provider{NameValue: "google"}
	sessions := session.NewSessions(session.NewMemoryStore(), 0)

	svc := search.NewService(search.Config{
		Providers: []places.Provider{provider},
		Deduper:   fusion.NewDeduper(),
		Ranker:    rank.NewRanker(rank.NewMatcher()),
		Sessions:  sessions,
		Refiner:   refine.NewRefiner(sessions, intent.NewFollowupParser(), nil),
	})
	srv := api.NewServer(api.Config{Search: svc, Sessions: sessions})
	return srv.Handler(), provider, sessions
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearch_OK(t *testing.T) {
	t.Parallel()

	h, provider, _ := newTestServer(t)
	provider.SearchResult = []places.ProviderPlace{{
		Provider:    "google",
		ProviderID:  "g1",
		Name:        "Sightglass Coffee",
		Category:    "cafe",
		Lat:         37.7749,
		Lng:         -122.4194,
		Rating:      ptrF(4.5),
		ReviewCount: ptrI(900),
		DistanceKm:  0.1,
	}}

	rec := doJSON(t, h, http.MethodPost, "/api/search",
		`{"query": "coffee", "lat": 37.7749, "lng": -122.4194, "radius_m": 2000}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Places []struct {
			ID     string  `json:"id"`
			Name   string  `json:"name"`
			Rating float64 `json:"rating"`
			Score  float64 `json:"score"`
		} `json:"places"`
		ResultSetID string `json:"result_set_id"`
		Debug       struct {
			CacheHit      bool   `json:"cache_hit"`
			RankingPreset string `json:"ranking_preset"`
		} `json:"debug"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Places) != 1 || resp.Places[0].Name != "Sightglass Coffee" {
		t.Fatalf("places: got %+v", resp.Places)
	}
	if resp.Places[0].ID == "" || resp.Places[0].Score <= 0 {
		t.Errorf("place view incomplete: %+v", resp.Places[0])
	}
	if resp.ResultSetID == "" {
		t.Error("missing result_set_id")
	}
	if resp.Debug.RankingPreset != "balanced" {
		t.Errorf("ranking_preset: got %q", resp.Debug.RankingPreset)
	}
}

func TestSearch_Validation(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing coordinates", `{"query": "coffee"}`, "lat and lng are required"},
		{"lat out of range", `{"lat": 91, "lng": 0}`, "lat"},
		{"lng out of range", `{"lat": 0, "lng": 200}`, "lng"},
		{"radius too small", `{"lat": 0, "lng": 0, "radius_m": 50}`, "radius_m"},
		{"radius too large", `{"lat": 0, "lng": 0, "radius_m": 60000}`, "radius_m"},
		{"top_k too large", `{"lat": 0, "lng": 0, "top_k": 101}`, "top_k"},
		{"price not a pair", `{"lat": 0, "lng": 0, "filters": {"price": [1]}}`, "price"},
		{"price out of range", `{"lat": 0, "lng": 0, "filters": {"price": [1, 9]}}`, "price"},
		{"price min above max", `{"lat": 0, "lng": 0, "filters": {"price": [3, 1]}}`, "price"},
		{"follow-up without ids", `{"lat": 0, "lng": 0, "context": {"follow_up": true}}`, "follow_up"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/search", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status: got %d, want 422; body %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("content type: got %q", ct)
			}
			var p struct {
				Type   string `json:"type"`
				Detail string `json:"detail"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatalf("decode problem: %v", err)
			}
			if p.Type != "validation-error" {
				t.Errorf("type: got %q", p.Type)
			}
			if !strings.Contains(p.Detail, tt.want) {
				t.Errorf("detail %q should mention %q", p.Detail, tt.want)
			}
		})
	}
}

func TestPlaceLookup(t *testing.T) {
	t.Parallel()

	h, provider, _ := newTestServer(t)
	provider.SearchResult = []places.ProviderPlace{{
		Provider:   "google",
		ProviderID: "g1",
		Name:       "Sightglass Coffee",
		Lat:        37.7749,
		Lng:        -122.4194,
	}}

	rec := doJSON(t, h, http.MethodPost, "/api/search",
		`{"query": "coffee", "lat": 37.7749, "lng": -122.4194}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status: got %d", rec.Code)
	}
	var resp struct {
		Places      []struct{ ID string }
		ResultSetID string `json:"result_set_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Known place resolves.
	rec = doJSON(t, h, http.MethodGet, "/api/place/"+resp.ResultSetID+"/"+resp.Places[0].ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("place status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var place struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &place); err != nil {
		t.Fatalf("decode place: %v", err)
	}
	if place.Name != "Sightglass Coffee" {
		t.Errorf("name: got %q", place.Name)
	}

	// Unknown place id in a live set.
	rec = doJSON(t, h, http.MethodGet, "/api/place/"+resp.ResultSetID+"/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown place: got %d, want 404", rec.Code)
	}

	// Expired or unknown result set.
	rec = doJSON(t, h, http.MethodGet, "/api/place/unknown-set/whatever", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown set: got %d, want 404", rec.Code)
	}
	var p struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Type != "not-found" {
		t.Errorf("type: got %q", p.Type)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body: got %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
}
