package fusion_test

import (
	"testing"

	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/internal/intent"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

func fusedPlace(id, name, category string, lat, lng float64) fusion.FusedPlace {
	rep := places.ProviderPlace{
		Provider:   "google",
		ProviderID: id,
		Name:       name,
		Category:   category,
		Lat:        lat,
		Lng:        lng,
	}
	return fusion.FusedPlace{
		ID:             id,
		Representative: rep,
		Members:        []places.ProviderPlace{rep},
	}
}

func TestJoinConstraints_AnchorWithPartner(t *testing.T) {
	t.Parallel()

	// A playground-equipped park with a cafe ~60 m away, plus a park with no
	// cafe anywhere near it.
	fused := []fusion.FusedPlace{
		fusedPlace("p1", "Mission Playground Park", "park", 37.7599, -122.4148),
		fusedPlace("c1", "Corner Cafe", "cafe", 37.7604, -122.4150),
		fusedPlace("p2", "Lonely Park Playground", "park", 37.8000, -122.5000),
	}
	entities := []intent.EntitySpec{
		{Kind: "park", MustHaves: []string{"playground"}},
		{Kind: "cafe"},
	}
	relations := []intent.Relation{
		{Left: 0, Right: 1, Predicate: intent.PredicateNear},
	}

	kept, stats := fusion.JoinConstraints(fused, entities, relations, 0)

	if len(kept) != 1 {
		t.Fatalf("kept %d anchors, want 1", len(kept))
	}
	if kept[0].ID != "p1" {
		t.Errorf("kept anchor = %s, want p1", kept[0].ID)
	}
	if stats.Kept != 1 || stats.Dropped != 1 {
		t.Errorf("stats = %+v, want kept 1 dropped 1", stats)
	}

	if len(kept[0].Partners) != 1 {
		t.Fatalf("partners = %d, want 1", len(kept[0].Partners))
	}
	partner := kept[0].Partners[0]
	if partner.Kind != "cafe" || partner.Name != "Corner Cafe" {
		t.Errorf("partner = %+v", partner)
	}
	if partner.DistanceM <= 0 || partner.DistanceM > 500 {
		t.Errorf("partner distance %v out of the default near range", partner.DistanceM)
	}
}

func TestJoinConstraints_PartnerMustHaves(t *testing.T) {
	t.Parallel()

	fused := []fusion.FusedPlace{
		fusedPlace("p1", "Dolores Park", "park", 37.7599, -122.4148),
		fusedPlace("c1", "Plain Diner", "restaurant", 37.7601, -122.4149),
	}
	entities := []intent.EntitySpec{
		{Kind: "park"},
		{Kind: "cafe", MustHaves: []string{"wifi"}},
	}
	relations := []intent.Relation{
		{Left: 0, Right: 1, Predicate: intent.PredicateNear},
	}

	kept, stats := fusion.JoinConstraints(fused, entities, relations, 0)
	if len(kept) != 0 {
		t.Fatalf("kept %d anchors, want 0 (partner lacks wifi)", len(kept))
	}
	if stats.Dropped != 2 {
		t.Errorf("dropped = %d, want 2 (both anchors pass the empty must-have filter)", stats.Dropped)
	}
}

func TestJoinConstraints_WithinDistance(t *testing.T) {
	t.Parallel()

	// Cafe ~220 m from the park: inside a 300 m bound, outside a 100 m bound.
	fused := []fusion.FusedPlace{
		fusedPlace("p1", "Riverside Park", "park", 37.7599, -122.4148),
		fusedPlace("c1", "Riverbank Cafe", "cafe", 37.7619, -122.4148),
	}
	entities := []intent.EntitySpec{
		{Kind: "park"},
		{Kind: "cafe"},
	}

	within300 := []intent.Relation{{Left: 0, Right: 1, Predicate: intent.PredicateWithinDistance, DistanceM: 300}}
	kept, _ := fusion.JoinConstraints(fused, entities, within300, 0)
	if len(kept) != 1 && len(kept) != 2 {
		t.Fatalf("kept %d anchors within 300 m", len(kept))
	}
	foundPark := false
	for _, k := range kept {
		if k.ID == "p1" {
			foundPark = true
		}
	}
	if !foundPark {
		t.Error("park anchor must survive the 300 m relation")
	}

	within100 := []intent.Relation{{Left: 0, Right: 1, Predicate: intent.PredicateWithinDistance, DistanceM: 100}}
	kept, _ = fusion.JoinConstraints(fused, entities, within100, 0)
	for _, k := range kept {
		if k.ID == "p1" && len(k.Partners) > 0 {
			t.Error("cafe at ~220 m must not qualify within 100 m")
		}
	}
	if len(kept) != 0 {
		t.Errorf("kept %d anchors, want 0 within 100 m", len(kept))
	}
}

func TestJoinConstraints_NonAnchorRelationsIgnored(t *testing.T) {
	t.Parallel()

	fused := []fusion.FusedPlace{
		fusedPlace("p1", "Central Park", "park", 37.7599, -122.4148),
		fusedPlace("c1", "Nearby Cafe", "cafe", 37.7601, -122.4149),
	}
	entities := []intent.EntitySpec{
		{Kind: "park"},
		{Kind: "cafe"},
	}
	relations := []intent.Relation{
		{Left: 0, Right: 1, Predicate: intent.PredicateNear},
		// Not anchored at entity 0: must be skipped, not counted as unmet.
		{Left: 1, Right: 0, Predicate: intent.PredicateNear},
	}

	kept, _ := fusion.JoinConstraints(fused, entities, relations, 0)
	foundPark := false
	for _, k := range kept {
		if k.ID == "p1" {
			foundPark = true
		}
	}
	if !foundPark {
		t.Error("non-anchor relation must be ignored, park should survive")
	}
}

func TestJoinConstraints_MultiplePartnersRecorded(t *testing.T) {
	t.Parallel()

	fused := []fusion.FusedPlace{
		fusedPlace("p1", "Garden Park", "park", 37.7599, -122.4148),
		fusedPlace("c1", "First Cafe", "cafe", 37.7601, -122.4149),
		fusedPlace("c2", "Second Cafe", "cafe", 37.7597, -122.4146),
	}
	entities := []intent.EntitySpec{
		{Kind: "park"},
		{Kind: "cafe"},
	}
	relations := []intent.Relation{
		{Left: 0, Right: 1, Predicate: intent.PredicateNear},
	}

	kept, _ := fusion.JoinConstraints(fused, entities, relations, 0)
	var park *fusion.FusedPlace
	for i := range kept {
		if kept[i].ID == "p1" {
			park = &kept[i]
		}
	}
	if park == nil {
		t.Fatal("park anchor missing")
	}
	if len(park.Partners) != 2 {
		t.Fatalf("partners = %d, want all qualifying partners recorded", len(park.Partners))
	}
	if park.Partners[0].Name != "First Cafe" || park.Partners[1].Name != "Second Cafe" {
		t.Errorf("partner order not enumeration order: %s, %s", park.Partners[0].Name, park.Partners[1].Name)
	}
}

func TestJoinConstraints_PassThrough(t *testing.T) {
	t.Parallel()

	fused := []fusion.FusedPlace{
		fusedPlace("p1", "Solo Park", "park", 37.7599, -122.4148),
	}

	kept, stats := fusion.JoinConstraints(fused, []intent.EntitySpec{{Kind: "park"}}, nil, 0)
	if len(kept) != 1 || stats.Kept != 1 {
		t.Errorf("single-entity intents must pass through unchanged")
	}
}
