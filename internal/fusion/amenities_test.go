package fusion_test

import (
	"strings"
	"testing"

	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

func TestNormalizeAmenity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "wifi", want: "feat_wifi"},
		{in: "Free WiFi", want: "feat_wifi"},
		{in: "patio", want: "feat_outdoor_seating"},
		{in: "dog_friendly", want: "feat_pet_friendly"},
		{in: "laser tag", want: "feat_laser_tag"},
	}

	for _, tc := range tests {
		if got := fusion.NormalizeAmenity(tc.in); got != tc.want {
			t.Errorf("NormalizeAmenity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractFeatures(t *testing.T) {
	t.Parallel()

	features := fusion.ExtractFeatures("Lovely patio with free wifi. The wifi is fast.")

	if _, ok := features["feat_outdoor_seating"]; !ok {
		t.Error("patio must map to feat_outdoor_seating")
	}
	wifi, ok := features["feat_wifi"]
	if !ok {
		t.Fatal("wifi mention missing")
	}
	// Two occurrences: 0.3 + 2*0.2.
	if wifi < 0.69 || wifi > 0.71 {
		t.Errorf("wifi score = %v, want 0.7", wifi)
	}
	for key, score := range features {
		if score <= 0 || score > 1 {
			t.Errorf("%s score %v out of (0,1]", key, score)
		}
	}
}

func TestExtractFeatures_CapsAtOne(t *testing.T) {
	t.Parallel()

	features := fusion.ExtractFeatures("wifi wifi wifi wifi wifi wifi")
	if features["feat_wifi"] != 1 {
		t.Errorf("score = %v, want capped at 1", features["feat_wifi"])
	}
}

func TestMergeFeatures(t *testing.T) {
	t.Parallel()

	merged := fusion.MergeFeatures(
		map[string]float64{"feat_wifi": 0.3, "feat_quiet": 0.5},
		map[string]float64{"feat_wifi": 0.9},
	)
	if merged["feat_wifi"] != 0.9 {
		t.Errorf("feat_wifi = %v, want max 0.9", merged["feat_wifi"])
	}
	if merged["feat_quiet"] != 0.5 {
		t.Errorf("feat_quiet = %v, want 0.5", merged["feat_quiet"])
	}
}

func TestCheckMustHaves(t *testing.T) {
	t.Parallel()

	features := map[string]float64{
		"feat_wifi":            0.9,
		"feat_outdoor_seating": 0.3,
	}

	ok, matched := fusion.CheckMustHaves(features, []string{"wifi"})
	if !ok || len(matched) != 1 {
		t.Errorf("wifi must-have: ok=%v matched=%v", ok, matched)
	}

	// Below the 0.5 threshold the feature does not count as present.
	ok, matched = fusion.CheckMustHaves(features, []string{"patio"})
	if ok || len(matched) != 0 {
		t.Errorf("weak patio signal must not satisfy: ok=%v matched=%v", ok, matched)
	}

	ok, _ = fusion.CheckMustHaves(features, nil)
	if !ok {
		t.Error("empty must-have list always passes")
	}
}

func TestPlaceText(t *testing.T) {
	t.Parallel()

	p := places.ProviderPlace{
		Name:     "Blue Bottle Coffee",
		Category: "cafe",
		Address:  "66 Mint St",
		Types:    []string{"coffee_shop"},
	}
	p.Amenities.SetFlag("outdoor_seating", true)
	p.Amenities.EditorialSummary = "Minimalist espresso bar."

	text := fusion.PlaceText(p)
	for _, want := range []string{"blue bottle coffee", "cafe", "66 mint st", "coffee_shop", "minimalist espresso bar", "outdoor seating"} {
		if !strings.Contains(text, want) {
			t.Errorf("place text missing %q: %q", want, text)
		}
	}
}

func TestMatchMustHave(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		mustHave string
		want     bool
	}{
		{name: "direct mention", text: "cozy cafe with wifi", mustHave: "wifi", want: true},
		{name: "alias mention", text: "great patio out back", mustHave: "outdoor seating", want: true},
		{name: "case insensitive", text: "dog friendly brewery", mustHave: "Pet Friendly", want: true},
		{name: "absent", text: "a plain diner", mustHave: "playground", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := fusion.MatchMustHave(tc.text, tc.mustHave); got != tc.want {
				t.Errorf("MatchMustHave(%q, %q) = %v, want %v", tc.text, tc.mustHave, got, tc.want)
			}
		})
	}
}
