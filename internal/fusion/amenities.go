package fusion

import (
	"strings"

	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

// amenityAliases maps each normalized feature to the phrases users and
// providers use for it. Aliases use underscores; matching also tries the
// space-separated form.
var amenityAliases = map[string][]string{
	"changing_station":      {"changing_station", "changing_table", "baby_changing", "diaper_changing"},
	"stroller_parking":      {"stroller_parking", "stroller_friendly", "pram_parking"},
	"playground":            {"playground", "play_area", "kids_play", "children_playground"},
	"family_friendly":       {"family_friendly", "kid_friendly", "kids_welcome", "children_welcome"},
	"recliners":             {"recliners", "recliner_seats", "luxury_seating"},
	"dolby":                 {"dolby", "dolby_atmos", "dolby_cinema", "dolby_sound"},
	"shade":                 {"shade", "shaded_area", "covered_seating", "umbrella"},
	"outdoor_seating":       {"outdoor_seating", "patio", "terrace", "outdoor_dining", "garden_seating"},
	"wifi":                  {"wifi", "wireless", "internet", "free_wifi"},
	"wheelchair_accessible": {"wheelchair_accessible", "accessible", "ada_compliant"},
	"parking":               {"parking", "parking_lot", "valet_parking", "free_parking"},
	"pet_friendly":          {"pet_friendly", "dog_friendly", "pets_allowed"},
	"vegetarian":            {"vegetarian", "veggie_options", "vegetarian_friendly"},
	"vegan":                 {"vegan", "vegan_options", "plant_based"},
	"gluten_free":           {"gluten_free", "gf_options"},
	"takeout":               {"takeout", "take_out", "to_go"},
	"delivery":              {"delivery", "food_delivery"},
	"reservations":          {"reservations", "booking", "table_booking"},
	"quiet":                 {"quiet", "peaceful", "calm", "relaxing"},
	"live_music":            {"live_music", "music", "entertainment"},
}

// aliasToFeature is the reverse lookup from alias to feature key.
var aliasToFeature = func() map[string]string {
	m := make(map[string]string)
	for feature, aliases := range amenityAliases {
		for _, alias := range aliases {
			m[alias] = "feat_" + feature
		}
	}
	return m
}()

// NormalizeAmenity maps free-form amenity text onto its canonical feature key.
// Unknown amenities get a feat_ key derived from the text itself.
func NormalizeAmenity(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if key, ok := aliasToFeature[strings.ReplaceAll(t, " ", "_")]; ok {
		return key
	}
	return "feat_" + strings.ReplaceAll(t, " ", "_")
}

// ExtractFeatures scans free text for amenity aliases and scores each found
// feature by mention count: min(1, 0.3 + 0.2 per occurrence).
func ExtractFeatures(text string) map[string]float64 {
	features := make(map[string]float64)
	lower := strings.ToLower(text)

	for feature, aliases := range amenityAliases {
		for _, alias := range aliases {
			spaced := strings.ReplaceAll(alias, "_", " ")
			count := strings.Count(lower, alias) + strings.Count(lower, spaced)
			if alias == spaced {
				count = strings.Count(lower, alias)
			}
			if count == 0 {
				continue
			}
			score := 0.3 + float64(count)*0.2
			if score > 1 {
				score = 1
			}
			features["feat_"+feature] = score
			break
		}
	}
	return features
}

// MergeFeatures combines feature maps, keeping the maximum score per key.
func MergeFeatures(maps ...map[string]float64) map[string]float64 {
	merged := make(map[string]float64)
	for _, m := range maps {
		for key, value := range m {
			if value > merged[key] {
				merged[key] = value
			}
		}
	}
	return merged
}

// mustHaveScoreThreshold is the minimum feature score that counts as "has".
const mustHaveScoreThreshold = 0.5

// CheckMustHaves reports whether the feature map satisfies every must-have,
// and which of them matched.
func CheckMustHaves(features map[string]float64, mustHaves []string) (bool, []string) {
	var matched []string
	for _, mustHave := range mustHaves {
		if features[NormalizeAmenity(mustHave)] >= mustHaveScoreThreshold {
			matched = append(matched, mustHave)
		}
	}
	return len(matched) == len(mustHaves), matched
}

// FeatureDisplayName renders a feat_ key for humans: "feat_outdoor_seating"
// becomes "outdoor seating".
func FeatureDisplayName(key string) string {
	key = strings.TrimPrefix(key, "feat_")
	return strings.ReplaceAll(key, "_", " ")
}

// PlaceText builds the lowercased text blob of one place: name, category,
// address, type tags, editorial summary, and the structured amenities
// rendered as readable text. Keyword and must-have matching run over it.
func PlaceText(p places.ProviderPlace) string {
	parts := []string{p.Name, p.Category, p.Address}
	parts = append(parts, p.Types...)
	parts = append(parts, p.Amenities.EditorialSummary, p.Amenities.ReadableText())

	var nonEmpty []string
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}

// MatchMustHave reports whether the place text contains any alias of the
// given amenity, case-insensitively. The amenity's own words always count as
// an alias of themselves.
func MatchMustHave(placeText, mustHave string) bool {
	normalized := strings.ToLower(strings.TrimSpace(mustHave))
	aliases := []string{normalized}

	feature := strings.TrimPrefix(NormalizeAmenity(mustHave), "feat_")
	aliases = append(aliases, amenityAliases[feature]...)

	for _, alias := range aliases {
		spaced := strings.ReplaceAll(alias, "_", " ")
		if strings.Contains(placeText, alias) || strings.Contains(placeText, spaced) {
			return true
		}
	}
	return false
}
