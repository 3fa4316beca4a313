package places

import (
	"sort"
	"strings"
)

// AmenityVocabulary is the closed set of structured amenity flags an adapter
// may emit. Unknown upstream fields are discarded at the adapter boundary so
// raw provider JSON never leaks past it.
var AmenityVocabulary = map[string]struct{}{
	"wifi":                   {},
	"outdoor_seating":        {},
	"good_for_children":      {},
	"good_for_groups":        {},
	"allows_dogs":            {},
	"reservable":             {},
	"serves_beer":            {},
	"serves_breakfast":       {},
	"serves_brunch":          {},
	"serves_dinner":          {},
	"serves_lunch":           {},
	"serves_vegetarian_food": {},
	"serves_wine":            {},
	"takeout":                {},
	"delivery":               {},
	"dine_in":                {},
	"wheelchair_accessible":  {},
	"restroom":               {},
	"live_music":             {},
}

// Amenities carries the structured amenity facts for one place: a flag map
// over [AmenityVocabulary], the provider's editorial summary, and the nested
// parking and payment fact maps.
type Amenities struct {
	// Flags maps vocabulary names to their upstream truth value. Absent keys
	// mean the upstream did not report the fact either way.
	Flags map[string]bool `json:"flags,omitempty"`

	// EditorialSummary is the provider's free-text description, if any.
	EditorialSummary string `json:"editorial_summary,omitempty"`

	// Parking holds nested parking facts (e.g., "free_parking_lot": true).
	Parking map[string]bool `json:"parking,omitempty"`

	// Payment holds nested payment facts (e.g., "accepts_credit_cards": true).
	Payment map[string]bool `json:"payment,omitempty"`
}

// SetFlag records a vocabulary flag. Names outside [AmenityVocabulary] are
// dropped silently.
func (a *Amenities) SetFlag(name string, value bool) {
	if _, ok := AmenityVocabulary[name]; !ok {
		return
	}
	if a.Flags == nil {
		a.Flags = make(map[string]bool)
	}
	a.Flags[name] = value
}

// Flag reports the value of a vocabulary flag and whether it was set.
func (a Amenities) Flag(name string) (bool, bool) {
	v, ok := a.Flags[name]
	return v, ok
}

// AnyParking reports whether any nested parking fact is true.
func (a Amenities) AnyParking() bool {
	return anyTrue(a.Parking)
}

// AnyPayment reports whether any nested payment fact is true.
func (a Amenities) AnyPayment() bool {
	return anyTrue(a.Payment)
}

// ReadableText renders every true amenity fact as a human-readable phrase,
// sorted for determinism. "serves_breakfast" becomes "breakfast",
// "allows_dogs" becomes "dogs", other flags keep their words.
func (a Amenities) ReadableText() string {
	var parts []string
	for name, v := range a.Flags {
		if v {
			parts = append(parts, readableAmenity(name))
		}
	}
	if a.AnyParking() {
		parts = append(parts, "parking")
	}
	for name, v := range a.Payment {
		if v {
			parts = append(parts, strings.ReplaceAll(name, "_", " "))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func readableAmenity(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	s = strings.TrimPrefix(s, "serves ")
	s = strings.TrimPrefix(s, "allows ")
	return s
}

func anyTrue(m map[string]bool) bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}
