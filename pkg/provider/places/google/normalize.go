package google

import (
	"github.com/aroundmehq/aroundme/internal/geo"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

// searchResponse is the subset of the Places v1 search response we consume.
type searchResponse struct {
	Places        []placePayload `json:"places"`
	NextPageToken string         `json:"nextPageToken"`
}

type placePayload struct {
	ID          string       `json:"id"`
	DisplayName *displayName `json:"displayName"`
	Location    *latLng      `json:"location"`
	Types       []string     `json:"types"`
	PrimaryType string       `json:"primaryType"`

	Rating          *float64 `json:"rating"`
	UserRatingCount *int     `json:"userRatingCount"`
	PriceLevel      string   `json:"priceLevel"`

	InternationalPhoneNumber string `json:"internationalPhoneNumber"`
	WebsiteURI               string `json:"websiteUri"`
	GoogleMapsURI            string `json:"googleMapsUri"`
	FormattedAddress         string `json:"formattedAddress"`

	EditorialSummary *localizedText `json:"editorialSummary"`

	OutdoorSeating       *bool `json:"outdoorSeating"`
	GoodForChildren      *bool `json:"goodForChildren"`
	GoodForGroups        *bool `json:"goodForGroups"`
	AllowsDogs           *bool `json:"allowsDogs"`
	Reservable           *bool `json:"reservable"`
	ServesBeer           *bool `json:"servesBeer"`
	ServesBreakfast      *bool `json:"servesBreakfast"`
	ServesBrunch         *bool `json:"servesBrunch"`
	ServesDinner         *bool `json:"servesDinner"`
	ServesLunch          *bool `json:"servesLunch"`
	ServesVegetarianFood *bool `json:"servesVegetarianFood"`
	ServesWine           *bool `json:"servesWine"`
	Takeout              *bool `json:"takeout"`
	Delivery             *bool `json:"delivery"`
	DineIn               *bool `json:"dineIn"`
	Restroom             *bool `json:"restroom"`
	LiveMusic            *bool `json:"liveMusic"`

	ParkingOptions       map[string]bool `json:"parkingOptions"`
	PaymentOptions       map[string]bool `json:"paymentOptions"`
	AccessibilityOptions map[string]bool `json:"accessibilityOptions"`
}

type displayName struct {
	Text string `json:"text"`
}

type latLng struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type localizedText struct {
	Text string `json:"text"`
}

// priceLevels maps the Places v1 price enum onto the shared 0..4 scale.
var priceLevels = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

// normalize converts one upstream payload into a ProviderPlace. A payload
// without coordinates or a display name yields ok=false and is dropped.
func normalize(data placePayload, originLat, originLng float64) (places.ProviderPlace, bool) {
	if data.Location == nil || data.Location.Latitude == nil || data.Location.Longitude == nil {
		return places.ProviderPlace{}, false
	}
	if data.DisplayName == nil || data.DisplayName.Text == "" {
		return places.ProviderPlace{}, false
	}

	lat := *data.Location.Latitude
	lng := *data.Location.Longitude

	place := places.ProviderPlace{
		Provider:   "google",
		ProviderID: data.ID,
		Name:       data.DisplayName.Text,
		Category:   data.PrimaryType,
		Lat:        lat,
		Lng:        lng,
		Rating:     data.Rating,
		Phone:      data.InternationalPhoneNumber,
		Website:    data.WebsiteURI,
		MapURL:     data.GoogleMapsURI,
		Address:    data.FormattedAddress,
		DistanceKm: geo.DistanceKm(originLat, originLng, lat, lng),
		Types:      data.Types,
	}
	if data.UserRatingCount != nil && *data.UserRatingCount >= 0 {
		place.ReviewCount = data.UserRatingCount
	}
	if level, ok := priceLevels[data.PriceLevel]; ok {
		place.PriceLevel = &level
	}

	setFlag(&place.Amenities, "outdoor_seating", data.OutdoorSeating)
	setFlag(&place.Amenities, "good_for_children", data.GoodForChildren)
	setFlag(&place.Amenities, "good_for_groups", data.GoodForGroups)
	setFlag(&place.Amenities, "allows_dogs", data.AllowsDogs)
	setFlag(&place.Amenities, "reservable", data.Reservable)
	setFlag(&place.Amenities, "serves_beer", data.ServesBeer)
	setFlag(&place.Amenities, "serves_breakfast", data.ServesBreakfast)
	setFlag(&place.Amenities, "serves_brunch", data.ServesBrunch)
	setFlag(&place.Amenities, "serves_dinner", data.ServesDinner)
	setFlag(&place.Amenities, "serves_lunch", data.ServesLunch)
	setFlag(&place.Amenities, "serves_vegetarian_food", data.ServesVegetarianFood)
	setFlag(&place.Amenities, "serves_wine", data.ServesWine)
	setFlag(&place.Amenities, "takeout", data.Takeout)
	setFlag(&place.Amenities, "delivery", data.Delivery)
	setFlag(&place.Amenities, "dine_in", data.DineIn)
	setFlag(&place.Amenities, "restroom", data.Restroom)
	setFlag(&place.Amenities, "live_music", data.LiveMusic)

	if wheelchair, ok := data.AccessibilityOptions["wheelchairAccessibleEntrance"]; ok {
		place.Amenities.SetFlag("wheelchair_accessible", wheelchair)
	}
	if len(data.ParkingOptions) > 0 {
		place.Amenities.Parking = snakeKeys(data.ParkingOptions)
	}
	if len(data.PaymentOptions) > 0 {
		place.Amenities.Payment = snakeKeys(data.PaymentOptions)
	}
	if data.EditorialSummary != nil {
		place.Amenities.EditorialSummary = data.EditorialSummary.Text
	}

	return place, true
}

func setFlag(a *places.Amenities, name string, value *bool) {
	if value != nil {
		a.SetFlag(name, *value)
	}
}

// snakeKeys converts upstream camelCase option keys to snake_case.
func snakeKeys(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[toSnake(k)] = v
	}
	return out
}

func toSnake(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b = append(b, '_')
			}
			b = append(b, c+'a'-'A')
			continue
		}
		b = append(b, c)
	}
	return string(b)
}
