// Package geo provides the geospatial primitives used across the discovery
// pipeline: haversine distances, radius predicates, and coordinate
// normalization.
package geo

import "math"

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000.0

// DistanceM returns the haversine distance between two coordinates in meters.
func DistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// DistanceKm returns the haversine distance between two coordinates in kilometers.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceM(lat1, lng1, lat2, lng2) / 1000
}

// WithinRadius reports whether the two points lie within radiusM meters of
// each other.
func WithinRadius(lat1, lng1, lat2, lng2, radiusM float64) bool {
	return DistanceM(lat1, lng1, lat2, lng2) <= radiusM
}

// Normalize clamps latitude to [-90, 90] and wraps longitude into [-180, 180).
func Normalize(lat, lng float64) (float64, float64) {
	lat = math.Max(-90, math.Min(90, lat))
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lat, lng - 180
}
