// Package geo provides geolocation utilities for distance-aware feed ranking.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for haversine distance.
const EarthRadiusKm = 6371.0

// Distance tier thresholds and their boost multipliers for nearby content.
const (
	NearbyKm   = 10.0
	RegionalKm = 50.0
	DistantKm  = 200.0

	NearbyBoost   = 2.0
	RegionalBoost = 1.5
	DistantBoost  = 1.2
	NeutralBoost  = 1.0
)

// HaversineKm computes the great-circle distance in kilometers between two
// coordinate pairs using the haversine formula.
//
// Parameters:
//   - lat1, lng1: first point in degrees
//   - lat2, lng2: second point in degrees
//
// Returns the distance in kilometers (always >= 0).
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// DistanceBoost maps a distance in kilometers to a multiplicative boost tier.
// Content close to the user is boosted most aggressively; beyond DistantKm
// the boost is neutral.
func DistanceBoost(distanceKm float64) float64 {
	switch {
	case distanceKm < NearbyKm:
		return NearbyBoost
	case distanceKm < RegionalKm:
		return RegionalBoost
	case distanceKm < DistantKm:
		return DistantBoost
	default:
		return NeutralBoost
	}
}

// toRadians converts degrees to radians.
func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
