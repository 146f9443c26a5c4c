// Package geo provides great-circle distance helpers.
package geo

import (
	"math"

	"github.com/kilianp07/responder/core/model"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// DistanceKm computes the haversine distance in kilometers between two
// points given in decimal degrees. Inputs are not range checked; finite
// inputs always give a finite result and only NaN inputs give NaN.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding near antipodes can push a just past 1.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance is DistanceKm for two coordinates.
func Distance(a, b model.Coordinate) float64 {
	return DistanceKm(a.Lat, a.Lon, b.Lat, b.Lon)
}
