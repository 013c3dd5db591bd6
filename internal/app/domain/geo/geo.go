// Package geo holds the pure distance math used by the geofence engine.
package geo

import (
	"math"

	"github.com/remindly/geotrigger/internal/app/models"
)

const earthRadiusKm = 6371

// DistanceMeters calculates the great-circle distance between two coordinates
// using the Haversine formula. Out-of-range coordinates pass through
// numerically rather than being rejected.
func DistanceMeters(a, b models.Coordinate) float64 {
	dLat := (b.Latitude - a.Latitude) * (math.Pi / 180)
	dLon := (b.Longitude - a.Longitude) * (math.Pi / 180)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*(math.Pi/180))*math.Cos(b.Latitude*(math.Pi/180))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c * 1000
}

// IsWithinRadius reports whether current is inside the circle around target.
// The boundary is inclusive: a point exactly on the radius counts as inside.
func IsWithinRadius(current, target models.Coordinate, radiusMeters float64) bool {
	return DistanceMeters(current, target) <= radiusMeters
}
