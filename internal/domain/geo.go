package domain

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is a coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineDistanceKm returns the great-circle distance between two
// coordinates given in decimal degrees.
func HaversineDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push a a hair past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceKm is HaversineDistanceKm for two points.
func DistanceKm(a, b Point) float64 {
	return HaversineDistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// WithinRadius is true iff point lies at most radiusKm from center.
func WithinRadius(point, center Point, radiusKm float64) bool {
	return DistanceKm(point, center) <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
