package geospatial

import (
	"math"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// EarthRadiusMeters is the mean Earth radius used for all distances.
const EarthRadiusMeters float32 = 6_371_000

const degToRad = float32(math.Pi / 180)

// Haversine calculates the great-circle distance in meters between two points.
// Every intermediate is rounded to float32, so results carry single-precision error.
func Haversine(p, q domain.Coordinate) float32 {
	lon1 := ToRadians(p.Lon)
	lat1 := ToRadians(p.Lat)
	lon2 := ToRadians(q.Lon)
	lat2 := ToRadians(q.Lat)

	dLon := lon2 - lon1
	dLat := lat2 - lat1

	sinLat := sin32(dLat / 2)
	sinLon := sin32(dLon / 2)
	a := sinLat*sinLat + cos32(lat1)*cos32(lat2)*(sinLon*sinLon)

	c := 2 * atan2f32(sqrt32(a), sqrt32(1-a))
	return EarthRadiusMeters * c
}

// ToRadians converts degrees to radians in single precision.
func ToRadians(deg float32) float32 {
	return deg * degToRad
}

func sin32(x float32) float32 { return float32(math.Sin(float64(x))) }

func cos32(x float32) float32 { return float32(math.Cos(float64(x))) }

func sqrt32(x float32) float32 { return float32(math.Sqrt(float64(x))) }

func atan2f32(y, x float32) float32 { return float32(math.Atan2(float64(y), float64(x))) }
