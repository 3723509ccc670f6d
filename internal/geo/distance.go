package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean earth radius used for every distance in the service.
const EarthRadiusKm = 6371.0

// WalkingSpeedKmh is the pace assumed by WalkingMinutes.
const WalkingSpeedKmh = 5.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the great-circle distance between a and b using the
// spherical law of cosines.
func DistanceKm(a, b Point) float64 {
	if a == b {
		return 0
	}
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLng := radians(b.Lng - a.Lng)

	cos := math.Cos(lat1)*math.Cos(lat2)*math.Cos(dLng) + math.Sin(lat1)*math.Sin(lat2)
	// rounding can push identical points slightly above 1, which acos turns into NaN
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return EarthRadiusKm * math.Acos(cos)
}

// Within reports whether b lies inside the radius around a. The boundary is inclusive.
func Within(a, b Point, radiusKm float64) (float64, bool) {
	d := DistanceKm(a, b)
	return d, d <= radiusKm
}

// WalkingMinutes estimates the walking time for a distance, rounded up.
func WalkingMinutes(km float64) int {
	return int(math.Ceil(km / WalkingSpeedKmh * 60))
}

// FormatDistance renders a distance for display: meters under 1 km, otherwise km with one decimal.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1f km", km)
}

// FormatWalkingTime renders WalkingMinutes for display.
func FormatWalkingTime(km float64) string {
	return fmt.Sprintf("%d min", WalkingMinutes(km))
}

// RoundKm rounds a distance to meter precision.
func RoundKm(km float64) float64 {
	return math.Round(km*1000) / 1000
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a rectangle that contains every point within radiusKm
// of center, used to narrow candidates before exact distances are computed.
// ok is false when the rectangle would cross a pole or the antimeridian.
func BoundingBox(center Point, radiusKm float64) (Box, bool) {
	// pad so points exactly on the radius survive float error
	r := radiusKm * 1.001 / EarthRadiusKm
	dLat := r * 180 / math.Pi

	b := Box{MinLat: center.Lat - dLat, MaxLat: center.Lat + dLat}
	if b.MinLat < -90 || b.MaxLat > 90 {
		return Box{}, false
	}

	s := math.Sin(r) / math.Cos(radians(center.Lat))
	if s >= 1 {
		return Box{}, false
	}
	dLng := math.Asin(s) * 180 / math.Pi

	b.MinLng, b.MaxLng = center.Lng-dLng, center.Lng+dLng
	if b.MinLng < -180 || b.MaxLng > 180 {
		return Box{}, false
	}
	return b, true
}

// Contains reports whether p lies inside the box, edges included.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
