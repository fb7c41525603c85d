package report

import (
	"fmt"
	"math"
)

// earthRadiusKm is the sphere radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm computes the great-circle distance between two points in
// kilometers. Nil for any missing coordinate.
func DistanceKm(lat1, lon1, lat2, lon2 *float64) *float64 {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return nil
	}

	dLat := radians(*lat2 - *lat1)
	dLon := radians(*lon2 - *lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(*lat1))*math.Cos(radians(*lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	d := earthRadiusKm * c
	return &d
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// FormatDistance renders a distance for display: meters under 1 km, otherwise
// kilometers to two decimals.
func FormatDistance(km *float64) string {
	if km == nil {
		return "-"
	}
	if *km < 1 {
		return fmt.Sprintf("%.0f m", *km*1000)
	}
	return fmt.Sprintf("%.2f km", *km)
}

// MapsURL renders a Google Maps link for a coordinate pair, or "" when the
// pair is incomplete.
func MapsURL(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", *lat, *lon)
}

// FormatCoords renders "lat, lon" to four decimals, or "N/A".
func FormatCoords(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.4f, %.4f", *lat, *lon)
}
