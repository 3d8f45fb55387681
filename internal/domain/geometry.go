package domain

import "math"

const (
	// EarthRadiusKM is the sphere radius used for great-circle distances.
	EarthRadiusKM = 6371.0

	// MetersPerNM converts meters to nautical miles.
	MetersPerNM = 1852.0

	// MaxRMW caps a derived radius of maximum wind (nm).
	MaxRMW = 70.0
)

// DistanceAndBearing returns the haversine distance in meters and the initial
// bearing in degrees [0, 360) from point 1 to point 2.
func DistanceAndBearing(lat1, lon1, lat2, lon2 float64) (float64, float64) {
	if lat1 == lat2 && lon1 == lon2 {
		return 0, 0
	}

	rad := math.Pi / 180.0
	phi1, phi2 := lat1*rad, lat2*rad
	dphi := (lat2 - lat1) * rad
	dlambda := (lon2 - lon1) * rad

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	dist := EarthRadiusKM * c * 1000.0

	y := math.Sin(dlambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dlambda)
	bearing := math.Mod(math.Atan2(y, x)/rad+360.0, 360.0)

	return dist, bearing
}

// RadiusOfMaxWind returns the distance (nm) between a storm centre and its
// co-temporal maximum-wind location, clamped to MaxRMW.
func RadiusOfMaxWind(centerLat, centerLon, windLat, windLon float64) float64 {
	meters, _ := DistanceAndBearing(centerLat, centerLon, windLat, windLon)
	return math.Min(meters/MetersPerNM, MaxRMW)
}
