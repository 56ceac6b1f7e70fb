package geo

import "math"

// EarthRadiusMiles is the mean Earth radius in statute miles
const EarthRadiusMiles = 3958.8

// The straight line haversine output underestimates road distance, so each
// caller multiplies with an empirical road factor. The factors differ per
// feature and payroll history depends on each of them, so they stay separate
// named constants until the business settles on one number.
const (
	// RoadFactorDriveStop is applied when a drive time entry is stopped
	RoadFactorDriveStop = 1.19

	// RoadFactorRecompute is applied when timesheet tables re-derive mileage
	RoadFactorRecompute = 1.364

	// RoadFactorDisplay is applied for the schedule detail display
	RoadFactorDisplay = 1.50
)

// HaversineMiles computes the great circle distance between two coordinates in
// statute miles. It is a pure function and performs no input validation: NaN
// inputs propagate and callers have to guard before display or persistence.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
