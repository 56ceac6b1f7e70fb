package timesheet

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/geo"
)

// ComputeDistance converts a record's locations into a mileage figure. A
// positive persisted distance is authoritative. Otherwise coordinate pairs go
// through haversine with the caller's road factor, odometer pairs subtract,
// and anything degenerate computes to 0. The result is never negative and
// never NaN.
func ComputeDistance(record *Record, scheduleDate time.Time, roadFactor float64) float64 {
	if record.Distance > 0 {
		return record.Distance
	}

	if record.Type != EntrySiteTime &&
		GenerationFor(DomainDriveDistance, record.EffectiveDate(scheduleDate)) == GenerationLegacy {
		// Legacy drive entries derive mileage from their persisted hours.
		return clampHours(record.Hours) * AverageDriveSpeedMPH
	}

	latIn, lonIn, inIsCoordinate := ParseCoordinate(record.LocationIn)
	latOut, lonOut, outIsCoordinate := ParseCoordinate(record.LocationOut)
	if inIsCoordinate && outIsCoordinate {
		miles := geo.HaversineMiles(latIn, lonIn, latOut, lonOut) * roadFactor
		if math.IsNaN(miles) || miles < 0 {
			return 0
		}
		return miles
	}

	odoIn, inIsOdometer := ParseOdometer(record.LocationIn)
	odoOut, outIsOdometer := ParseOdometer(record.LocationOut)
	if inIsOdometer && outIsOdometer {
		if odoOut <= odoIn {
			return 0
		}
		return odoOut - odoIn
	}

	return 0
}

// ParseCoordinate reads a "lat,lng" pair. Comma grouped odometer readings
// like "1,250" or "1,150" must not masquerade as coordinates: values outside
// the valid latitude/longitude ranges are rejected, and so is a bare digit
// grouping, an integer first part followed by exactly three digits. Device
// fixes always carry decimals (see CoordinateString), so they never look like
// a grouping.
func ParseCoordinate(raw string) (lat float64, lon float64, ok bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}

	first := strings.TrimSpace(parts[0])
	second := strings.TrimSpace(parts[1])

	if isDigitGrouping(first, second) {
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, 0, false
	}

	lon, err = strconv.ParseFloat(second, 64)
	if err != nil {
		return 0, 0, false
	}

	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, false
	}

	return lat, lon, true
}

func isDigitGrouping(first string, second string) bool {
	if len(second) != 3 {
		return false
	}

	for _, r := range first + second {
		if r < '0' || r > '9' {
			return false
		}
	}

	return first != "" && first[0] != '0'
}

// ParseOdometer reads a numeric odometer string, tolerating thousands
// separators like "1,250"
func ParseOdometer(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) {
		return 0, false
	}

	return value, true
}

// CoordinateString renders device coordinates in the persisted "lat,lng" form
func CoordinateString(lat float64, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

// RoundMiles rounds a mileage figure to 2 decimals for persistence
func RoundMiles(miles float64) float64 {
	return math.Round(miles*100) / 100
}
