package timesheet

import (
	"math"
	"time"
)

// AverageDriveSpeedMPH is the assumed average speed converting between drive
// time mileage and hours
const AverageDriveSpeedMPH = 55.0

// ComputeHours converts a record into a decimal hour value under the rules of
// its effective date. The road factor is the caller's road distance factor and
// only matters for current generation drive time entries. The result is never
// negative and never NaN; degenerate input computes to 0 because the value
// feeds payroll displays directly.
func ComputeHours(record *Record, scheduleDate time.Time, roadFactor float64) float64 {
	if record.Type == EntrySiteTime {
		return computeSiteHours(record, scheduleDate)
	}

	return computeDriveHours(record, scheduleDate, roadFactor)
}

func computeSiteHours(record *Record, scheduleDate time.Time) float64 {
	if record.ClockIn == nil || record.ClockOut == nil {
		return 0
	}

	duration := record.ClockOut.Sub(*record.ClockIn)

	if record.LunchStart != nil && record.LunchEnd != nil && record.LunchEnd.After(*record.LunchStart) {
		duration -= record.LunchEnd.Sub(*record.LunchStart)
	}

	if duration <= 0 {
		return 0
	}

	raw := duration.Hours()

	if GenerationFor(DomainSiteHours, record.EffectiveDate(scheduleDate)) == GenerationLegacy {
		return raw
	}

	return roundSiteHours(raw)
}

// roundSiteHours applies the quarter hour payroll rounding. Days between 7.75
// and 8 hours snap to exactly 8.
func roundSiteHours(raw float64) float64 {
	if raw >= 7.75 && raw < 8.0 {
		return 8.0
	}

	whole := math.Floor(raw)
	minutes := math.Round((raw - whole) * 60)

	var rounded float64
	switch {
	case minutes > 59:
		// Remainders past 59 collapse to 0 rather than carrying into the next
		// whole hour. Closed pay periods were computed this way, so the
		// behavior is kept and pinned by a test.
		rounded = 0
	case minutes > 44:
		rounded = 45
	case minutes > 29:
		rounded = 30
	case minutes > 14:
		rounded = 15
	default:
		rounded = 0
	}

	return whole + rounded/60
}

func computeDriveHours(record *Record, scheduleDate time.Time, roadFactor float64) float64 {
	if GenerationFor(DomainDriveDistance, record.EffectiveDate(scheduleDate)) == GenerationLegacy {
		// Legacy drive entries carry authoritative hours and derive mileage
		// from them, the reverse of the current rules.
		return clampHours(record.Hours)
	}

	distance := ComputeDistance(record, scheduleDate, roadFactor)
	if distance > 0 {
		return distance / AverageDriveSpeedMPH
	}

	if h := record.DumpWashout.Hours(); h > 0 {
		return h
	}

	if h := record.ShopTime.Hours(); h > 0 {
		return h
	}

	return 0
}

func clampHours(hours float64) float64 {
	if math.IsNaN(hours) || hours < 0 {
		return 0
	}

	return hours
}
