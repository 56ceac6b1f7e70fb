package timesheet

import "time"

// RuleDomain is an independently versioned area of the computation rules
type RuleDomain string

const (
	// DomainDriveDistance versions how drive time hours and mileage relate
	DomainDriveDistance RuleDomain = "driveDistance"

	// DomainSiteHours versions the minute rounding of site time
	DomainSiteHours RuleDomain = "siteHours"
)

// RuleGeneration selects between the legacy and the current rules
type RuleGeneration int

const (
	// GenerationLegacy applies to records dated before the domain cutover
	GenerationLegacy RuleGeneration = iota

	// GenerationCurrent applies to records dated on or after the domain cutover
	GenerationCurrent
)

// Cutover dates are naive local timestamps. Records compute under the rules of
// their own date forever: payroll figures for closed pay periods must not move.
var (
	driveDistanceCutover = time.Date(2026, time.January, 12, 0, 0, 0, 0, time.Local)
	siteHoursCutover     = time.Date(2025, time.October, 26, 0, 0, 0, 0, time.Local)
)

// GenerationFor selects the rule generation for a domain based on a record's
// effective date
func GenerationFor(domain RuleDomain, effective time.Time) RuleGeneration {
	cutover := siteHoursCutover
	if domain == DomainDriveDistance {
		cutover = driveDistanceCutover
	}

	if effective.Before(cutover) {
		return GenerationLegacy
	}

	return GenerationCurrent
}
