package timesheet

import (
	"math"
	"testing"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/geo"
)

var currentDriveDay = time.Date(2026, time.February, 2, 7, 0, 0, 0, time.Local)
var legacyDriveDay = time.Date(2025, time.November, 3, 7, 0, 0, 0, time.Local)

func TestComputeDistance_OdometerSubtraction(t *testing.T) {
	record := &Record{
		Type:        EntryDriveTime,
		ClockIn:     &currentDriveDay,
		LocationIn:  "1000",
		LocationOut: "1,250",
	}

	if d := ComputeDistance(record, currentDriveDay, geo.RoadFactorDriveStop); d != 250 {
		t.Errorf("odometer subtraction with thousands separator: want 250 got %f", d)
	}
}

func TestComputeDistance_OdometerReversedClampsToZero(t *testing.T) {
	record := &Record{
		Type:        EntryDriveTime,
		ClockIn:     &currentDriveDay,
		LocationIn:  "1,250",
		LocationOut: "1000",
	}

	if d := ComputeDistance(record, currentDriveDay, geo.RoadFactorDriveStop); d != 0 {
		t.Errorf("reversed odometer readings must compute to 0, got %f", d)
	}
}

func TestComputeDistance_CoordinatePair(t *testing.T) {
	record := &Record{
		Type:        EntryDriveTime,
		ClockIn:     &currentDriveDay,
		LocationIn:  "39.7392,-104.9903",
		LocationOut: "40.0150,-105.2705",
	}

	straight := geo.HaversineMiles(39.7392, -104.9903, 40.0150, -105.2705)
	want := straight * geo.RoadFactorDriveStop

	d := ComputeDistance(record, currentDriveDay, geo.RoadFactorDriveStop)
	if math.Abs(d-want) > 1e-9 {
		t.Errorf("coordinate pair distance: want %f got %f", want, d)
	}
}

func TestComputeDistance_PersistedDistanceIsAuthoritative(t *testing.T) {
	record := &Record{
		Type:        EntryDriveTime,
		ClockIn:     &currentDriveDay,
		Distance:    42.5,
		LocationIn:  "1000",
		LocationOut: "9000",
	}

	if d := ComputeDistance(record, currentDriveDay, geo.RoadFactorDriveStop); d != 42.5 {
		t.Errorf("positive persisted distance must be trusted, got %f", d)
	}
}

func TestComputeDistance_LegacyDriveDerivesFromHours(t *testing.T) {
	record := &Record{
		Type:    EntryDriveTime,
		ClockIn: &legacyDriveDay,
		Hours:   2.0,
	}

	if d := ComputeDistance(record, legacyDriveDay, geo.RoadFactorDriveStop); d != 110.0 {
		t.Errorf("legacy drive entry with 2.0 hours must derive 110 miles, got %f", d)
	}
}

func TestComputeDistance_NeverNegative(t *testing.T) {
	var degenerateRecords = []*Record{
		{Type: EntryDriveTime, ClockIn: &currentDriveDay},
		{Type: EntryDriveTime, ClockIn: &currentDriveDay, LocationIn: "not a place", LocationOut: "also not"},
		{Type: EntryDriveTime, ClockIn: &currentDriveDay, LocationIn: "39.7,-104.9", LocationOut: "1000"},
		{Type: EntryDriveTime, ClockIn: &legacyDriveDay, Hours: -5},
	}

	for i, record := range degenerateRecords {
		d := ComputeDistance(record, currentDriveDay, geo.RoadFactorDriveStop)
		if d < 0 || math.IsNaN(d) {
			t.Errorf("record %d: distance must be clamped to >= 0, got %f", i, d)
		}
	}
}

func TestParseCoordinate_RejectsOdometerReadings(t *testing.T) {
	if _, _, ok := ParseCoordinate("1,250"); ok {
		t.Error("comma grouped odometer reading must not parse as a coordinate")
	}

	// second group inside the longitude range, rejected by the digit
	// grouping check instead
	if _, _, ok := ParseCoordinate("1,150"); ok {
		t.Error("comma grouped odometer reading must not parse as a coordinate")
	}

	if _, _, ok := ParseCoordinate("39.7392,-104.9903"); !ok {
		t.Error("valid coordinate pair must parse")
	}

	if _, _, ok := ParseCoordinate("1.0,150"); !ok {
		t.Error("coordinate with a decimal latitude must parse")
	}
}

func TestComputeDistance_GroupedOdometerInLongitudeRange(t *testing.T) {
	record := &Record{
		Type:        EntryDriveTime,
		ClockIn:     &currentDriveDay,
		LocationIn:  "1,150",
		LocationOut: "1,250",
	}

	if d := ComputeDistance(record, currentDriveDay, geo.RoadFactorDriveStop); d != 100 {
		t.Errorf("grouped odometer readings must subtract, want 100 got %f", d)
	}
}

func TestRoundMiles(t *testing.T) {
	if got := RoundMiles(12.3456); got != 12.35 {
		t.Errorf("want 12.35 got %f", got)
	}
}
