package timesheet

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryType is the normalized kind of a timesheet entry
type EntryType string

const (
	// EntrySiteTime is on site work clocked via in/out timestamps
	EntrySiteTime EntryType = "SiteTime"

	// EntryDriveTime is time spent driving between locations
	EntryDriveTime EntryType = "DriveTime"
)

// NormalizeEntryType maps the free text type values found in older records
// ("site time", "Drive Time", ...) onto the enum. Anything that is not site
// time computes through the drive time branch.
func NormalizeEntryType(raw string) EntryType {
	if strings.Contains(strings.ToLower(raw), "site") {
		return EntrySiteTime
	}

	return EntryDriveTime
}

// StatusPending is the initial workflow status of a new entry
const StatusPending = "Pending"

// StatusApproved marks an entry signed off by the office
const StatusApproved = "Approved"

// Record is one clock-in/clock-out cycle for one employee, embedded in the
// timesheet list of its parent schedule. It is never persisted on its own.
type Record struct {
	ID       primitive.ObjectID `json:"id" bson:"_id"`
	Employee string             `json:"employee" bson:"employee" validate:"required,email"`
	Type     EntryType          `json:"type" bson:"type"`

	ClockIn  *time.Time `json:"clockIn,omitempty" bson:"clockIn,omitempty"`
	ClockOut *time.Time `json:"clockOut,omitempty" bson:"clockOut,omitempty"`

	// LocationIn and LocationOut hold either a "lat,lng" coordinate pair or a
	// raw odometer reading, possibly with thousands separators.
	LocationIn  string `json:"locationIn,omitempty" bson:"locationIn,omitempty"`
	LocationOut string `json:"locationOut,omitempty" bson:"locationOut,omitempty"`

	LunchStart *time.Time `json:"lunchStart,omitempty" bson:"lunchStart,omitempty"`
	LunchEnd   *time.Time `json:"lunchEnd,omitempty" bson:"lunchEnd,omitempty"`

	// Hours and Distance are the persisted computation results. A positive
	// Distance is authoritative for display paths.
	Hours    float64 `json:"hours" bson:"hours"`
	Distance float64 `json:"distance" bson:"distance"`

	DumpWashout *QuickLog `json:"dumpWashout,omitempty" bson:"dumpWashout,omitempty"`
	ShopTime    *QuickLog `json:"shopTime,omitempty" bson:"shopTime,omitempty"`

	// Rate snapshots are copied from the employee profile when the entry is
	// edited, so that later rate changes never move past payroll.
	HourlyRateSite  float64 `json:"hourlyRateSITE" bson:"hourlyRateSITE"`
	HourlyRateDrive float64 `json:"hourlyRateDrive" bson:"hourlyRateDrive"`

	Status  string `json:"status" bson:"status"`
	Version int64  `json:"version" bson:"version"`
}

// IsActive reports whether the entry is still running
func (r *Record) IsActive() bool {
	return r.ClockOut == nil
}

// QuickLogFor returns the quick log for a persisted field name ("dumpWashout"
// or "shopTime"), or nil
func (r *Record) QuickLogFor(field string) *QuickLog {
	switch field {
	case "dumpWashout":
		return r.DumpWashout
	case "shopTime":
		return r.ShopTime
	}

	return nil
}

// EffectiveDate is the date rule versioning keys on: the entry's own clock-in,
// or the parent schedule's date when the entry never got one
func (r *Record) EffectiveDate(scheduleDate time.Time) time.Time {
	if r.ClockIn != nil {
		return *r.ClockIn
	}

	return scheduleDate
}
