package schedules

import (
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Schedule is the model for one scheduled job. Timesheet entries are embedded
// and never persisted outside their parent schedule document.
type Schedule struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
	Deleted        bool               `json:"-" bson:"deleted"`

	JobName    string    `json:"jobName" bson:"jobName" validate:"required"`
	ClientName string    `json:"clientName" bson:"clientName"`
	JobSite    string    `json:"jobSite" bson:"jobSite"`
	Foreman    string    `json:"foreman" bson:"foreman" validate:"omitempty,email"`
	FromDate   time.Time `json:"fromDate" bson:"fromDate" validate:"required"`
	ToDate     time.Time `json:"toDate" bson:"toDate"`
	Crew       []string  `json:"crew" bson:"crew"`
	Notes      string    `json:"notes" bson:"notes"`

	Timesheet []timesheet.Record `json:"timesheet" bson:"timesheet"`
}

// ScheduleUpdate is the view of a schedule for an update. The timesheet list
// is deliberately absent: entries change through the per-entry operations
// only, never by replacing the whole array.
type ScheduleUpdate struct {
	ID             primitive.ObjectID `bson:"_id" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"-"`
	LastModifiedAt time.Time          `bson:"lastModifiedAt" json:"-"`
	Deleted        bool               `bson:"deleted" json:"-"`

	JobName    string    `json:"jobName" bson:"jobName" validate:"required"`
	ClientName string    `json:"clientName" bson:"clientName"`
	JobSite    string    `json:"jobSite" bson:"jobSite"`
	Foreman    string    `json:"foreman" bson:"foreman" validate:"omitempty,email"`
	FromDate   time.Time `json:"fromDate" bson:"fromDate" validate:"required"`
	ToDate     time.Time `json:"toDate" bson:"toDate"`
	Crew       []string  `json:"crew" bson:"crew"`
	Notes      string    `json:"notes" bson:"notes"`
}

// ActiveDriveTime is an open drive time entry together with its parent
// schedule id
type ActiveDriveTime struct {
	ScheduleID primitive.ObjectID `json:"scheduleId"`
	Entry      timesheet.Record   `json:"entry"`
}

// DriveTimeStop carries the fields written when a drive time entry is closed
type DriveTimeStop struct {
	ClockOut    time.Time
	LocationOut string
	Distance    float64
	Hours       float64
}

// QuickLogCategory names an accumulable quick log field on a timesheet entry
type QuickLogCategory string

const (
	// CategoryDumpWashout is the 0.5h equipment washout category
	CategoryDumpWashout QuickLogCategory = "dumpWashout"

	// CategoryShopTime is the 0.25h shop work category
	CategoryShopTime QuickLogCategory = "shopTime"
)

// UnitHours is the fixed duration of one unit of the category
func (c QuickLogCategory) UnitHours() float64 {
	if c == CategoryShopTime {
		return timesheet.ShopUnitHours
	}

	return timesheet.WashoutUnitHours
}

// Valid reports whether the category is one of the known quick log fields
func (c QuickLogCategory) Valid() bool {
	return c == CategoryDumpWashout || c == CategoryShopTime
}
