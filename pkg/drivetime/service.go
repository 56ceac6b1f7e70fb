package drivetime

import (
	"context"
	"math"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/geo"
	"github.com/fieldline-app/fieldline-backend/pkg/locking"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/fieldline-app/fieldline-backend/pkg/schedules"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"github.com/pkg/errors"
)

// now is overridable for tests
var now = time.Now

// lockTTL bounds how long a crashed transition can hold an employee's lock
const lockTTL = 30 * time.Second

// Position is a device location fix
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the fix is usable
func (p *Position) Valid() bool {
	if p == nil {
		return false
	}

	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}

	return math.Abs(p.Latitude) <= 90 && math.Abs(p.Longitude) <= 180
}

// Service governs the start/stop lifecycle of drive time entries. All
// transitions run under a per employee lock, so at most one drive time entry
// is ever open per employee no matter how many devices or tabs fire actions.
type Service struct {
	ScheduleRepository schedules.ScheduleRepositoryInterface
	Locker             locking.LockerInterface
	Logger             logger.Interface
}

// Active returns the employee's open drive time entry, or nil
func (s *Service) Active(ctx context.Context, employee string) (*schedules.ActiveDriveTime, error) {
	if employee == "" {
		return nil, communication.ErrIdentityMissing
	}

	return s.ScheduleRepository.FindActiveDriveTime(ctx, employee)
}

// Start opens a new drive time entry for the employee on the given schedule.
// Nothing is persisted when any step fails, so a failed start needs no
// cleanup beyond the client dropping its optimistic entry.
func (s *Service) Start(ctx context.Context, employee string, scheduleID string, position *Position) (*timesheet.Record, error) {
	if employee == "" {
		return nil, communication.ErrIdentityMissing
	}

	if !position.Valid() {
		return nil, communication.ErrLocationUnavailable
	}

	lock, err := s.Locker.Acquire(ctx, "drivetime:"+employee, lockTTL, true)
	if err != nil {
		return nil, errors.Wrap(communication.ErrDriveTimeAlreadyActive, err.Error())
	}
	defer func() {
		releaseErr := lock.Release(ctx)
		if releaseErr != nil {
			s.Logger.Warning("Could not release drive time lock", releaseErr)
		}
	}()

	active, err := s.ScheduleRepository.FindActiveDriveTime(ctx, employee)
	if err != nil {
		return nil, errors.Wrap(err, "could not check for an active drive time entry")
	}

	if active != nil {
		return nil, communication.ErrDriveTimeAlreadyActive
	}

	clockIn := now()
	entry := &timesheet.Record{
		Employee:   employee,
		Type:       timesheet.EntryDriveTime,
		ClockIn:    &clockIn,
		LocationIn: timesheet.CoordinateString(position.Latitude, position.Longitude),
		Status:     timesheet.StatusPending,
	}

	err = s.ScheduleRepository.AddTimesheetEntry(ctx, scheduleID, entry)
	if err != nil {
		return nil, errors.Wrap(err, "could not persist drive time entry")
	}

	return entry, nil
}

// Stop closes the employee's open drive time entry, computing mileage from the
// entry's own start location and the new device fix. The close is an atomic
// update-if-still-open: if the entry was already closed by another device the
// caller gets ErrNoActiveDriveTime and has to refetch authoritative data.
func (s *Service) Stop(ctx context.Context, employee string, position *Position) (*timesheet.Record, error) {
	if employee == "" {
		return nil, communication.ErrIdentityMissing
	}

	if !position.Valid() {
		return nil, communication.ErrLocationUnavailable
	}

	lock, err := s.Locker.Acquire(ctx, "drivetime:"+employee, lockTTL, true)
	if err != nil {
		return nil, errors.Wrap(communication.ErrNoActiveDriveTime, err.Error())
	}
	defer func() {
		releaseErr := lock.Release(ctx)
		if releaseErr != nil {
			s.Logger.Warning("Could not release drive time lock", releaseErr)
		}
	}()

	active, err := s.ScheduleRepository.FindActiveDriveTime(ctx, employee)
	if err != nil {
		return nil, errors.Wrap(err, "could not look up the active drive time entry")
	}

	if active == nil {
		return nil, communication.ErrNoActiveDriveTime
	}

	clockOut := now()

	closed := active.Entry
	closed.ClockOut = &clockOut
	closed.LocationOut = timesheet.CoordinateString(position.Latitude, position.Longitude)

	distance := timesheet.RoundMiles(timesheet.ComputeDistance(&closed, clockOut, geo.RoadFactorDriveStop))
	closed.Distance = distance

	hours := timesheet.ComputeHours(&closed, clockOut, geo.RoadFactorDriveStop)

	return s.ScheduleRepository.CompleteDriveTime(ctx, active.ScheduleID, active.Entry.ID, schedules.DriveTimeStop{
		ClockOut:    clockOut,
		LocationOut: closed.LocationOut,
		Distance:    distance,
		Hours:       hours,
	})
}
