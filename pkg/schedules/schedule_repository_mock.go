package schedules

import (
	"context"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockScheduleRepository is an in memory ScheduleRepositoryInterface for tests
type MockScheduleRepository struct {
	Schedules []*Schedule
}

// Add adds a schedule
func (r *MockScheduleRepository) Add(_ context.Context, schedule *Schedule) error {
	schedule.ID = primitive.NewObjectID()
	schedule.CreatedAt = time.Now()
	schedule.LastModifiedAt = time.Now()
	r.Schedules = append(r.Schedules, schedule)
	return nil
}

// FindByID finds a schedule by ID
func (r *MockScheduleRepository) FindByID(_ context.Context, scheduleID string) (*Schedule, error) {
	for _, schedule := range r.Schedules {
		if schedule.ID.Hex() == scheduleID && !schedule.Deleted {
			return schedule, nil
		}
	}

	return nil, errors.New("schedule not found")
}

// FindAll finds all schedules paginated
func (r *MockScheduleRepository) FindAll(_ context.Context, page int, pageSize int, _ []Filter, includeDeleted bool) ([]Schedule, int, error) {
	var results []Schedule
	for _, schedule := range r.Schedules {
		if schedule.Deleted && !includeDeleted {
			continue
		}
		results = append(results, *schedule)
	}

	offset := page * pageSize
	if offset >= len(results) {
		return []Schedule{}, len(results), nil
	}

	end := offset + pageSize
	if end > len(results) {
		end = len(results)
	}

	return results[offset:end], len(results), nil
}

// FindByDateRange finds all schedules whose fromDate falls into [from, to)
func (r *MockScheduleRepository) FindByDateRange(_ context.Context, from time.Time, to time.Time) ([]Schedule, error) {
	var results []Schedule
	for _, schedule := range r.Schedules {
		if schedule.Deleted {
			continue
		}
		if !schedule.FromDate.Before(from) && schedule.FromDate.Before(to) {
			results = append(results, *schedule)
		}
	}

	return results, nil
}

// Update updates the schedule header fields
func (r *MockScheduleRepository) Update(_ context.Context, update *ScheduleUpdate) error {
	for _, schedule := range r.Schedules {
		if schedule.ID == update.ID && !schedule.Deleted {
			schedule.JobName = update.JobName
			schedule.ClientName = update.ClientName
			schedule.JobSite = update.JobSite
			schedule.Foreman = update.Foreman
			schedule.FromDate = update.FromDate
			schedule.ToDate = update.ToDate
			schedule.Crew = update.Crew
			schedule.Notes = update.Notes
			schedule.LastModifiedAt = time.Now()
			return nil
		}
	}

	return errors.New("schedule not found")
}

// Delete marks a schedule as deleted
func (r *MockScheduleRepository) Delete(_ context.Context, scheduleID string) error {
	for _, schedule := range r.Schedules {
		if schedule.ID.Hex() == scheduleID {
			schedule.Deleted = true
			return nil
		}
	}

	return errors.New("schedule not found")
}

// AddTimesheetEntry pushes a single new entry
func (r *MockScheduleRepository) AddTimesheetEntry(_ context.Context, scheduleID string, entry *timesheet.Record) error {
	for _, schedule := range r.Schedules {
		if schedule.ID.Hex() == scheduleID && !schedule.Deleted {
			if entry.ID.IsZero() {
				entry.ID = primitive.NewObjectID()
			}
			if entry.Version == 0 {
				entry.Version = 1
			}
			schedule.Timesheet = append(schedule.Timesheet, *entry)
			return nil
		}
	}

	return errors.New("schedule not found")
}

// UpdateTimesheetEntry replaces a single entry guarded by its version
func (r *MockScheduleRepository) UpdateTimesheetEntry(_ context.Context, scheduleID string, entry *timesheet.Record) error {
	for _, schedule := range r.Schedules {
		if schedule.ID.Hex() != scheduleID || schedule.Deleted {
			continue
		}

		for index, existing := range schedule.Timesheet {
			if existing.ID == entry.ID {
				if existing.Version != entry.Version {
					return communication.ErrVersionConflict
				}
				entry.Version++
				schedule.Timesheet[index] = *entry
				return nil
			}
		}
	}

	return errors.New("timesheet entry not found")
}

// RemoveTimesheetEntry deletes a single entry
func (r *MockScheduleRepository) RemoveTimesheetEntry(_ context.Context, scheduleID string, entryID string) error {
	for _, schedule := range r.Schedules {
		if schedule.ID.Hex() != scheduleID || schedule.Deleted {
			continue
		}

		for index, existing := range schedule.Timesheet {
			if existing.ID.Hex() == entryID {
				schedule.Timesheet = append(schedule.Timesheet[:index], schedule.Timesheet[index+1:]...)
				return nil
			}
		}
	}

	return errors.New("timesheet entry not found")
}

// FindActiveDriveTime looks for an open drive time entry of an employee
func (r *MockScheduleRepository) FindActiveDriveTime(_ context.Context, employee string) (*ActiveDriveTime, error) {
	for _, schedule := range r.Schedules {
		if schedule.Deleted {
			continue
		}

		for _, entry := range schedule.Timesheet {
			if entry.Employee == employee && entry.Type == timesheet.EntryDriveTime && entry.IsActive() {
				return &ActiveDriveTime{ScheduleID: schedule.ID, Entry: entry}, nil
			}
		}
	}

	return nil, nil
}

// CompleteDriveTime closes an open drive time entry
func (r *MockScheduleRepository) CompleteDriveTime(_ context.Context, scheduleID primitive.ObjectID, entryID primitive.ObjectID, stop DriveTimeStop) (*timesheet.Record, error) {
	for _, schedule := range r.Schedules {
		if schedule.ID != scheduleID || schedule.Deleted {
			continue
		}

		for index, entry := range schedule.Timesheet {
			if entry.ID == entryID && entry.IsActive() {
				clockOut := stop.ClockOut
				schedule.Timesheet[index].ClockOut = &clockOut
				schedule.Timesheet[index].LocationOut = stop.LocationOut
				schedule.Timesheet[index].Distance = stop.Distance
				schedule.Timesheet[index].Hours = stop.Hours
				schedule.Timesheet[index].Version++
				return &schedule.Timesheet[index], nil
			}
		}
	}

	return nil, communication.ErrNoActiveDriveTime
}

// IncrementQuickLog accumulates one unit of a quick log category
func (r *MockScheduleRepository) IncrementQuickLog(ctx context.Context, scheduleID string, employee string, category QuickLogCategory, day time.Time) (*timesheet.Record, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	for _, schedule := range r.Schedules {
		if schedule.ID.Hex() != scheduleID || schedule.Deleted {
			continue
		}

		for index, entry := range schedule.Timesheet {
			quickLog := entry.QuickLogFor(string(category))
			if entry.Employee != employee || quickLog == nil || entry.ClockIn == nil {
				continue
			}
			if entry.ClockIn.Before(dayStart) || !entry.ClockIn.Before(dayEnd) {
				continue
			}

			quickLog.Increment()
			schedule.Timesheet[index].Hours += category.UnitHours()
			schedule.Timesheet[index].Version++
			return &schedule.Timesheet[index], nil
		}
	}

	// Created already closed, a quick log entry is a day level accumulator
	// and must never look like an open drive time entry.
	clockIn := day
	clockOut := day
	entry := &timesheet.Record{
		Employee: employee,
		Type:     timesheet.EntryDriveTime,
		ClockIn:  &clockIn,
		ClockOut: &clockOut,
		Status:   timesheet.StatusPending,
		Hours:    category.UnitHours(),
	}

	quickLog := &timesheet.QuickLog{Qty: 1, UnitHours: category.UnitHours()}
	if category == CategoryShopTime {
		entry.ShopTime = quickLog
	} else {
		entry.DumpWashout = quickLog
	}

	err := r.AddTimesheetEntry(ctx, scheduleID, entry)
	if err != nil {
		return nil, err
	}

	return entry, nil
}
