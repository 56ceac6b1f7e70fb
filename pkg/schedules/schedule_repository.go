package schedules

import (
	"context"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ScheduleRepositoryInterface is an interface for a *MongoDBScheduleRepository
type ScheduleRepositoryInterface interface {
	Add(ctx context.Context, schedule *Schedule) error
	FindByID(ctx context.Context, scheduleID string) (*Schedule, error)
	FindAll(ctx context.Context, page int, pageSize int, filters []Filter, includeDeleted bool) ([]Schedule, int, error)
	FindByDateRange(ctx context.Context, from time.Time, to time.Time) ([]Schedule, error)
	Update(ctx context.Context, schedule *ScheduleUpdate) error
	Delete(ctx context.Context, scheduleID string) error

	AddTimesheetEntry(ctx context.Context, scheduleID string, entry *timesheet.Record) error
	UpdateTimesheetEntry(ctx context.Context, scheduleID string, entry *timesheet.Record) error
	RemoveTimesheetEntry(ctx context.Context, scheduleID string, entryID string) error

	FindActiveDriveTime(ctx context.Context, employee string) (*ActiveDriveTime, error)
	CompleteDriveTime(ctx context.Context, scheduleID primitive.ObjectID, entryID primitive.ObjectID, stop DriveTimeStop) (*timesheet.Record, error)
	IncrementQuickLog(ctx context.Context, scheduleID string, employee string, category QuickLogCategory, day time.Time) (*timesheet.Record, error)
}

// TimesheetObserver is notified whenever a timesheet entry changes
type TimesheetObserver interface {
	OnNotify(scheduleID primitive.ObjectID, entry *timesheet.Record)
}

// MongoDBScheduleRepository does everything related to storing and finding schedules
type MongoDBScheduleRepository struct {
	DB          *mongo.Collection
	Logger      logger.Interface
	subscribers []TimesheetObserver
}

// Subscribe registers a TimesheetObserver
func (s *MongoDBScheduleRepository) Subscribe(o TimesheetObserver) {
	s.subscribers = append(s.subscribers, o)
}

// Publish notifies all observers about a changed timesheet entry
func (s *MongoDBScheduleRepository) Publish(scheduleID primitive.ObjectID, entry *timesheet.Record) {
	for _, subscriber := range s.subscribers {
		go subscriber.OnNotify(scheduleID, entry)
	}
}

// Add adds a schedule
func (s *MongoDBScheduleRepository) Add(ctx context.Context, schedule *Schedule) error {
	schedule.CreatedAt = time.Now()
	schedule.LastModifiedAt = time.Now()
	schedule.ID = primitive.NewObjectID()

	for index, entry := range schedule.Timesheet {
		if entry.ID.IsZero() {
			schedule.Timesheet[index].ID = primitive.NewObjectID()
		}
		if entry.Version == 0 {
			schedule.Timesheet[index].Version = 1
		}
	}

	_, err := s.DB.InsertOne(ctx, schedule)
	return err
}

// FindByID finds a schedule by ID
func (s *MongoDBScheduleRepository) FindByID(ctx context.Context, scheduleID string) (*Schedule, error) {
	objectID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return nil, err
	}

	var schedule = Schedule{}
	result := s.DB.FindOne(ctx, bson.M{"_id": objectID, "deleted": false})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err = result.Decode(&schedule)
	if err != nil {
		return nil, err
	}

	return &schedule, nil
}

// FindAll finds all schedules paginated
func (s *MongoDBScheduleRepository) FindAll(ctx context.Context, page int, pageSize int, filters []Filter, includeDeleted bool) ([]Schedule, int, error) {
	results := []Schedule{}

	offset := page * pageSize

	findOptions := options.Find()
	findOptions.SetSort(bson.M{"fromDate": 1})
	findOptions.SetSkip(int64(offset))
	findOptions.SetLimit(int64(pageSize))

	var queryFilter bson.D

	if !includeDeleted {
		queryFilter = append(queryFilter, bson.E{Key: "deleted", Value: false})
	}

	for _, filter := range filters {
		if filter.Operator != "" {
			queryFilter = append(queryFilter, bson.E{Key: filter.Field, Value: bson.M{filter.Operator: filter.Value}})
			continue
		}
		queryFilter = append(queryFilter, bson.E{Key: filter.Field, Value: filter.Value})
	}

	if queryFilter == nil {
		queryFilter = bson.D{}
	}

	cursor, err := s.DB.Find(ctx, queryFilter, findOptions)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.DB.CountDocuments(ctx, queryFilter)
	if err != nil {
		return nil, 0, err
	}

	err = cursor.All(ctx, &results)
	if err != nil {
		return nil, 0, err
	}

	return results, int(count), nil
}

// FindByDateRange finds all schedules whose fromDate falls into [from, to)
func (s *MongoDBScheduleRepository) FindByDateRange(ctx context.Context, from time.Time, to time.Time) ([]Schedule, error) {
	results := []Schedule{}

	cursor, err := s.DB.Find(ctx, bson.M{
		"deleted":  false,
		"fromDate": bson.M{"$gte": from, "$lt": to},
	}, options.Find().SetSort(bson.M{"fromDate": 1}))
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &results)
	if err != nil {
		return nil, err
	}

	return results, nil
}

// Update updates the schedule header fields, leaving the timesheet list untouched
func (s *MongoDBScheduleRepository) Update(ctx context.Context, schedule *ScheduleUpdate) error {
	schedule.LastModifiedAt = time.Now()

	result, err := s.DB.UpdateOne(ctx,
		bson.M{"_id": schedule.ID, "deleted": false},
		bson.M{"$set": schedule})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return errors.New("updated count != 1")
	}

	return nil
}

// Delete marks a schedule as deleted
func (s *MongoDBScheduleRepository) Delete(ctx context.Context, scheduleID string) error {
	objectID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return err
	}

	result, err := s.DB.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"deleted": true, "lastModifiedAt": time.Now()}})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return errors.New("updated count != 1")
	}

	return nil
}

// AddTimesheetEntry pushes a single new entry into a schedule's timesheet list
func (s *MongoDBScheduleRepository) AddTimesheetEntry(ctx context.Context, scheduleID string, entry *timesheet.Record) error {
	objectID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return err
	}

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Version == 0 {
		entry.Version = 1
	}

	result, err := s.DB.UpdateOne(ctx,
		bson.M{"_id": objectID, "deleted": false},
		bson.M{
			"$push": bson.M{"timesheet": entry},
			"$set":  bson.M{"lastModifiedAt": time.Now()},
		})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return errors.New("updated count != 1")
	}

	s.Publish(objectID, entry)

	return nil
}

// UpdateTimesheetEntry replaces a single entry, guarded by its version so that
// concurrent edits surface as a conflict instead of silently losing data
func (s *MongoDBScheduleRepository) UpdateTimesheetEntry(ctx context.Context, scheduleID string, entry *timesheet.Record) error {
	objectID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return err
	}

	matchVersion := entry.Version
	entry.Version++

	result, err := s.DB.UpdateOne(ctx,
		bson.M{
			"_id":       objectID,
			"deleted":   false,
			"timesheet": bson.M{"$elemMatch": bson.M{"_id": entry.ID, "version": matchVersion}},
		},
		bson.M{"$set": bson.M{
			"timesheet.$":    entry,
			"lastModifiedAt": time.Now(),
		}})
	if err != nil {
		entry.Version = matchVersion
		return err
	}

	if result.MatchedCount != 1 {
		entry.Version = matchVersion
		return communication.ErrVersionConflict
	}

	s.Publish(objectID, entry)

	return nil
}

// RemoveTimesheetEntry deletes a single entry from a schedule's timesheet list
func (s *MongoDBScheduleRepository) RemoveTimesheetEntry(ctx context.Context, scheduleID string, entryID string) error {
	objectID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return err
	}

	entryObjectID, err := primitive.ObjectIDFromHex(entryID)
	if err != nil {
		return err
	}

	result, err := s.DB.UpdateOne(ctx,
		bson.M{"_id": objectID, "deleted": false},
		bson.M{
			"$pull": bson.M{"timesheet": bson.M{"_id": entryObjectID}},
			"$set":  bson.M{"lastModifiedAt": time.Now()},
		})
	if err != nil {
		return err
	}

	if result.ModifiedCount != 1 {
		return errors.New("no timesheet entry was removed")
	}

	return nil
}

// FindActiveDriveTime looks for an open drive time entry of an employee across
// all schedules. The lookup runs server side so pagination on the client can
// never hide an active entry.
func (s *MongoDBScheduleRepository) FindActiveDriveTime(ctx context.Context, employee string) (*ActiveDriveTime, error) {
	var schedule = Schedule{}

	result := s.DB.FindOne(ctx, bson.M{
		"deleted": false,
		"timesheet": bson.M{"$elemMatch": bson.M{
			"employee": employee,
			"type":     timesheet.EntryDriveTime,
			"clockOut": bson.M{"$exists": false},
		}},
	})
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, result.Err()
	}

	err := result.Decode(&schedule)
	if err != nil {
		return nil, err
	}

	for _, entry := range schedule.Timesheet {
		if entry.Employee == employee && entry.Type == timesheet.EntryDriveTime && entry.IsActive() {
			return &ActiveDriveTime{ScheduleID: schedule.ID, Entry: entry}, nil
		}
	}

	return nil, nil
}

// CompleteDriveTime closes an open drive time entry atomically. The filter
// requires the entry to still be open, so a second stop for the same entry
// matches nothing and reports ErrNoActiveDriveTime.
func (s *MongoDBScheduleRepository) CompleteDriveTime(ctx context.Context, scheduleID primitive.ObjectID, entryID primitive.ObjectID, stop DriveTimeStop) (*timesheet.Record, error) {
	var schedule = Schedule{}

	result := s.DB.FindOneAndUpdate(ctx,
		bson.M{
			"_id":       scheduleID,
			"deleted":   false,
			"timesheet": bson.M{"$elemMatch": bson.M{"_id": entryID, "clockOut": bson.M{"$exists": false}}},
		},
		bson.M{
			"$set": bson.M{
				"timesheet.$.clockOut":    stop.ClockOut,
				"timesheet.$.locationOut": stop.LocationOut,
				"timesheet.$.distance":    stop.Distance,
				"timesheet.$.hours":       stop.Hours,
				"lastModifiedAt":          time.Now(),
			},
			"$inc": bson.M{"timesheet.$.version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, communication.ErrNoActiveDriveTime
		}
		return nil, result.Err()
	}

	err := result.Decode(&schedule)
	if err != nil {
		return nil, err
	}

	for index, entry := range schedule.Timesheet {
		if entry.ID == entryID {
			s.Publish(scheduleID, &schedule.Timesheet[index])
			return &schedule.Timesheet[index], nil
		}
	}

	return nil, errors.New("completed drive time entry not found in schedule")
}

// IncrementQuickLog accumulates one unit of a quick log category for an
// employee and day, creating the entry when none exists yet
func (s *MongoDBScheduleRepository) IncrementQuickLog(ctx context.Context, scheduleID string, employee string, category QuickLogCategory, day time.Time) (*timesheet.Record, error) {
	objectID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var schedule = Schedule{}

	result := s.DB.FindOneAndUpdate(ctx,
		bson.M{
			"_id":     objectID,
			"deleted": false,
			"timesheet": bson.M{"$elemMatch": bson.M{
				"employee":         employee,
				string(category):   bson.M{"$exists": true},
				"clockIn":          bson.M{"$gte": dayStart, "$lt": dayEnd},
			}},
		},
		bson.M{
			"$inc": bson.M{
				"timesheet.$." + string(category) + ".qty": 1,
				"timesheet.$.hours":                        category.UnitHours(),
				"timesheet.$.version":                      1,
			},
			"$set": bson.M{"lastModifiedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	if result.Err() == nil {
		err = result.Decode(&schedule)
		if err != nil {
			return nil, err
		}

		for index, entry := range schedule.Timesheet {
			if entry.Employee == employee && entry.QuickLogFor(string(category)) != nil &&
				entry.ClockIn != nil && !entry.ClockIn.Before(dayStart) && entry.ClockIn.Before(dayEnd) {
				s.Publish(objectID, &schedule.Timesheet[index])
				return &schedule.Timesheet[index], nil
			}
		}

		return nil, errors.New("incremented quick log entry not found in schedule")
	}

	if !errors.Is(result.Err(), mongo.ErrNoDocuments) {
		return nil, result.Err()
	}

	// A quick log entry is a day level accumulator, not a clock event. It is
	// created already closed so it can never satisfy the active drive time
	// lookup or get stamped by a drive time stop.
	clockIn := day
	clockOut := day
	entry := &timesheet.Record{
		ID:       primitive.NewObjectID(),
		Employee: employee,
		Type:     timesheet.EntryDriveTime,
		ClockIn:  &clockIn,
		ClockOut: &clockOut,
		Status:   timesheet.StatusPending,
		Hours:    category.UnitHours(),
		Version:  1,
	}

	quickLog := &timesheet.QuickLog{Qty: 1, UnitHours: category.UnitHours()}
	if category == CategoryShopTime {
		entry.ShopTime = quickLog
	} else {
		entry.DumpWashout = quickLog
	}

	err = s.AddTimesheetEntry(ctx, scheduleID, entry)
	if err != nil {
		return nil, err
	}

	return entry, nil
}
