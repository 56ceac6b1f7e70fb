package drivetime

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/geo"
	"github.com/fieldline-app/fieldline-backend/pkg/locking"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/fieldline-app/fieldline-backend/pkg/schedules"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var log = logger.Logger{}

var startPosition = &Position{Latitude: 39.7392, Longitude: -104.9903}
var stopPosition = &Position{Latitude: 40.0150, Longitude: -105.2705}

func newTestService() (*Service, *schedules.MockScheduleRepository, string) {
	repo := &schedules.MockScheduleRepository{Schedules: []*schedules.Schedule{
		{
			ID:       primitive.NewObjectID(),
			JobName:  "Water main replacement",
			Foreman:  "foreman@fieldline.app",
			FromDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
			Crew:     []string{"dan@fieldline.app"},
		},
	}}

	service := &Service{
		ScheduleRepository: repo,
		Locker:             locking.NewLockerMemory(),
		Logger:             log,
	}

	return service, repo, repo.Schedules[0].ID.Hex()
}

func TestService_Start(t *testing.T) {
	now = func() time.Time { return time.Date(2026, 3, 2, 7, 30, 0, 0, time.Local) }

	service, repo, scheduleID := newTestService()

	entry, err := service.Start(context.Background(), "dan@fieldline.app", scheduleID, startPosition)
	if err != nil {
		t.Fatal(err)
	}

	if entry.Type != timesheet.EntryDriveTime {
		t.Errorf("entry type must be DriveTime, got %s", entry.Type)
	}

	if entry.Status != timesheet.StatusPending {
		t.Errorf("new entry must be Pending, got %s", entry.Status)
	}

	if entry.LocationIn != "39.7392,-104.9903" {
		t.Errorf("unexpected locationIn: %s", entry.LocationIn)
	}

	if !entry.IsActive() {
		t.Error("new entry must be active")
	}

	if len(repo.Schedules[0].Timesheet) != 1 {
		t.Errorf("entry must be persisted into the schedule, have %d", len(repo.Schedules[0].Timesheet))
	}
}

func TestService_Start_SecondStartRejected(t *testing.T) {
	now = func() time.Time { return time.Date(2026, 3, 2, 7, 30, 0, 0, time.Local) }

	service, repo, scheduleID := newTestService()

	_, err := service.Start(context.Background(), "dan@fieldline.app", scheduleID, startPosition)
	if err != nil {
		t.Fatal(err)
	}

	_, err = service.Start(context.Background(), "dan@fieldline.app", scheduleID, startPosition)
	if err == nil || !errors.Is(err, communication.ErrDriveTimeAlreadyActive) {
		t.Errorf("second start must fail with ErrDriveTimeAlreadyActive, got %v", err)
	}

	if len(repo.Schedules[0].Timesheet) != 1 {
		t.Errorf("second start must not create a second active entry, have %d", len(repo.Schedules[0].Timesheet))
	}
}

func TestService_Start_OtherEmployeeUnaffected(t *testing.T) {
	now = func() time.Time { return time.Date(2026, 3, 2, 7, 30, 0, 0, time.Local) }

	service, _, scheduleID := newTestService()

	_, err := service.Start(context.Background(), "dan@fieldline.app", scheduleID, startPosition)
	if err != nil {
		t.Fatal(err)
	}

	_, err = service.Start(context.Background(), "maria@fieldline.app", scheduleID, startPosition)
	if err != nil {
		t.Errorf("another employee must be able to start, got %v", err)
	}
}

func TestService_Stop(t *testing.T) {
	now = func() time.Time { return time.Date(2026, 3, 2, 7, 30, 0, 0, time.Local) }

	service, _, scheduleID := newTestService()

	_, err := service.Start(context.Background(), "dan@fieldline.app", scheduleID, startPosition)
	if err != nil {
		t.Fatal(err)
	}

	now = func() time.Time { return time.Date(2026, 3, 2, 8, 15, 0, 0, time.Local) }

	entry, err := service.Stop(context.Background(), "dan@fieldline.app", stopPosition)
	if err != nil {
		t.Fatal(err)
	}

	if entry.IsActive() {
		t.Error("stopped entry must not be active")
	}

	wantDistance := timesheet.RoundMiles(geo.HaversineMiles(
		startPosition.Latitude, startPosition.Longitude,
		stopPosition.Latitude, stopPosition.Longitude) * geo.RoadFactorDriveStop)
	if entry.Distance != wantDistance {
		t.Errorf("want distance %f got %f", wantDistance, entry.Distance)
	}

	wantHours := wantDistance / timesheet.AverageDriveSpeedMPH
	if math.Abs(entry.Hours-wantHours) > 1e-9 {
		t.Errorf("want hours %f got %f", wantHours, entry.Hours)
	}
}

func TestService_Stop_WithoutActiveEntry(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.Stop(context.Background(), "dan@fieldline.app", stopPosition)
	if err == nil || !errors.Is(err, communication.ErrNoActiveDriveTime) {
		t.Errorf("stop without an active entry must fail with ErrNoActiveDriveTime, got %v", err)
	}
}

func TestService_Stop_TwiceReportsRace(t *testing.T) {
	now = func() time.Time { return time.Date(2026, 3, 2, 7, 30, 0, 0, time.Local) }

	service, _, scheduleID := newTestService()

	_, err := service.Start(context.Background(), "dan@fieldline.app", scheduleID, startPosition)
	if err != nil {
		t.Fatal(err)
	}

	_, err = service.Stop(context.Background(), "dan@fieldline.app", stopPosition)
	if err != nil {
		t.Fatal(err)
	}

	_, err = service.Stop(context.Background(), "dan@fieldline.app", stopPosition)
	if err == nil || !errors.Is(err, communication.ErrNoActiveDriveTime) {
		t.Errorf("a second stop must surface the race, got %v", err)
	}
}

func TestService_Start_RequiresLocation(t *testing.T) {
	service, _, scheduleID := newTestService()

	_, err := service.Start(context.Background(), "dan@fieldline.app", scheduleID, nil)
	if !errors.Is(err, communication.ErrLocationUnavailable) {
		t.Errorf("start without a position must fail with ErrLocationUnavailable, got %v", err)
	}

	_, err = service.Start(context.Background(), "dan@fieldline.app", scheduleID, &Position{Latitude: math.NaN(), Longitude: 0})
	if !errors.Is(err, communication.ErrLocationUnavailable) {
		t.Errorf("start with a NaN position must fail with ErrLocationUnavailable, got %v", err)
	}
}

func TestService_Start_RequiresIdentity(t *testing.T) {
	service, _, scheduleID := newTestService()

	_, err := service.Start(context.Background(), "", scheduleID, startPosition)
	if !errors.Is(err, communication.ErrIdentityMissing) {
		t.Errorf("start without an identity must fail with ErrIdentityMissing, got %v", err)
	}
}

func TestService_Active(t *testing.T) {
	now = func() time.Time { return time.Date(2026, 3, 2, 7, 30, 0, 0, time.Local) }

	service, _, scheduleID := newTestService()

	active, err := service.Active(context.Background(), "dan@fieldline.app")
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Error("no active entry expected before start")
	}

	_, err = service.Start(context.Background(), "dan@fieldline.app", scheduleID, startPosition)
	if err != nil {
		t.Fatal(err)
	}

	active, err = service.Active(context.Background(), "dan@fieldline.app")
	if err != nil {
		t.Fatal(err)
	}
	if active == nil {
		t.Fatal("active entry expected after start")
	}

	if active.Entry.Employee != "dan@fieldline.app" {
		t.Errorf("unexpected employee on active entry: %s", active.Entry.Employee)
	}
}


func TestService_QuickLogEntryDoesNotBlockLifecycle(t *testing.T) {
	now = func() time.Time { return time.Date(2026, 3, 2, 7, 30, 0, 0, time.Local) }

	service, repo, scheduleID := newTestService()

	washout, err := repo.IncrementQuickLog(context.Background(), scheduleID, "dan@fieldline.app",
		schedules.CategoryDumpWashout, time.Date(2026, 3, 2, 6, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatal(err)
	}

	if washout.IsActive() {
		t.Fatal("a quick log entry must not look like an open drive time entry")
	}

	entry, err := service.Start(context.Background(), "dan@fieldline.app", scheduleID, startPosition)
	if err != nil {
		t.Fatalf("start after a quick log must succeed, got %v", err)
	}

	stopped, err := service.Stop(context.Background(), "dan@fieldline.app", stopPosition)
	if err != nil {
		t.Fatalf("stop must succeed, got %v", err)
	}

	if stopped.ID != entry.ID {
		t.Errorf("stop must close the drive entry, closed %s instead of %s", stopped.ID.Hex(), entry.ID.Hex())
	}

	for _, persisted := range repo.Schedules[0].Timesheet {
		if persisted.ID != washout.ID {
			continue
		}

		if persisted.DumpWashout == nil || persisted.DumpWashout.Qty != 1 {
			t.Errorf("washout entry must stay untouched, got %+v", persisted.DumpWashout)
		}
		if persisted.LocationOut != "" {
			t.Errorf("washout entry must not get a stop location, got %q", persisted.LocationOut)
		}
	}
}
