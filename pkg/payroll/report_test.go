package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/schedules"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
)

func timesAt(day time.Time, inHour, inMinute, outHour, outMinute int) (*time.Time, *time.Time) {
	in := time.Date(day.Year(), day.Month(), day.Day(), inHour, inMinute, 0, 0, time.Local)
	out := time.Date(day.Year(), day.Month(), day.Day(), outHour, outMinute, 0, 0, time.Local)
	return &in, &out
}

func TestBuildReport_AggregatesPerEmployee(t *testing.T) {
	repo := &schedules.MockScheduleRepository{}
	service := &Service{ScheduleRepository: repo}

	// current generation for both rule domains
	fromDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

	siteIn, siteOut := timesAt(fromDate, 7, 0, 16, 0)
	lunchStart, lunchEnd := timesAt(fromDate, 12, 0, 12, 30)
	driveIn, driveOut := timesAt(fromDate, 5, 30, 6, 45)

	schedule := &schedules.Schedule{
		JobName:  "Main St Paving",
		FromDate: fromDate,
		Timesheet: []timesheet.Record{
			{
				Employee:       "crew@fieldline.app",
				Type:           timesheet.EntrySiteTime,
				ClockIn:        siteIn,
				ClockOut:       siteOut,
				LunchStart:     lunchStart,
				LunchEnd:       lunchEnd,
				HourlyRateSite: 30,
			},
			{
				Employee:        "crew@fieldline.app",
				Type:            timesheet.EntryDriveTime,
				ClockIn:         driveIn,
				ClockOut:        driveOut,
				Distance:        110,
				HourlyRateDrive: 20,
			},
			{
				Employee:        "driver@fieldline.app",
				Type:            timesheet.EntryDriveTime,
				ClockIn:         driveIn,
				ClockOut:        driveOut,
				DumpWashout:     &timesheet.QuickLog{Qty: 2, UnitHours: timesheet.WashoutUnitHours},
				HourlyRateDrive: 22,
			},
		},
	}

	err := repo.Add(context.Background(), schedule)
	if err != nil {
		t.Fatalf("could not add schedule: %v", err)
	}

	report, err := service.BuildReport(context.Background(), fromDate.AddDate(0, 0, -1), fromDate.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	if len(report.Employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(report.Employees))
	}

	crew := report.Employees[0]
	if crew.Employee != "crew@fieldline.app" {
		t.Fatalf("expected crew first, got %q", crew.Employee)
	}

	// 9h on site minus the half hour lunch, rounded to the quarter hour
	if crew.SiteHours != 8.5 {
		t.Errorf("expected 8.5 site hours, got %f", crew.SiteHours)
	}

	// 110 recorded miles at 55 mph
	if crew.DriveHours != 2.0 {
		t.Errorf("expected 2.0 drive hours, got %f", crew.DriveHours)
	}
	if crew.Miles != 110 {
		t.Errorf("expected 110 miles, got %f", crew.Miles)
	}

	wantPay := 8.5*30 + 2.0*20
	if crew.GrossPay != wantPay {
		t.Errorf("expected gross pay %f, got %f", wantPay, crew.GrossPay)
	}

	driver := report.Employees[1]
	if driver.QuickLogHours != 1.0 {
		t.Errorf("expected 1.0 quick log hours, got %f", driver.QuickLogHours)
	}
	// no distance recorded, the washout hours stand in for drive hours
	if driver.DriveHours != 1.0 {
		t.Errorf("expected 1.0 drive hours from washouts, got %f", driver.DriveHours)
	}
	if driver.GrossPay != 22 {
		t.Errorf("expected gross pay 22, got %f", driver.GrossPay)
	}

	if report.TotalMiles != 110 {
		t.Errorf("expected 110 total miles, got %f", report.TotalMiles)
	}
	if report.TotalHours != 8.5+2.0+1.0 {
		t.Errorf("expected 11.5 total hours, got %f", report.TotalHours)
	}
	if report.TotalPay != wantPay+22 {
		t.Errorf("expected total pay %f, got %f", wantPay+22, report.TotalPay)
	}
}

func TestBuildReport_SkipsOpenEntriesAndOtherWindows(t *testing.T) {
	repo := &schedules.MockScheduleRepository{}
	service := &Service{ScheduleRepository: repo}

	fromDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	driveIn := time.Date(2026, 3, 2, 6, 0, 0, 0, time.Local)

	inWindow := &schedules.Schedule{
		JobName:  "Main St Paving",
		FromDate: fromDate,
		Timesheet: []timesheet.Record{
			{
				Employee: "driver@fieldline.app",
				Type:     timesheet.EntryDriveTime,
				ClockIn:  &driveIn,
			},
		},
	}

	outOfWindow := &schedules.Schedule{
		JobName:  "Old Job",
		FromDate: fromDate.AddDate(0, -2, 0),
		Timesheet: []timesheet.Record{
			{
				Employee:        "driver@fieldline.app",
				Type:            timesheet.EntryDriveTime,
				ClockIn:         &driveIn,
				ClockOut:        &driveIn,
				Distance:        55,
				HourlyRateDrive: 22,
			},
		},
	}

	for _, schedule := range []*schedules.Schedule{inWindow, outOfWindow} {
		err := repo.Add(context.Background(), schedule)
		if err != nil {
			t.Fatalf("could not add schedule: %v", err)
		}
	}

	report, err := service.BuildReport(context.Background(), fromDate.AddDate(0, 0, -1), fromDate.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	if len(report.Employees) != 0 {
		t.Errorf("open entries and other windows must not appear, got %+v", report.Employees)
	}
}

func TestBuildReport_IncludesQuickLogEntries(t *testing.T) {
	repo := &schedules.MockScheduleRepository{}
	service := &Service{ScheduleRepository: repo}

	fromDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	schedule := &schedules.Schedule{JobName: "Main St Paving", FromDate: fromDate}

	err := repo.Add(context.Background(), schedule)
	if err != nil {
		t.Fatalf("could not add schedule: %v", err)
	}

	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	for i := 0; i < 2; i++ {
		_, err = repo.IncrementQuickLog(context.Background(), schedule.ID.Hex(), "driver@fieldline.app",
			schedules.CategoryDumpWashout, day)
		if err != nil {
			t.Fatalf("washout %d failed: %v", i+1, err)
		}
	}

	report, err := service.BuildReport(context.Background(), fromDate.AddDate(0, 0, -1), fromDate.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	if len(report.Employees) != 1 {
		t.Fatalf("washout hours must reach the report, got %+v", report.Employees)
	}

	driver := report.Employees[0]
	if driver.QuickLogHours != 1.0 {
		t.Errorf("expected 1.0 quick log hours, got %f", driver.QuickLogHours)
	}
	if driver.DriveHours != 1.0 {
		t.Errorf("expected 1.0 drive hours from washouts, got %f", driver.DriveHours)
	}
}
