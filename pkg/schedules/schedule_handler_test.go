package schedules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/employees"
	"github.com/fieldline-app/fieldline-backend/pkg/locking"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"github.com/gorilla/mux"
)

func newHandlerFixture(t *testing.T) (*Handler, *MockScheduleRepository, *employees.MockEmployeeRepository) {
	t.Helper()

	scheduleRepository := &MockScheduleRepository{}
	employeeRepository := &employees.MockEmployeeRepository{}

	cache, err := employees.NewEmployeeCacheMemory()
	if err != nil {
		t.Fatalf("could not build employee cache: %v", err)
	}

	handler := &Handler{
		ScheduleRepository: scheduleRepository,
		EmployeeRepository: employeeRepository,
		EmployeeCache:      cache,
		Locker:             locking.NewLockerMemory(),
		Logger:             logger.Logger{},
		ResponseManager:    &communication.ResponseManager{Logger: logger.Logger{}},
	}

	return handler, scheduleRepository, employeeRepository
}

func TestTimesheetEntryAdd_SnapshotsRatesAndDerivesHours(t *testing.T) {
	handler, scheduleRepository, employeeRepository := newHandlerFixture(t)

	err := employeeRepository.Add(context.Background(), &employees.Employee{
		Email:           "crew@fieldline.app",
		HourlyRateSite:  31.5,
		HourlyRateDrive: 21,
	})
	if err != nil {
		t.Fatalf("could not add employee: %v", err)
	}

	schedule := &Schedule{
		JobName:  "Main St Paving",
		FromDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
	}
	err = scheduleRepository.Add(context.Background(), schedule)
	if err != nil {
		t.Fatalf("could not add schedule: %v", err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"employee": "crew@fieldline.app",
		"type":     "Site Time",
		"clockIn":  time.Date(2026, 3, 2, 7, 0, 0, 0, time.Local),
		"clockOut": time.Date(2026, 3, 2, 15, 39, 0, 0, time.Local),
	})

	request := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/v1/schedule/%s/timesheet", schedule.ID.Hex()), bytes.NewReader(body))
	request = mux.SetURLVars(request, map[string]string{"scheduleID": schedule.ID.Hex()})
	recorder := httptest.NewRecorder()

	handler.TimesheetEntryAdd(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	if len(schedule.Timesheet) != 1 {
		t.Fatalf("expected 1 persisted entry, got %d", len(schedule.Timesheet))
	}

	entry := schedule.Timesheet[0]

	if entry.Type != timesheet.EntrySiteTime {
		t.Errorf("expected normalized site time type, got %q", entry.Type)
	}

	if entry.HourlyRateSite != 31.5 || entry.HourlyRateDrive != 21 {
		t.Errorf("expected rate snapshot 31.5/21, got %f/%f", entry.HourlyRateSite, entry.HourlyRateDrive)
	}

	// 8h39m rounds down to the 8.5 quarter hour bucket
	if entry.Hours != 8.5 {
		t.Errorf("expected 8.5 derived hours, got %f", entry.Hours)
	}

	if entry.Status != timesheet.StatusPending {
		t.Errorf("expected pending status, got %q", entry.Status)
	}
}

func TestTimesheetEntryAdd_UnknownEmployeeLeavesRatesZero(t *testing.T) {
	handler, scheduleRepository, _ := newHandlerFixture(t)

	schedule := &Schedule{
		JobName:  "Main St Paving",
		FromDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
	}
	err := scheduleRepository.Add(context.Background(), schedule)
	if err != nil {
		t.Fatalf("could not add schedule: %v", err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"employee": "ghost@fieldline.app",
		"type":     "Drive Time",
		"clockIn":  time.Date(2026, 3, 2, 6, 0, 0, 0, time.Local),
		"clockOut": time.Date(2026, 3, 2, 7, 0, 0, 0, time.Local),
	})

	request := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/v1/schedule/%s/timesheet", schedule.ID.Hex()), bytes.NewReader(body))
	request = mux.SetURLVars(request, map[string]string{"scheduleID": schedule.ID.Hex()})
	recorder := httptest.NewRecorder()

	handler.TimesheetEntryAdd(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	entry := schedule.Timesheet[0]
	if entry.HourlyRateSite != 0 || entry.HourlyRateDrive != 0 {
		t.Errorf("expected zero rates without a profile, got %f/%f", entry.HourlyRateSite, entry.HourlyRateDrive)
	}
}

func TestTimesheetEntryUpdate_StaleVersionConflicts(t *testing.T) {
	handler, scheduleRepository, _ := newHandlerFixture(t)

	schedule := &Schedule{
		JobName:  "Main St Paving",
		FromDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
	}
	err := scheduleRepository.Add(context.Background(), schedule)
	if err != nil {
		t.Fatalf("could not add schedule: %v", err)
	}

	clockIn := time.Date(2026, 3, 2, 7, 0, 0, 0, time.Local)
	entry := &timesheet.Record{
		Employee: "crew@fieldline.app",
		Type:     timesheet.EntrySiteTime,
		ClockIn:  &clockIn,
	}
	err = scheduleRepository.AddTimesheetEntry(context.Background(), schedule.ID.Hex(), entry)
	if err != nil {
		t.Fatalf("could not add entry: %v", err)
	}

	send := func(version int64, location string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]interface{}{
			"employee":   "crew@fieldline.app",
			"type":       "Site Time",
			"clockIn":    clockIn,
			"locationIn": location,
			"version":    version,
		})

		request := httptest.NewRequest(http.MethodPut,
			fmt.Sprintf("/v1/schedule/%s/timesheet/%s", schedule.ID.Hex(), entry.ID.Hex()), bytes.NewReader(body))
		request = mux.SetURLVars(request, map[string]string{
			"scheduleID": schedule.ID.Hex(),
			"entryID":    entry.ID.Hex(),
		})
		recorder := httptest.NewRecorder()

		handler.TimesheetEntryUpdate(recorder, request)
		return recorder
	}

	if recorder := send(1, "yard"); recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200 on first update, got %d: %s", recorder.Code, recorder.Body.String())
	}

	if recorder := send(1, "lost"); recorder.Code != http.StatusConflict {
		t.Errorf("expected status 409 on stale update, got %d: %s", recorder.Code, recorder.Body.String())
	}

	if schedule.Timesheet[0].LocationIn != "yard" {
		t.Errorf("stale update must not win, got %q", schedule.Timesheet[0].LocationIn)
	}
}

func TestQuickLogAdd_ConcurrentRequestsAccumulate(t *testing.T) {
	handler, scheduleRepository, _ := newHandlerFixture(t)

	schedule := &Schedule{
		JobName:  "Main St Paving",
		FromDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local),
	}
	err := scheduleRepository.Add(context.Background(), schedule)
	if err != nil {
		t.Fatalf("could not add schedule: %v", err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"employee": "driver@fieldline.app",
		"category": "dumpWashout",
		"date":     time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local),
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			request := httptest.NewRequest(http.MethodPost,
				fmt.Sprintf("/v1/schedule/%s/quicklog", schedule.ID.Hex()), bytes.NewReader(body))
			request = mux.SetURLVars(request, map[string]string{"scheduleID": schedule.ID.Hex()})
			recorder := httptest.NewRecorder()

			handler.QuickLogAdd(recorder, request)

			if recorder.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
			}
		}()
	}
	wg.Wait()

	if len(schedule.Timesheet) != 1 {
		t.Fatalf("concurrent quick logs must share one entry, got %d", len(schedule.Timesheet))
	}

	if qty := schedule.Timesheet[0].DumpWashout.Qty; qty != 2 {
		t.Errorf("expected qty 2, got %d", qty)
	}
}
