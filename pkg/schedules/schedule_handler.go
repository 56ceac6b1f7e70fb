package schedules

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/auth"
	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/employees"
	"github.com/fieldline-app/fieldline-backend/pkg/geo"
	"github.com/fieldline-app/fieldline-backend/pkg/locking"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const quickLogLockTTL = 30 * time.Second

// Handler is the handler for schedule and timesheet API calls
type Handler struct {
	ScheduleRepository ScheduleRepositoryInterface
	EmployeeRepository employees.EmployeeRepositoryInterface
	EmployeeCache      employees.EmployeeCacheInterface
	Locker             locking.LockerInterface
	Logger             logger.Interface
	ResponseManager    *communication.ResponseManager
}

// timesheetView decorates a persisted entry with the server derived values the
// timesheet tables show
type timesheetView struct {
	timesheet.Record
	ComputedHours    float64 `json:"computedHours"`
	ComputedDistance float64 `json:"computedDistance"`
	QuickLogDisplay  string  `json:"quickLogDisplay,omitempty"`
}

// ScheduleAdd creates a schedule
func (handler *Handler) ScheduleAdd(writer http.ResponseWriter, request *http.Request) {
	schedule := Schedule{}

	err := json.NewDecoder(request.Body).Decode(&schedule)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(schedule)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	for index := range schedule.Timesheet {
		handler.prepareEntry(request, &schedule.Timesheet[index], schedule.FromDate)
	}

	err = handler.ScheduleRepository.Add(request.Context(), &schedule)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Persisting schedule in database did not work", err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, &schedule, http.StatusCreated)
}

// ScheduleGet retrieves a single schedule with derived timesheet values
func (handler *Handler) ScheduleGet(writer http.ResponseWriter, request *http.Request) {
	scheduleID := mux.Vars(request)["scheduleID"]

	schedule, err := handler.ScheduleRepository.FindByID(request.Context(), scheduleID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find schedule", err)
		return
	}

	views := make([]timesheetView, 0, len(schedule.Timesheet))
	for _, entry := range schedule.Timesheet {
		views = append(views, newTimesheetView(entry, schedule.FromDate))
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"schedule":  schedule,
		"timesheet": views,
	})
}

// ScheduleGetAll retrieves schedules paginated, optionally filtered by date
// window and foreman
func (handler *Handler) ScheduleGetAll(writer http.ResponseWriter, request *http.Request) {
	page := 0
	pageSize := 25

	if value := request.URL.Query().Get("page"); value != "" {
		fmt.Sscanf(value, "%d", &page)
	}
	if value := request.URL.Query().Get("pageSize"); value != "" {
		fmt.Sscanf(value, "%d", &pageSize)
	}
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}

	var filters []Filter

	if value := request.URL.Query().Get("from"); value != "" {
		from, err := time.Parse(time.RFC3339, value)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Bad from date", err)
			return
		}
		filters = append(filters, Filter{Field: "fromDate", Operator: "$gte", Value: from})
	}

	if value := request.URL.Query().Get("to"); value != "" {
		to, err := time.Parse(time.RFC3339, value)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Bad to date", err)
			return
		}
		filters = append(filters, Filter{Field: "fromDate", Operator: "$lt", Value: to})
	}

	if value := request.URL.Query().Get("foreman"); value != "" {
		filters = append(filters, Filter{Field: "foreman", Value: value})
	}

	results, count, err := handler.ScheduleRepository.FindAll(request.Context(), page, pageSize, filters, false)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem finding schedules", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"results": results,
		"pagination": map[string]interface{}{
			"resultCount": count,
			"pageSize":    pageSize,
			"pageIndex":   page,
		},
	})
}

// ScheduleUpdate updates the header fields of a schedule
func (handler *Handler) ScheduleUpdate(writer http.ResponseWriter, request *http.Request) {
	scheduleID := mux.Vars(request)["scheduleID"]

	schedule, err := handler.ScheduleRepository.FindByID(request.Context(), scheduleID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find schedule", err)
		return
	}

	update := ScheduleUpdate{
		ID:             schedule.ID,
		CreatedAt:      schedule.CreatedAt,
		LastModifiedAt: schedule.LastModifiedAt,
		Deleted:        schedule.Deleted,

		JobName:    schedule.JobName,
		ClientName: schedule.ClientName,
		JobSite:    schedule.JobSite,
		Foreman:    schedule.Foreman,
		FromDate:   schedule.FromDate,
		ToDate:     schedule.ToDate,
		Crew:       schedule.Crew,
		Notes:      schedule.Notes,
	}

	err = json.NewDecoder(request.Body).Decode(&update)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(update)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	err = handler.ScheduleRepository.Update(request.Context(), &update)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not persist schedule", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// ScheduleDelete marks a schedule as deleted
func (handler *Handler) ScheduleDelete(writer http.ResponseWriter, request *http.Request) {
	scheduleID := mux.Vars(request)["scheduleID"]

	err := handler.ScheduleRepository.Delete(request.Context(), scheduleID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't delete schedule", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// TimesheetEntryAdd appends a single timesheet entry to a schedule
func (handler *Handler) TimesheetEntryAdd(writer http.ResponseWriter, request *http.Request) {
	scheduleID := mux.Vars(request)["scheduleID"]

	schedule, err := handler.ScheduleRepository.FindByID(request.Context(), scheduleID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find schedule", err)
		return
	}

	entry := timesheet.Record{}
	err = json.NewDecoder(request.Body).Decode(&entry)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(entry)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	handler.prepareEntry(request, &entry, schedule.FromDate)

	err = handler.ScheduleRepository.AddTimesheetEntry(request.Context(), scheduleID, &entry)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Persisting timesheet entry did not work", err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, newTimesheetView(entry, schedule.FromDate), http.StatusCreated)
}

// TimesheetEntryUpdate updates a single timesheet entry, guarded against
// concurrent edits by the entry version
func (handler *Handler) TimesheetEntryUpdate(writer http.ResponseWriter, request *http.Request) {
	scheduleID := mux.Vars(request)["scheduleID"]
	entryID := mux.Vars(request)["entryID"]

	schedule, err := handler.ScheduleRepository.FindByID(request.Context(), scheduleID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find schedule", err)
		return
	}

	var existing *timesheet.Record
	for index, candidate := range schedule.Timesheet {
		if candidate.ID.Hex() == entryID {
			existing = &schedule.Timesheet[index]
			break
		}
	}

	if existing == nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find timesheet entry", nil)
		return
	}

	entry := *existing
	err = json.NewDecoder(request.Body).Decode(&entry)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	entry.ID = existing.ID

	handler.prepareEntry(request, &entry, schedule.FromDate)

	err = handler.ScheduleRepository.UpdateTimesheetEntry(request.Context(), scheduleID, &entry)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not persist timesheet entry", err)
		return
	}

	handler.ResponseManager.Respond(writer, newTimesheetView(entry, schedule.FromDate))
}

// TimesheetEntryDelete removes a single timesheet entry
func (handler *Handler) TimesheetEntryDelete(writer http.ResponseWriter, request *http.Request) {
	scheduleID := mux.Vars(request)["scheduleID"]
	entryID := mux.Vars(request)["entryID"]

	err := handler.ScheduleRepository.RemoveTimesheetEntry(request.Context(), scheduleID, entryID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't delete timesheet entry", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// QuickLogAdd accumulates one washout or shop time unit for an employee and day
func (handler *Handler) QuickLogAdd(writer http.ResponseWriter, request *http.Request) {
	scheduleID := mux.Vars(request)["scheduleID"]

	body := struct {
		Employee string    `json:"employee"`
		Category string    `json:"category"`
		Date     time.Time `json:"date"`
	}{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	if body.Employee == "" {
		body.Employee, err = auth.EmployeeEmail(request.Context())
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusUnauthorized, "No employee identity", err)
			return
		}
	}

	category := QuickLogCategory(body.Category)
	if !category.Valid() {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			fmt.Sprintf("Unknown quick log category %q", body.Category), nil)
		return
	}

	day := body.Date
	if day.IsZero() {
		day = time.Now()
	}

	// The accumulate-or-create upsert is two separate statements, so two
	// concurrent quick logs for the same employee could both take the create
	// path. Serialized per employee the second one always accumulates.
	lock, err := handler.Locker.Acquire(request.Context(), "quicklog:"+body.Employee, quickLogLockTTL, false)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not log quick entry", err)
		return
	}
	defer func() {
		releaseErr := lock.Release(request.Context())
		if releaseErr != nil {
			handler.Logger.Warning("Could not release quick log lock", releaseErr)
		}
	}()

	entry, err := handler.ScheduleRepository.IncrementQuickLog(request.Context(), scheduleID, body.Employee, category, day)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not log quick entry", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"entry":   entry,
		"display": entry.QuickLogFor(string(category)).String(),
	})
}

// prepareEntry normalizes an incoming entry and derives the server side
// values: type enum, recomputed hours and mileage, and the rate snapshots
// copied from the employee profile at edit time.
func (handler *Handler) prepareEntry(request *http.Request, entry *timesheet.Record, scheduleDate time.Time) {
	entry.Type = timesheet.NormalizeEntryType(string(entry.Type))

	if !entry.IsActive() {
		entry.Distance = timesheet.RoundMiles(timesheet.ComputeDistance(entry, scheduleDate, geo.RoadFactorRecompute))
		entry.Hours = timesheet.ComputeHours(entry, scheduleDate, geo.RoadFactorRecompute)
	}

	if entry.Status == "" {
		entry.Status = timesheet.StatusPending
	}

	profile, err := handler.employeeProfile(request, entry.Employee)
	if err != nil {
		handler.Logger.Warning(fmt.Sprintf("No rate snapshot for %s", entry.Employee), err)
		return
	}

	entry.HourlyRateSite = profile.HourlyRateSite
	entry.HourlyRateDrive = profile.HourlyRateDrive
}

func (handler *Handler) employeeProfile(request *http.Request, employeeEmail string) (*employees.Employee, error) {
	profile, err := handler.EmployeeCache.Get(request.Context(), employeeEmail)
	if err == nil {
		return profile, nil
	}

	profile, err = handler.EmployeeRepository.FindByEmail(request.Context(), employeeEmail)
	if err != nil {
		return nil, err
	}

	err = handler.EmployeeCache.Add(request.Context(), employeeEmail, profile)
	if err != nil {
		handler.Logger.Warning("Could not cache employee profile", err)
	}

	return profile, nil
}

func newTimesheetView(entry timesheet.Record, scheduleDate time.Time) timesheetView {
	view := timesheetView{
		Record:           entry,
		ComputedHours:    timesheet.ComputeHours(&entry, scheduleDate, geo.RoadFactorDisplay),
		ComputedDistance: timesheet.ComputeDistance(&entry, scheduleDate, geo.RoadFactorDisplay),
	}

	if quickLog := entry.DumpWashout; quickLog != nil {
		view.QuickLogDisplay = quickLog.String()
	} else if quickLog := entry.ShopTime; quickLog != nil {
		view.QuickLogDisplay = quickLog.String()
	}

	return view
}
