package drivetime

import (
	"encoding/json"
	"net/http"

	"github.com/fieldline-app/fieldline-backend/pkg/auth"
	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
)

// Handler is the handler for drive time API calls
type Handler struct {
	Service         *Service
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

type transitionRequest struct {
	ScheduleID string    `json:"scheduleId"`
	Position   *Position `json:"position"`
}

// DriveTimeStart opens a drive time entry for the authenticated employee
func (handler *Handler) DriveTimeStart(writer http.ResponseWriter, request *http.Request) {
	employee, err := auth.EmployeeEmail(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusUnauthorized, "No employee identity", err)
		return
	}

	body := transitionRequest{}
	err = json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	if body.ScheduleID == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Must provide scheduleId", nil)
		return
	}

	entry, err := handler.Service.Start(request.Context(), employee, body.ScheduleID, body.Position)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not start drive time", err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, entry, http.StatusCreated)
}

// DriveTimeStop closes the authenticated employee's open drive time entry
func (handler *Handler) DriveTimeStop(writer http.ResponseWriter, request *http.Request) {
	employee, err := auth.EmployeeEmail(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusUnauthorized, "No employee identity", err)
		return
	}

	body := transitionRequest{}
	err = json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	entry, err := handler.Service.Stop(request.Context(), employee, body.Position)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not stop drive time", err)
		return
	}

	handler.ResponseManager.Respond(writer, entry)
}

// DriveTimeActive returns the authenticated employee's open drive time entry
// so clients can decide whether to offer a start or a stop action
func (handler *Handler) DriveTimeActive(writer http.ResponseWriter, request *http.Request) {
	employee, err := auth.EmployeeEmail(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusUnauthorized, "No employee identity", err)
		return
	}

	active, err := handler.Service.Active(request.Context(), employee)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not look up drive time", err)
		return
	}

	if active == nil {
		handler.ResponseManager.Respond(writer, map[string]interface{}{"active": nil})
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"active": active})
}
