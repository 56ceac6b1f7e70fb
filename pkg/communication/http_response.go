package communication

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fieldline-app/fieldline-backend/pkg/logger"
)

// ResponseManager handles responses and errors that have to be returned to the user
type ResponseManager struct {
	Logger logger.Interface
}

// ErrLocationUnavailable is returned when a drive time transition arrives without usable device coordinates
var ErrLocationUnavailable = errors.New("device location unavailable")

// ErrIdentityMissing is returned when no employee identity could be resolved for an action
var ErrIdentityMissing = errors.New("employee identity missing")

// ErrDriveTimeAlreadyActive is returned when an employee already has an open drive time entry
var ErrDriveTimeAlreadyActive = errors.New("drive time already active for employee")

// ErrNoActiveDriveTime is returned when a stop arrives and no entry is still open
var ErrNoActiveDriveTime = errors.New("no active drive time entry for employee")

// ErrVersionConflict is returned when a timesheet entry was modified concurrently
var ErrVersionConflict = errors.New("timesheet entry version conflict")

// RespondWithError takes several arguments to return an error to the user and logs the error as well
func (r *ResponseManager) RespondWithError(writer http.ResponseWriter, status int, message string, err error) {
	switch {
	case errors.Is(err, ErrLocationUnavailable):
		status = http.StatusUnprocessableEntity
		message = "Device location could not be determined"
	case errors.Is(err, ErrIdentityMissing):
		status = http.StatusUnauthorized
		message = "No employee identity for this action"
	case errors.Is(err, ErrDriveTimeAlreadyActive):
		status = http.StatusConflict
		message = "A drive time entry is already running for this employee"
	case errors.Is(err, ErrNoActiveDriveTime):
		status = http.StatusConflict
		message = "No drive time entry is running for this employee"
	case errors.Is(err, ErrVersionConflict):
		status = http.StatusConflict
		message = "The timesheet entry was changed by someone else, reload and retry"
	}

	if status >= 500 {
		r.Logger.Error(message, err)
	}

	writer.WriteHeader(status)
	var response = map[string]interface{}{
		"status": status,
		"error": map[string]interface{}{
			"message": message,
		},
	}

	if err != nil {
		response["err"] = err.Error()
	}

	binary, err := json.Marshal(response)
	if err != nil {
		r.Logger.Fatal(err)
	}

	_, err = writer.Write(binary)
	if err != nil {
		r.Logger.Fatal(err)
	}
}

// Respond takes an object and turns it into json and responds with it and a 200 HTTP status
func (r ResponseManager) Respond(writer http.ResponseWriter, i interface{}) {
	binary, err := json.Marshal(i)
	if err != nil {
		r.RespondWithError(writer, http.StatusInternalServerError,
			"Problem while marshalling response into json", err)
		return
	}

	_, err = writer.Write(binary)
	if err != nil {
		r.RespondWithError(writer, http.StatusInternalServerError,
			"Problem writing response", err)
		return
	}
}

// RespondWithStatus responds with a specific status code
func (r ResponseManager) RespondWithStatus(writer http.ResponseWriter, i interface{}, status int) {
	binary, err := json.Marshal(i)
	if err != nil {
		r.RespondWithError(writer, http.StatusInternalServerError,
			"Problem while marshalling response into json", err)
		return
	}

	writer.WriteHeader(status)
	_, err = writer.Write(binary)
	if err != nil {
		r.RespondWithError(writer, http.StatusInternalServerError,
			"Problem writing response", err)
		return
	}
}

// RespondWithNoContent sends a no content status code
func (r ResponseManager) RespondWithNoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}
