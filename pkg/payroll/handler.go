package payroll

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/email"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
)

// Handler is the handler for payroll API calls
type Handler struct {
	Service         *Service
	Mailer          email.Mailer
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

// ReportGet builds a payroll report over a date window. Without parameters the
// window is the last 7 days.
func (handler *Handler) ReportGet(writer http.ResponseWriter, request *http.Request) {
	from, to, err := reportWindow(request)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Bad report window", err)
		return
	}

	report, err := handler.Service.BuildReport(request.Context(), from, to)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not build payroll report", err)
		return
	}

	handler.ResponseManager.Respond(writer, report)
}

// ReportSend builds a payroll report and mails it to the office
func (handler *Handler) ReportSend(writer http.ResponseWriter, request *http.Request) {
	body := struct {
		ReceiverName    string `json:"receiverName"`
		ReceiverAddress string `json:"receiverAddress"`
	}{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	if body.ReceiverAddress == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "No receiver address", nil)
		return
	}

	from, to, err := reportWindow(request)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Bad report window", err)
		return
	}

	report, err := handler.Service.BuildReport(request.Context(), from, to)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not build payroll report", err)
		return
	}

	err = handler.Mailer.SendEmail(request.Context(), &email.Email{
		ReceiverName:    body.ReceiverName,
		ReceiverAddress: body.ReceiverAddress,
		Template:        email.TemplatePayrollReport,
		Parameters: map[string]interface{}{
			"from":       report.From.Format("2006-01-02"),
			"to":         report.To.Format("2006-01-02"),
			"totalHours": fmt.Sprintf("%.2f", report.TotalHours),
			"totalMiles": fmt.Sprintf("%.2f", report.TotalMiles),
			"totalPay":   fmt.Sprintf("%.2f", report.TotalPay),
			"employees":  report.Employees,
		},
	})
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not send payroll report", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

func reportWindow(request *http.Request) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -7)

	if value := request.URL.Query().Get("from"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	if value := request.URL.Query().Get("to"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("empty window from %s to %s", from, to)
	}

	return from, to, nil
}
