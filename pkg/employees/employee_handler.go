package employees

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/auth"
	"github.com/fieldline-app/fieldline-backend/pkg/auth/jwt"
	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/email"
	"github.com/fieldline-app/fieldline-backend/pkg/environment"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// Handler is the handler for employee API calls
type Handler struct {
	EmployeeRepository EmployeeRepositoryInterface
	EmployeeCache      EmployeeCacheInterface
	Logger             logger.Interface
	ResponseManager    *communication.ResponseManager
	Secret             string
	EmailService       email.Mailer
}

// EmployeeRegister is the route for registering an employee
func (handler *Handler) EmployeeRegister(writer http.ResponseWriter, request *http.Request) {
	body := struct {
		Firstname       string  `json:"firstname"`
		Lastname        string  `json:"lastname"`
		Email           string  `json:"email"`
		Phone           string  `json:"phone"`
		Role            string  `json:"role"`
		Password        string  `json:"password"`
		HourlyRateSite  float64 `json:"hourlyRateSITE"`
		HourlyRateDrive float64 `json:"hourlyRateDrive"`
	}{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	employee := Employee{
		Firstname:       body.Firstname,
		Lastname:        body.Lastname,
		Email:           strings.ToLower(strings.TrimSpace(body.Email)),
		Phone:           body.Phone,
		Role:            body.Role,
		HourlyRateSite:  body.HourlyRateSite,
		HourlyRateDrive: body.HourlyRateDrive,
	}

	if employee.Role == "" {
		employee.Role = RoleField
	}

	presentEmployee, err := handler.EmployeeRepository.FindByEmail(request.Context(), employee.Email)
	if presentEmployee != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusConflict,
			"Employee with email "+presentEmployee.Email+" already exists", err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem hashing password", err)
		return
	}
	employee.Password = string(hashedPassword)

	v := validator.New()
	err = v.Struct(employee)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	employee.EmailVerificationToken = uuid.New().String()

	err = handler.EmployeeRepository.Add(request.Context(), &employee)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Employee couldn't be persisted in the database", err)
		return
	}

	err = handler.EmailService.SendEmail(request.Context(), &email.Email{
		ReceiverName:    fmt.Sprintf("%s %s", employee.Firstname, employee.Lastname),
		ReceiverAddress: employee.Email,
		Template:        email.TemplateEmailVerification,
		Parameters: map[string]interface{}{
			"verifyLink": fmt.Sprintf("%s/v1/auth/register/verify?token=%s", environment.Global.BaseUrl, employee.EmailVerificationToken),
		},
	})
	if err != nil {
		handler.Logger.Warning("Could not send registration confirmation mail", err)
	}

	handler.generateAndRespondWithTokens(&employee, writer)
}

// EmployeeLogin is the route for employee authentication
func (handler *Handler) EmployeeLogin(writer http.ResponseWriter, request *http.Request) {
	login := EmployeeLogin{}
	err := json.NewDecoder(request.Body).Decode(&login)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(login)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	employee, err := handler.EmployeeRepository.FindByEmail(request.Context(), strings.ToLower(login.Email))
	if err != nil || employee == nil || employee.IsDeactivated {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong credentials", err)
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(employee.Password), []byte(login.Password))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong credentials", err)
		return
	}

	handler.generateAndRespondWithTokens(employee, writer)
}

// EmployeeRefresh refreshes an access token with a new one by providing a refresh token
func (handler *Handler) EmployeeRefresh(writer http.ResponseWriter, request *http.Request) {
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	if body.RefreshToken == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"No refresh token specified", err)
		return
	}

	refreshToken, err := jwt.Verify(body.RefreshToken, jwt.TokenTypeRefresh, handler.Secret, jwt.AlgHS256)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Token invalid", err)
		return
	}

	employee, err := handler.EmployeeRepository.FindByID(request.Context(), refreshToken.Payload.Subject)
	if err != nil || employee.IsDeactivated {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Employee not found", err)
		return
	}

	accessToken, err := handler.newSignedToken(employee, jwt.TokenTypeAccess)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Problem signing access token", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"accessToken": accessToken,
	})
}

// VerifyRegistrationGet gets called when the email verification link gets hit
func (handler *Handler) VerifyRegistrationGet(writer http.ResponseWriter, request *http.Request) {
	success := true
	token := strings.TrimSpace(request.URL.Query().Get("token"))

	if token == "" {
		handler.Logger.Warning("Invalid verification request", nil)
		success = false
	}

	employee, err := handler.EmployeeRepository.FindByVerificationToken(request.Context(), token)
	if err != nil {
		handler.Logger.Warning("Invalid verification request", err)
		success = false
	}

	if success && !employee.EmailVerified {
		employee.EmailVerified = true

		err = handler.EmployeeRepository.Update(request.Context(), employee)
		if err != nil {
			handler.Logger.Error("Problem updating employee", err)
			success = false
		}
	}

	http.Redirect(writer, request, fmt.Sprintf("%s/auth/verify?success=%t", environment.Global.BaseUrl, success), http.StatusFound)
}

// EmployeeGet retrieves the authenticated employee
func (handler *Handler) EmployeeGet(writer http.ResponseWriter, request *http.Request) {
	employeeID := request.Context().Value(auth.KeyEmployeeID).(string)

	employee, err := handler.EmployeeRepository.FindByID(request.Context(), employeeID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"Employee wasn't found", err)
		return
	}

	handler.ResponseManager.Respond(writer, employee)
}

// EmployeeGetAll retrieves all employees for the office CRM views
func (handler *Handler) EmployeeGetAll(writer http.ResponseWriter, request *http.Request) {
	page, pageSize := paging(request)

	results, count, err := handler.EmployeeRepository.FindAll(request.Context(), page, pageSize)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem finding employees", err)
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

// EmployeeRatesPatch updates the hourly rates of an employee profile. Rate
// snapshots already written to timesheet entries are untouched.
func (handler *Handler) EmployeeRatesPatch(writer http.ResponseWriter, request *http.Request) {
	employeeID := mux.Vars(request)["employeeID"]

	employee, err := handler.EmployeeRepository.FindByID(request.Context(), employeeID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			fmt.Sprintf("Could not find employee %s", employeeID), err)
		return
	}

	rates := struct {
		HourlyRateSite  *float64 `json:"hourlyRateSITE"`
		HourlyRateDrive *float64 `json:"hourlyRateDrive"`
	}{}

	err = json.NewDecoder(request.Body).Decode(&rates)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	if rates.HourlyRateSite != nil {
		if *rates.HourlyRateSite < 0 {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Rates cannot be negative", nil)
			return
		}
		employee.HourlyRateSite = *rates.HourlyRateSite
	}

	if rates.HourlyRateDrive != nil {
		if *rates.HourlyRateDrive < 0 {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Rates cannot be negative", nil)
			return
		}
		employee.HourlyRateDrive = *rates.HourlyRateDrive
	}

	err = handler.EmployeeRepository.Update(request.Context(), employee)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update employee", err)
		return
	}

	err = handler.EmployeeCache.Invalidate(request.Context(), employee.Email)
	if err != nil {
		handler.Logger.Warning("Could not invalidate employee cache", err)
	}

	handler.ResponseManager.Respond(writer, employee)
}

// EmployeeAddDevice upserts a push notification DeviceToken
func (handler *Handler) EmployeeAddDevice(writer http.ResponseWriter, request *http.Request) {
	employeeID := request.Context().Value(auth.KeyEmployeeID).(string)

	body := map[string]string{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	deviceToken := body["deviceToken"]
	if deviceToken == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Must provide deviceToken", nil)
		return
	}

	employee, err := handler.EmployeeRepository.FindByID(request.Context(), employeeID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"Employee wasn't found", err)
		return
	}

	found := false
	for i, token := range employee.DeviceTokens {
		if token.Token == deviceToken {
			employee.DeviceTokens[i].LastRegistered = time.Now()
			found = true
			break
		}
	}

	if !found {
		if len(employee.DeviceTokens) >= 10 {
			handler.ResponseManager.RespondWithError(writer, http.StatusTooManyRequests,
				"Too many registered devices", err)
			return
		}

		employee.DeviceTokens = append(employee.DeviceTokens, DeviceToken{Token: deviceToken, LastRegistered: time.Now()})
	}

	err = handler.EmployeeRepository.Update(request.Context(), employee)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update employee", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// EmployeeRemoveDevice deletes a push notification DeviceToken
func (handler *Handler) EmployeeRemoveDevice(writer http.ResponseWriter, request *http.Request) {
	employeeID := request.Context().Value(auth.KeyEmployeeID).(string)

	deviceToken := mux.Vars(request)["deviceToken"]
	if deviceToken == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Must provide deviceToken", nil)
		return
	}

	employee, err := handler.EmployeeRepository.FindByID(request.Context(), employeeID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"Employee wasn't found", err)
		return
	}

	found := false
	for index, token := range employee.DeviceTokens {
		if token.Token == deviceToken {
			employee.DeviceTokens = append(employee.DeviceTokens[:index], employee.DeviceTokens[index+1:]...)
			found = true
			break
		}
	}

	if !found {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Device token not registered", err)
		return
	}

	err = handler.EmployeeRepository.Update(request.Context(), employee)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update employee", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

func (handler *Handler) generateAndRespondWithTokens(employee *Employee, writer http.ResponseWriter) {
	accessToken, err := handler.newSignedToken(employee, jwt.TokenTypeAccess)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Problem signing access token", err)
		return
	}

	refreshToken, err := handler.newSignedToken(employee, jwt.TokenTypeRefresh)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Problem signing refresh token", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"result":       employee,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

func (handler *Handler) newSignedToken(employee *Employee, tokenType string) (string, error) {
	claims := jwt.Claims{
		Subject:   employee.ID.Hex(),
		Email:     employee.Email,
		Issuer:    "fieldline",
		IssuedAt:  time.Now().Unix(),
		TokenType: tokenType,
	}

	if tokenType == jwt.TokenTypeAccess {
		claims.ExpirationTime = time.Now().AddDate(0, 0, 1).Unix()
	}

	token := jwt.New(jwt.AlgHS256, claims)
	return token.Sign(handler.Secret)
}

func paging(request *http.Request) (int, int) {
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

	return page, pageSize
}
