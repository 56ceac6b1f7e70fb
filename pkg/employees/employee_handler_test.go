package employees

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
)

func newVerifyFixture(t *testing.T) (*Handler, *MockEmployeeRepository) {
	t.Helper()

	repo := &MockEmployeeRepository{}

	handler := &Handler{
		EmployeeRepository: repo,
		Logger:             logger.Logger{},
		ResponseManager:    &communication.ResponseManager{Logger: logger.Logger{}},
	}

	return handler, repo
}

func TestVerifyRegistrationGet_MarksEmployeeVerified(t *testing.T) {
	handler, repo := newVerifyFixture(t)

	employee := &Employee{
		Email:                  "dan@fieldline.app",
		EmailVerificationToken: "7a1e2f7c-59a2-4b7d-a6a2-0f4f7a9d2f10",
	}
	err := repo.Add(context.Background(), employee)
	if err != nil {
		t.Fatalf("could not add employee: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet,
		"/v1/auth/register/verify?token="+employee.EmailVerificationToken, nil)
	recorder := httptest.NewRecorder()

	handler.VerifyRegistrationGet(recorder, request)

	if recorder.Code != http.StatusFound {
		t.Fatalf("expected a redirect, got %d", recorder.Code)
	}

	if location := recorder.Header().Get("Location"); !strings.Contains(location, "success=true") {
		t.Errorf("expected a success redirect, got %q", location)
	}

	if !repo.Employees[0].EmailVerified {
		t.Error("employee must be verified after hitting the link")
	}
}

func TestVerifyRegistrationGet_UnknownToken(t *testing.T) {
	handler, repo := newVerifyFixture(t)

	employee := &Employee{
		Email:                  "dan@fieldline.app",
		EmailVerificationToken: "7a1e2f7c-59a2-4b7d-a6a2-0f4f7a9d2f10",
	}
	err := repo.Add(context.Background(), employee)
	if err != nil {
		t.Fatalf("could not add employee: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/v1/auth/register/verify?token=wrong", nil)
	recorder := httptest.NewRecorder()

	handler.VerifyRegistrationGet(recorder, request)

	if location := recorder.Header().Get("Location"); !strings.Contains(location, "success=false") {
		t.Errorf("expected a failure redirect, got %q", location)
	}

	if repo.Employees[0].EmailVerified {
		t.Error("employee must not be verified with a wrong token")
	}
}
