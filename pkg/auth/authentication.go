package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fieldline-app/fieldline-backend/pkg/auth/jwt"
	"github.com/fieldline-app/fieldline-backend/pkg/communication"
)

// AuthenticationMiddleware checks if the employee login token is valid and responds with an error if it's not the case
type AuthenticationMiddleware struct {
	ResponseManager *communication.ResponseManager
	Secret          string
}

type key string

const (
	// KeyEmployeeID is the key for the request context variable holding the employee id
	KeyEmployeeID key = "employeeID"

	// KeyEmployeeEmail is the key for the request context variable holding the employee email
	KeyEmployeeEmail key = "employeeEmail"
)

// Middleware gets called when a request needs to be authenticated
func (m *AuthenticationMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, r *http.Request) {
		extractedToken, err := extractTokenStringFromHeader(r)
		if err != nil {
			m.ResponseManager.RespondWithError(writer, http.StatusUnauthorized, "No authorization", communication.ErrIdentityMissing)
			return
		}

		token, err := jwt.Verify(extractedToken, jwt.TokenTypeAccess, m.Secret, jwt.AlgHS256)
		if err != nil {
			m.ResponseManager.RespondWithError(writer, http.StatusUnauthorized, "Token invalid", err)
			return
		}

		newContext := context.WithValue(r.Context(), KeyEmployeeID, token.Payload.Subject)
		newContext = context.WithValue(newContext, KeyEmployeeEmail, token.Payload.Email)
		next.ServeHTTP(writer, r.WithContext(newContext))
	})
}

// EmployeeEmail resolves the employee email from a request context
func EmployeeEmail(ctx context.Context) (string, error) {
	email, ok := ctx.Value(KeyEmployeeEmail).(string)
	if !ok || strings.TrimSpace(email) == "" {
		return "", communication.ErrIdentityMissing
	}

	return email, nil
}

func extractTokenStringFromHeader(r *http.Request) (string, error) {
	nonformatted := r.Header.Get("Authorization")
	if strings.TrimSpace(nonformatted) == "" {
		return "", errors.New("no authorization token specified")
	}

	tokenParts := strings.Fields(nonformatted)
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return "", errors.New("token must be a bearer token")
	}

	if strings.TrimSpace(tokenParts[1]) == "" {
		return "", errors.New("no authorization token specified")
	}

	return tokenParts[1], nil
}
