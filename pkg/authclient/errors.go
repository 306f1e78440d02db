package authclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cartworks/auth/pkg/httpx"
)

// Error codes shared by the service and its clients. Handlers write
// them, the client decodes them back into APIError values.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidCredential = "invalid_credentials"
	ErrorCodeEmailNotVerified  = "email_not_verified"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeStaleToken        = "stale_token"
	ErrorCodeConflict          = "conflict"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeForbidden         = "forbidden"
	ErrorCodeRateLimited       = "rate_limit_exceeded"
	ErrorCodeServerError       = "server_error"
)

// APIError is the service's wire-level error. The server uses it to
// write error responses and the client returns it from failed calls,
// so callers can errors.As their way to the code and status.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error as a JSON response body.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

var (
	// ErrInvalidRequest is returned for malformed bodies or missing
	// required fields.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials is returned for a wrong password or an
	// unknown email. The two are deliberately indistinguishable.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredential,
		Description: "invalid email or password",
	}

	// ErrEmailNotVerified is returned when the credentials are correct
	// but the account's email has not been verified yet.
	ErrEmailNotVerified = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeEmailNotVerified,
		Description: "email address has not been verified",
	}

	// ErrInvalidToken covers expired, malformed, revoked and
	// wrong-kind tokens.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is invalid, expired or revoked",
	}

	// ErrInvalidOrExpiredToken is the 400-class variant used when a
	// single-use secret (verification token, reset code) is presented
	// in the request body or query rather than as a bearer credential.
	ErrInvalidOrExpiredToken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is invalid, expired or already used",
	}

	// ErrStaleToken is returned when a refresh token is valid but has
	// been superseded by a newer login.
	ErrStaleToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeStaleToken,
		Description: "the refresh token has been superseded by a newer login",
	}

	// ErrConflict is returned when the email is already registered.
	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "an account with this email already exists",
	}

	// ErrNotFound is returned when the referenced resource does not exist.
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "the requested resource does not exist",
	}

	// ErrRateLimited is returned when the caller exhausted its
	// fixed-window quota. Retry-After carries the wait.
	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimited,
		Description: "too many requests, slow down",
	}

	// ErrServerError is the catch-all for internal failures.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)
