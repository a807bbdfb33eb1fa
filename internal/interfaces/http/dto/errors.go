package dto

import (
	"net/http"

	"github.com/mealplan/backend/internal/domain/shared"
)

// Error codes returned in the response envelope. Domain failures reuse the
// domain code unchanged; the remaining codes cover transport-level failures.
const (
	ErrCodeNotFound               = shared.CodeNotFound
	ErrCodeInvalidTransition      = shared.CodeInvalidTransition
	ErrCodeQuotaExceeded          = shared.CodeQuotaExceeded
	ErrCodeCutoffPassed           = shared.CodeCutoffPassed
	ErrCodePastDate               = shared.CodePastDate
	ErrCodeIntegrityViolation     = shared.CodeIntegrityViolation
	ErrCodeValidation             = shared.CodeValidation
	ErrCodeConcurrentModification = shared.CodeConcurrentModification

	// ErrCodeBadRequest is used when the request body or query cannot be parsed
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeUnauthorized is used when the bearer token is missing or invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the bearer token has expired
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeInvalidTransition:      http.StatusUnprocessableEntity,
	ErrCodeQuotaExceeded:          http.StatusUnprocessableEntity,
	ErrCodeCutoffPassed:           http.StatusUnprocessableEntity,
	ErrCodePastDate:               http.StatusUnprocessableEntity,
	ErrCodeConcurrentModification: http.StatusConflict,
	ErrCodeValidation:             http.StatusBadRequest,
	ErrCodeIntegrityViolation:     http.StatusInternalServerError,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are reported as 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether the code maps to a 4xx status
func IsClientError(code string) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}
