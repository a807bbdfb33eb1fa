package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so errors.Is works against the
// predefined kind values below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error kind codes
const (
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeQuotaExceeded          = "QUOTA_EXCEEDED"
	CodeCutoffPassed           = "CUTOFF_PASSED"
	CodePastDate               = "PAST_DATE"
	CodeIntegrityViolation     = "INTEGRITY_VIOLATION"
	CodeValidation             = "VALIDATION_ERROR"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Operation not allowed in current state")
	ErrQuotaExceeded       = NewDomainError(CodeQuotaExceeded, "Weekly freeze quota exceeded")
	ErrCutoffPassed        = NewDomainError(CodeCutoffPassed, "Daily cutoff has passed")
	ErrPastDate            = NewDomainError(CodePastDate, "Date has already elapsed")
	ErrIntegrityViolation  = NewDomainError(CodeIntegrityViolation, "Data integrity violation")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
)

// NewNotFoundError creates a NOT_FOUND error naming the missing resource
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewInvalidTransitionError creates an INVALID_TRANSITION error
func NewInvalidTransitionError(message string) *DomainError {
	return NewDomainError(CodeInvalidTransition, message)
}

// NewIntegrityViolationError creates an INTEGRITY_VIOLATION error
func NewIntegrityViolationError(message string) *DomainError {
	return NewDomainError(CodeIntegrityViolation, message)
}

// NewValidationError creates a VALIDATION_ERROR error
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// ErrorCode returns the domain error code carried by err, or "" if err is not a domain error
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsIntegrityViolation reports whether err signals a broken internal invariant.
// These are bugs or data corruption and must be alerted on, not shown as user errors.
func IsIntegrityViolation(err error) bool {
	return ErrorCode(err) == CodeIntegrityViolation
}

// IsBusinessRejection reports whether err is an expected, user-presentable rejection
func IsBusinessRejection(err error) bool {
	switch ErrorCode(err) {
	case CodeNotFound, CodeInvalidTransition, CodeQuotaExceeded, CodeCutoffPassed, CodePastDate, CodeValidation:
		return true
	default:
		return false
	}
}
