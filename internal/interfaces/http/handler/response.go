package handler

import "github.com/mealplan/backend/internal/interfaces/http/dto"

// The envelope types below exist for the swag annotations on the handlers.
// Responses are written through dto.Response; these mirror its JSON shape with
// a typed data field so generated clients see concrete payloads.

// Envelope wraps a successful payload
type Envelope[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    T         `json:"data,omitempty"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}

// ErrorEnvelope is returned for every 4xx and 5xx answer
type ErrorEnvelope struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
