package handler

import "github.com/portal/backend/internal/interfaces/http/dto"

// Envelope types below only describe response shapes for the OpenAPI document.
// Handlers write dto.Response directly.

// APIResponse is the success envelope with a typed data field
// @Description Success envelope
type APIResponse[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data,omitempty"`
}

// PagedResponse is the success envelope for list endpoints
// @Description Paginated list envelope
type PagedResponse[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    []T       `json:"data"`
	Meta    *dto.Meta `json:"meta"`
}

// ErrorResponse is the error envelope. Details is set on request validation
// failures and Errors carries every cross-validation mismatch.
// @Description Error envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
