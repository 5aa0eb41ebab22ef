package handler

import (
	"errors"
	"net/http"

	"expensehub/internal/workflow"
)

// statusFor maps the workflow error taxonomy onto HTTP status codes.
// Unrecognized errors fall through to 400 so service-level validation
// messages reach the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrValidation), errors.Is(err, workflow.ErrInvalidState):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}
