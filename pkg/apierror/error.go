// Package apierror defines the JSON error body returned by the HTTP API and maps
// domain errors onto it.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/medme/secwatch/internal/domain/model"
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WithDetail(code int, message, detail string) *Error {
	return &Error{Code: code, Message: message, Detail: detail}
}

func NotFound(resource string) *Error {
	return New(http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

func Internal(message string) *Error {
	return New(http.StatusInternalServerError, message)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

// Unavailable explains that a dependency failed and the request may be retried.
func Unavailable(message, detail string) *Error {
	return WithDetail(http.StatusServiceUnavailable, message, detail)
}

// FromError maps a domain error onto an API error. Errors already of type *Error
// pass through unchanged.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		return WithDetail(http.StatusBadRequest, "invalid request", vErr.Error())
	case errors.Is(err, model.ErrValidation):
		return WithDetail(http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, model.ErrNotFound):
		return NotFound("alert")
	case errors.Is(err, model.ErrConflict):
		return WithDetail(http.StatusConflict, "alert was modified concurrently", "reload the alert and retry with its current version")
	case errors.Is(err, model.ErrForbidden):
		return Forbidden("insufficient permissions")
	case errors.Is(err, model.ErrStoreUnavailable):
		return Unavailable("audit store unavailable", "the security event could not be recorded or read; retry later")
	default:
		return Internal("internal error")
	}
}

// Write encodes e as the JSON response body with its status code.
func Write(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	_ = json.NewEncoder(w).Encode(e)
}
