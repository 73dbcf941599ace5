// Package handler contains the HTTP handlers.
//
// Handlers decode the request, call a service and encode the answer. They
// never talk to the database directly; errors coming back from services are
// translated to status codes in one place, writeError.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/classroom/internal/apperror"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable type, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // set for validation errors
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statuses maps each domain sentinel to its HTTP status.
var statuses = map[error]int{
	apperror.ErrValidation:   http.StatusBadRequest,
	apperror.ErrUnauthorized: http.StatusUnauthorized,
	apperror.ErrNotFound:     http.StatusNotFound,
	apperror.ErrConflict:     http.StatusConflict,
	apperror.ErrRateLimited:  http.StatusTooManyRequests,
}

// writeError maps domain errors to HTTP status codes. Anything that is not
// an *apperror.AppError is an internal error and its text is not exposed.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, ok := statuses[appErr.Err]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, ErrorResponse{
		Error:   appErr.Code(),
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a size-limited JSON body into dst. Malformed or oversized
// bodies come back as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("body", "request body too large")
		}
		return apperror.ValidationFailed("body", "invalid JSON request body")
	}
	return nil
}
