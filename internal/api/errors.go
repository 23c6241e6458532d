package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pupworks/railyard-core/internal/device"
	"github.com/pupworks/railyard-core/internal/pipeline"
	"github.com/pupworks/railyard-core/internal/pup"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeUnauthorized  = "unauthorised"
	ErrCodeForbidden     = "forbidden"
	ErrCodeUnknownDevice = "unknown_device"
	ErrCodeWrongKind     = "wrong_kind"
	ErrCodeInternal      = "internal_error"
	ErrCodeValidation    = "validation_error"
	ErrCodeUnavailable   = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeControlError maps controller errors onto HTTP responses.
func writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrUnknownDevice):
		writeError(w, http.StatusNotFound, ErrCodeUnknownDevice, "no hub registered on that channel")
	case errors.Is(err, device.ErrWrongKind):
		writeError(w, http.StatusBadRequest, ErrCodeWrongKind, "channel belongs to a different hub kind")
	case errors.Is(err, device.ErrInvalidPort), errors.Is(err, device.ErrInvalidPosition),
		errors.Is(err, pup.ErrInvalidCommand):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, pipeline.ErrShuttingDown):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command pipelines are shutting down")
	default:
		writeInternalError(w, err.Error())
	}
}
