// Package response writes the API's JSON envelope and maps domain errors
// to HTTP responses.
package response

import (
	"encoding/json/v2"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/store"
)

// Envelope is the JSON shape of every API response. File-serving endpoints
// bypass it and write plain text.
type Envelope struct {
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
	Success bool   `json:"success"`
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.MarshalWrite(w, envelope); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// JSON writes data wrapped in the envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Envelope{Success: status < 400, Data: data}, logger)
}

// Success writes a 200 OK envelope.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Created writes a 201 Created envelope.
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// NoContent writes 204 with an empty body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error envelope with the given status.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	ErrorWithDetails(w, status, message, nil, logger)
}

// ErrorWithDetails writes an error envelope carrying structured details,
// typically per-field validation messages.
func ErrorWithDetails(w http.ResponseWriter, status int, message string, details any, logger *slog.Logger) {
	write(w, status, Envelope{Error: message, Details: details}, logger)
}

func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, message, logger)
}

func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusUnauthorized, message, logger)
}

func Forbidden(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusForbidden, message, logger)
}

func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, message, logger)
}

func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, message, logger)
}

// HandleError translates an error to its HTTP response. Coded domain errors
// and store errors carry their own status; anything else is logged and
// becomes a 500 without leaking the underlying message.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		ErrorWithDetails(w, domainErr.Code.HTTPStatus(), domainErr.Message, domainErr.Details, logger)
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		Error(w, storeErr.HTTPCode(), storeErr.Message, logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	InternalError(w, "internal server error", logger)
}
