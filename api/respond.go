package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/homebudget/budget-engine/auth"
	"github.com/homebudget/budget-engine/ledger"
)

// maxBodyBytes mirrors the 16kb body limit of the original API.
const maxBodyBytes = 16 << 10

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Response{StatusCode: status, Data: data, Message: message, Success: true})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{StatusCode: status, Message: message, Success: false})
}

// statusFor maps ledger and auth errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	case ledger.IsNotFound(err), errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error envelope. Server errors are logged and
// reported with a generic message.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, status, "Something went wrong while processing the request")
		return
	}
	writeError(w, status, capitalize(err.Error()))
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ledger.ValidationError{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	return nil
}

// withWarnings appends reconciliation warnings to a success message.
func withWarnings(message string, warnings []*ledger.ReconciliationFailure) string {
	if len(warnings) == 0 {
		return message
	}
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.Error()
	}
	return message + " (warning: " + strings.Join(parts, "; ") + ")"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
