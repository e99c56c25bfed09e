// Package web holds the small HTTP helpers shared by handlers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// ParseID extracts a positive integer path parameter. Returns the ID and a boolean indicating success.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", param, raw))
		return 0, false
	}
	return id, true
}

// DecodeAndValidate reads a JSON body into dst and runs struct validation on it.
// On failure it writes the 400 response itself and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		if fields := ValidationErrors(err); fields != nil {
			logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
			RespondJSON(w, logger, http.StatusBadRequest, map[string]any{
				"error":             "validation failed",
				"validation_errors": fields,
			})
			return false
		}
		logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// ValidationErrors flattens validator errors into field -> rule. Returns nil for other errors.
func ValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	out := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		out[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	return out
}
