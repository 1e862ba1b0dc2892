package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	apperrors "github.com/time-economy/internal/errors"
	"github.com/time-economy/internal/logging"
	"github.com/time-economy/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// Transport-level error codes; pipeline codes live in internal/errors.
const (
	ErrCodeThrottled     = "THROTTLED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondServiceError maps a pipeline error onto its status code and body.
// Anything uncategorized is reported as a store error without its cause.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)
	logger := logging.FromContext(r.Context()).WithField("code", catErr.Code)

	if catErr.StatusCode >= http.StatusInternalServerError {
		logger.WithError(err).Error("Request failed")
	} else {
		logger.Debug("Request rejected")
	}

	if catErr.Category == apperrors.CategoryRateLimit {
		if secs, ok := catErr.Details["retryAfter"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}

	svcErr := catErr.ToServiceError()
	respondError(w, catErr.StatusCode, svcErr.Code, svcErr.Message, svcErr.Details)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data) // nolint:errcheck // client went away
	}
}

// parseJSONBody parses JSON request body. An empty body leaves v untouched
// when allowEmpty is set.
func parseJSONBody(r *http.Request, v interface{}, allowEmpty bool) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return apperrors.NewValidationError("body", "must be a valid JSON object: "+err.Error())
	}
	return nil
}
