package common

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteError renders err. AppErrors keep their code and status; anything else
// becomes a 500 with a generic message and the cause goes to the log only.
func WriteError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	if appErr, ok := AsAppError(err); ok {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error().Err(appErr.Err).Str("code", appErr.Code).Msg(appErr.Message)
		}
		JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	logger.Error().Err(err).Msg("unhandled error")
	JSONError(w, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
}

// DecodeJSON decodes the request body into dst and reports malformed payloads
// as validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return ValidationError("invalid JSON body", map[string]any{"body": err.Error()})
	}
	return nil
}
