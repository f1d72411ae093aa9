package httpapi

import (
	"encoding/json"
	"net/http"
)

const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeValidation     = "VALIDATION_FAILED"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeNotFound       = "NOT_FOUND"
	CodeTooManyRequest = "TOO_MANY_REQUESTS"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
)

// ErrorEnvelope standardizes JSON error responses. Message is meant to be
// shown to the end user as a notification.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteValidationError reports field errors keyed by field name in Meta.
func WriteValidationError(w http.ResponseWriter, fields map[string]string) error {
	return WriteError(w, http.StatusUnprocessableEntity, CodeValidation, "Please correct the highlighted fields.", fields)
}
