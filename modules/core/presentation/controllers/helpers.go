package controllers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/composables"
)

// decodeBody accepts a JSON body or a url-encoded form.
func decodeBody[T any](r *http.Request, dto T) (T, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return dto, json.NewDecoder(r.Body).Decode(dto)
	}
	return composables.UseForm(dto, r)
}

// authErrorMessage is shown to the user as is.
func authErrorMessage(err error) string {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, backend.ErrInvalidCredentials):
		return "Invalid login credentials"
	case errors.Is(err, backend.ErrUserExists):
		return "User already registered"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "Authentication failed. Please try again."
	}
}
