package controllers

import (
	"net/http"
	"strings"

	"github.com/iota-uz/portal/pkg/httpapi"
)

const codeMethodNotAllowed = "METHOD_NOT_ALLOWED"

func requestIDFromResponse(w http.ResponseWriter, r *http.Request) string {
	if requestID := strings.TrimSpace(w.Header().Get("X-Request-Id")); requestID != "" {
		return requestID
	}
	return strings.TrimSpace(r.Header.Get("X-Request-Id"))
}

func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta := map[string]string{
			"path": r.URL.Path,
		}
		if requestID := requestIDFromResponse(w, r); requestID != "" {
			meta["request_id"] = requestID
		}
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "not found", meta)
	}
}

func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta := map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
		}
		if requestID := requestIDFromResponse(w, r); requestID != "" {
			meta["request_id"] = requestID
		}
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed", meta)
	}
}
