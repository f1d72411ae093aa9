package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/httpapi"
)

// RequireUser rejects requests that reach it without an authenticated user.
func RequireUser() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := composables.UseUser(r.Context()); err != nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "Not authenticated", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Provide stores value under key in every request context.
func Provide(key any, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, value)))
		})
	}
}
