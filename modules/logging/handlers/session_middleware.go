package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"github.com/iota-uz/portal/modules/core/domain/entities/session"
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/middleware"
	"github.com/iota-uz/portal/pkg/routing"
)

type SessionRefresher interface {
	Refresh(ctx context.Context, r *http.Request) (session.RefreshResult, error)
	SetCookies(w http.ResponseWriter, sess *backend.Session)
	ClearCookies(w http.ResponseWriter)
}

type SessionMiddlewareOptions struct {
	// Defaults to routing.DefaultExclusions.
	Exclusions *routing.Exclusions
	Clock      clockwork.Clock
}

// SessionMiddleware refreshes the session of every non excluded request and
// records one API log entry per request.
//
// A failing refresh is logged and the request continues anonymously. Access
// control is left to the handlers behind it.
func SessionMiddleware(sessions SessionRefresher, logger *services.EventLogger, opts SessionMiddlewareOptions) mux.MiddlewareFunc {
	exclusions := opts.Exclusions
	if exclusions == nil {
		exclusions = routing.DefaultExclusions()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exclusions.Excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := clock.Now()
			ctx := r.Context()
			sw := middleware.NewStatusWriter(w)

			var user *backend.User
			res, err := sessions.Refresh(ctx, r)
			if err != nil {
				composables.UseLogger(ctx).WithError(err).Warn("session refresh failed, continuing anonymously")
				logger.LogError(ctx, err, logrecord.Metadata{
					"path":   r.URL.Path,
					"method": r.Method,
				})
			} else {
				if res.Refreshed && res.Session != nil {
					sessions.SetCookies(sw, res.Session)
				}
				if res.Cleared {
					sessions.ClearCookies(sw)
				}
				if res.User != nil {
					user = res.User
					ctx = composables.WithUser(ctx, user)
					if res.AccessToken != "" {
						ctx = backend.WithAccessToken(ctx, res.AccessToken)
					}
				}
			}

			next.ServeHTTP(sw, r.WithContext(ctx))

			md := logrecord.Metadata{
				"userAgent": r.UserAgent(),
				"referer":   r.Referer(),
			}
			if user != nil {
				md["userId"] = user.ID
			}
			logger.LogAPI(ctx, r.Method, r.URL.Path, sw.Status(), clock.Since(start).Milliseconds(), md)
		})
	}
}
