package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/portal/modules/core/domain/entities/session"
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/composables"
)

type memoryRepo struct {
	mu      sync.Mutex
	records []*logrecord.Record
}

func (r *memoryRepo) Create(ctx context.Context, record *logrecord.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, params *logrecord.FindParams) ([]*logrecord.Record, error) {
	return r.byCategory(""), nil
}

func (r *memoryRepo) byCategory(category string) []*logrecord.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*logrecord.Record, 0, len(r.records))
	for _, rec := range r.records {
		if category == "" || rec.Category == category {
			out = append(out, rec)
		}
	}
	return out
}

type stubRefresher struct {
	result  session.RefreshResult
	err     error
	calls   int
	set     []*backend.Session
	cleared int
}

func (s *stubRefresher) Refresh(ctx context.Context, r *http.Request) (session.RefreshResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubRefresher) SetCookies(w http.ResponseWriter, sess *backend.Session) {
	s.set = append(s.set, sess)
	http.SetCookie(w, &http.Cookie{Name: "sb-access-token", Value: sess.AccessToken})
}

func (s *stubRefresher) ClearCookies(w http.ResponseWriter) {
	s.cleared++
}

func newTestLogger(repo logrecord.Repository) *services.EventLogger {
	console := logrus.New()
	console.SetOutput(io.Discard)
	return services.NewEventLogger(repo, console, services.DefaultConfig("test"))
}

func TestSessionMiddleware_LogsOneAPIRecord(t *testing.T) {
	repo := &memoryRepo{}
	refresher := &stubRefresher{}
	clock := clockwork.NewFakeClock()

	handler := SessionMiddleware(refresher, newTestLogger(repo), SessionMiddlewareOptions{Clock: clock})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clock.Advance(42 * time.Millisecond)
			w.WriteHeader(http.StatusCreated)
		}),
	)

	req := httptest.NewRequest(http.MethodPost, "/account/profile", nil)
	req.Header.Set("User-Agent", "ua")
	req.Header.Set("Referer", "http://localhost/account")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, refresher.calls)

	records := repo.byCategory(logrecord.CategoryAPI)
	require.Len(t, records, 1)
	require.Len(t, repo.byCategory(""), 1)
	api := records[0]
	require.Equal(t, "POST", api.Method)
	require.Equal(t, "/account/profile", api.Path)
	require.Equal(t, http.StatusCreated, *api.StatusCode)
	require.Equal(t, int64(42), *api.DurationMs)
	require.Empty(t, api.UserID)
	require.Equal(t, "ua", api.Metadata["userAgent"])
	require.Equal(t, "http://localhost/account", api.Metadata["referer"])
}

func TestSessionMiddleware_DefaultStatusIsOK(t *testing.T) {
	repo := &memoryRepo{}
	handler := SessionMiddleware(&stubRefresher{}, newTestLogger(repo), SessionMiddlewareOptions{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	records := repo.byCategory(logrecord.CategoryAPI)
	require.Len(t, records, 1)
	require.Equal(t, http.StatusOK, *records[0].StatusCode)
	require.GreaterOrEqual(t, *records[0].DurationMs, int64(0))
}

func TestSessionMiddleware_ExcludedPathsSkipEverything(t *testing.T) {
	repo := &memoryRepo{}
	refresher := &stubRefresher{}
	served := 0
	handler := SessionMiddleware(refresher, newTestLogger(repo), SessionMiddlewareOptions{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { served++ }),
	)

	for _, path := range []string{"/_next/static/chunk.js", "/_next/image?url=x", "/favicon.ico", "/static/app.css", "/images/logo.svg", "/photo.JPG"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 6, served)
	require.Zero(t, refresher.calls)
	require.Empty(t, repo.byCategory(""))
}

func TestSessionMiddleware_RefreshFailureFailsOpen(t *testing.T) {
	repo := &memoryRepo{}
	refresher := &stubRefresher{err: errors.New("auth provider unreachable")}
	var sawUser bool
	handler := SessionMiddleware(refresher, newTestLogger(repo), SessionMiddlewareOptions{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := composables.UseUser(r.Context())
			sawUser = err == nil
			w.WriteHeader(http.StatusOK)
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/account/profile", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, sawUser)

	errs := repo.byCategory(logrecord.CategoryError)
	require.Len(t, errs, 1)
	require.Equal(t, "auth provider unreachable", errs[0].Message)
	require.Equal(t, "/account/profile", errs[0].Path)
	require.Equal(t, "GET", errs[0].Method)
	require.Len(t, repo.byCategory(logrecord.CategoryAPI), 1)
}

func TestSessionMiddleware_AttachesUserAndCookies(t *testing.T) {
	repo := &memoryRepo{}
	user := &backend.User{ID: "u1", Email: "a@b.com"}
	refreshed := &backend.Session{AccessToken: "new-at", RefreshToken: "new-rt", User: user}
	refresher := &stubRefresher{result: session.RefreshResult{
		User:        user,
		AccessToken: "new-at",
		Session:     refreshed,
		Refreshed:   true,
	}}

	var ctxUser *backend.User
	var ctxToken string
	handler := SessionMiddleware(refresher, newTestLogger(repo), SessionMiddlewareOptions{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxUser, _ = composables.UseUser(r.Context())
			ctxToken, _ = backend.AccessToken(r.Context())
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/account/profile", nil))

	require.Equal(t, user, ctxUser)
	require.Equal(t, "new-at", ctxToken)
	require.Equal(t, []*backend.Session{refreshed}, refresher.set)
	require.Contains(t, rec.Header().Get("Set-Cookie"), "new-at")

	api := repo.byCategory(logrecord.CategoryAPI)
	require.Len(t, api, 1)
	require.Equal(t, "u1", api[0].UserID)
}

func TestSessionMiddleware_ClearsCookies(t *testing.T) {
	refresher := &stubRefresher{result: session.RefreshResult{Cleared: true}}
	handler := SessionMiddleware(refresher, newTestLogger(&memoryRepo{}), SessionMiddlewareOptions{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, 1, refresher.cleared)
}
