package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/httpapi"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestWithLogger_PopulatesRequestParams(t *testing.T) {
	var params *composables.Params
	handler := WithLogger(quietLogger(), DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		params, ok = composables.UseParams(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/account/profile", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Real-IP", "10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Referer", "http://localhost/")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	require.Equal(t, &composables.Params{
		IP:        "10.0.0.1",
		UserAgent: "test-agent",
		Referer:   "http://localhost/",
		RequestID: "req-1",
	}, params)
}

func TestWithLogger_RemoteAddrWithoutPort(t *testing.T) {
	var ip string
	handler := WithLogger(quietLogger(), DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _ = composables.UseIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "192.0.2.1", ip)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:8080"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "2001:db8::1", ip)
}

func TestWithLogger_RecoversPanicAsJSON(t *testing.T) {
	handler := WithLogger(quietLogger(), DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, httpapi.CodeInternal, env.Code)
	require.Equal(t, "/logs", env.Meta["path"])
}

func TestWithLogger_RecoversPanicAsPlainText(t *testing.T) {
	handler := WithLogger(quietLogger(), DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStatusWriter(rec)
	require.Equal(t, http.StatusOK, sw.Status())
	require.False(t, sw.Written())

	sw.WriteHeader(http.StatusFound)
	sw.WriteHeader(http.StatusTeapot)
	require.Equal(t, http.StatusFound, sw.Status())
	require.Same(t, sw, NewStatusWriter(sw))

	implicit := NewStatusWriter(httptest.NewRecorder())
	_, err := implicit.Write([]byte("ok"))
	require.NoError(t, err)
	require.True(t, implicit.Written())
	require.Equal(t, http.StatusOK, implicit.Status())
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		RequestsPerPeriod: 2,
		Period:            time.Minute,
		Store:             NewMemoryStore(),
		KeyFunc:           func(r *http.Request) string { return "fixed" },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := RateLimit(RateLimitConfig{RequestsPerPeriod: 0})(next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireUser(t *testing.T) {
	handler := RequireUser()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/account/profile", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/account/profile", nil)
	req = req.WithContext(composables.WithUser(req.Context(), &backend.User{ID: "u1"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIPKey_FallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	require.Equal(t, "192.168.1.5", IPKey(req))

	req = req.WithContext(composables.WithParams(req.Context(), &composables.Params{IP: "10.1.1.1"}))
	require.Equal(t, "10.1.1.1", IPKey(req))
}
