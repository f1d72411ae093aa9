package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
	"github.com/iota-uz/portal/modules/core/domain/entities/session"
	"github.com/iota-uz/portal/modules/core/infrastructure/persistence"
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/backend/memory"
	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/eventbus"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type loggedAction struct {
	action string
	userID string
	md     logrecord.Metadata
}

type recordingLogger struct {
	mu      sync.Mutex
	actions []loggedAction
	errors  []string
}

func (l *recordingLogger) LogUserAction(ctx context.Context, action, userID string, md logrecord.Metadata) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, loggedAction{action: action, userID: userID, md: md})
}

func (l *recordingLogger) Error(ctx context.Context, msg string, md logrecord.Metadata) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

type failingTables struct {
	backend.Tables
}

func (failingTables) Upsert(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	return nil, errors.New("boom")
}

func TestProfileService_Get_ReturnsDefaults(t *testing.T) {
	svc := NewProfileService(persistence.NewProfileRepository(memory.New()), nil, nil)

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", p.ID)
	require.Equal(t, profile.DefaultCurrency, p.Currency)
	require.True(t, p.NotificationsEnabled)
}

func TestProfileService_Update_LogsChangedFields(t *testing.T) {
	store := memory.New()
	logger := &recordingLogger{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewProfileService(persistence.NewProfileRepository(store), logger, clock)
	ctx := context.Background()

	_, err := svc.Update(ctx, "u1", ActionProfileUpdate, func(p *profile.Profile) {
		p.Username = "alex"
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "u1", ActionSettingsUpdate, func(p *profile.Profile) {
		p.Currency = "EUR"
		p.PushNotifications = false
	})
	require.NoError(t, err)
	require.Equal(t, "alex", updated.Username)
	require.Equal(t, clock.Now(), updated.UpdatedAt)

	require.Len(t, logger.actions, 2)
	last := logger.actions[1]
	require.Equal(t, ActionSettingsUpdate, last.action)
	require.Equal(t, "u1", last.userID)
	require.Equal(t, []string{"currency", "push_notifications"}, last.md["changedFields"])
	require.Equal(t, "DKK", last.md["previousValues"].(map[string]any)["currency"])
	require.Equal(t, "EUR", last.md["newValues"].(map[string]any)["currency"])
}

func TestProfileService_Update_LogsFailure(t *testing.T) {
	logger := &recordingLogger{}
	svc := NewProfileService(persistence.NewProfileRepository(failingTables{Tables: memory.New()}), logger, nil)

	_, err := svc.Update(context.Background(), "u1", ActionProfileUpdate, func(p *profile.Profile) {})
	require.Error(t, err)
	require.Equal(t, []string{"Error updating profile"}, logger.errors)
	require.Empty(t, logger.actions)
}

func TestAvatarService_UploadAndDownload(t *testing.T) {
	store := memory.New()
	logger := &recordingLogger{}
	profiles := NewProfileService(persistence.NewProfileRepository(store), logger, nil)
	svc := NewAvatarService(store, profiles, logger, "", 0)
	ctx := context.Background()

	path, err := svc.Upload(ctx, "u1", strings.NewReader(string(pngHeader)))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "u1-"))
	require.True(t, strings.HasSuffix(path, ".png"))

	p, err := profiles.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, path, p.AvatarURL)

	obj, err := svc.Download(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, pngHeader, obj.Data)
	require.Equal(t, "image/png", obj.ContentType)

	require.Len(t, logger.actions, 1)
	require.Equal(t, ActionAvatarUpload, logger.actions[0].action)
}

func TestAvatarService_ProfileFailureIsLogged(t *testing.T) {
	store := memory.New()
	logger := &recordingLogger{}
	profiles := NewProfileService(persistence.NewProfileRepository(failingTables{Tables: store}), logger, nil)
	svc := NewAvatarService(store, profiles, logger, "", 0)

	_, err := svc.Upload(context.Background(), "u1", strings.NewReader(string(pngHeader)))
	require.Error(t, err)
	require.Contains(t, logger.errors, "Error saving avatar to profile")
	require.Empty(t, logger.actions)
}

func TestAvatarService_ReplacesExistingAvatar(t *testing.T) {
	store := memory.New()
	logger := &recordingLogger{}
	profiles := NewProfileService(persistence.NewProfileRepository(store), logger, nil)
	svc := NewAvatarService(store, profiles, logger, "", 0)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "u1", strings.NewReader(string(pngHeader)))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, "u1", strings.NewReader(string(pngHeader)))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.Len(t, logger.actions, 2)
	require.Equal(t, []string{"avatar_url"}, logger.actions[1].md["changedFields"])
}

func TestAvatarService_RejectsInvalidUploads(t *testing.T) {
	store := memory.New()
	profiles := NewProfileService(persistence.NewProfileRepository(store), nil, nil)
	svc := NewAvatarService(store, profiles, nil, "", 16)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "u1", nil)
	require.ErrorIs(t, err, ErrNoFile)
	_, err = svc.Upload(ctx, "u1", strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoFile)
	_, err = svc.Upload(ctx, "u1", strings.NewReader("plain text"))
	require.ErrorIs(t, err, ErrUnsupportedAvatarType)
	_, err = svc.Upload(ctx, "u1", strings.NewReader(string(pngHeader)))
	require.ErrorIs(t, err, ErrAvatarTooLarge)

	_, err = svc.Download(ctx, "u1")
	require.ErrorIs(t, err, ErrNoAvatar)
}

func newSessionFixture(t *testing.T) (*memory.Store, *clockwork.FakeClock, *SessionService) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := memory.New(memory.WithClock(clock), memory.WithSessionTTL(time.Minute))
	store.AddUser(backend.User{ID: "u1", Email: "a@b.com"}, "secret")
	return store, clock, NewSessionService(store, SessionServiceOptions{Clock: clock})
}

func requestWithCookies(tokens session.Tokens) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if tokens.AccessToken != "" {
		r.AddCookie(&http.Cookie{Name: "sb-access-token", Value: tokens.AccessToken})
	}
	if tokens.RefreshToken != "" {
		r.AddCookie(&http.Cookie{Name: "sb-refresh-token", Value: tokens.RefreshToken})
	}
	return r
}

func TestSessionService_Refresh(t *testing.T) {
	store, clock, svc := newSessionFixture(t)
	ctx := context.Background()
	sess, err := store.SignIn(ctx, "a@b.com", "secret")
	require.NoError(t, err)
	tokens := session.Tokens{AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken}

	res, err := svc.Refresh(ctx, requestWithCookies(session.Tokens{}))
	require.NoError(t, err)
	require.False(t, res.Authenticated())
	require.False(t, res.Cleared)

	res, err = svc.Refresh(ctx, requestWithCookies(tokens))
	require.NoError(t, err)
	require.Equal(t, "u1", res.User.ID)
	require.False(t, res.Refreshed)

	clock.Advance(2 * time.Minute)
	res, err = svc.Refresh(ctx, requestWithCookies(tokens))
	require.NoError(t, err)
	require.True(t, res.Refreshed)
	require.Equal(t, "u1", res.User.ID)
	require.NotEqual(t, sess.AccessToken, res.AccessToken)

	// The refresh token was rotated above.
	res, err = svc.Refresh(ctx, requestWithCookies(tokens))
	require.NoError(t, err)
	require.True(t, res.Cleared)
	require.False(t, res.Authenticated())
}

func TestSessionService_Refresh_ExpiredWithoutRefreshToken(t *testing.T) {
	_, _, svc := newSessionFixture(t)

	res, err := svc.Refresh(context.Background(), requestWithCookies(session.Tokens{AccessToken: "stale"}))
	require.NoError(t, err)
	require.True(t, res.Cleared)
}

func TestSessionService_Cookies(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewSessionService(memory.New(), SessionServiceOptions{
		Duration:   time.Hour,
		Domain:     "portal.example.com",
		Production: true,
		Clock:      clock,
	})

	rec := httptest.NewRecorder()
	svc.SetCookies(rec, &backend.Session{AccessToken: "at", RefreshToken: "rt"})
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite)
		require.Equal(t, "portal.example.com", c.Domain)
		require.Equal(t, 3600, c.MaxAge)
	}

	rec = httptest.NewRecorder()
	svc.SetCookies(rec, &backend.Session{})
	require.Empty(t, rec.Result().Cookies())

	rec = httptest.NewRecorder()
	svc.ClearCookies(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
	}
}

func TestAuthService_PublishesEvents(t *testing.T) {
	store := memory.New()
	store.AddUser(backend.User{ID: "u1", Email: "a@b.com"}, "secret")
	bus := eventbus.NewEventPublisher(logrus.New())

	var events []any
	bus.Subscribe(func(ctx context.Context, e session.SignedInEvent) { events = append(events, e) })
	bus.Subscribe(func(ctx context.Context, e session.SignInFailedEvent) { events = append(events, e) })
	bus.Subscribe(func(ctx context.Context, e session.SignedUpEvent) { events = append(events, e) })
	bus.Subscribe(func(ctx context.Context, e session.SignedOutEvent) { events = append(events, e) })

	svc := NewAuthService(store, bus)
	ctx := composables.WithParams(context.Background(), &composables.Params{IP: "10.0.0.1", UserAgent: "test"})

	_, err := svc.SignIn(ctx, "a@b.com", "wrong")
	require.ErrorIs(t, err, backend.ErrInvalidCredentials)

	sess, err := svc.SignIn(ctx, "a@b.com", "secret")
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "new@b.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess.User, sess.AccessToken))
	_, err = store.GetUser(ctx, sess.AccessToken)
	require.ErrorIs(t, err, backend.ErrInvalidToken)

	require.Len(t, events, 4)
	failed := events[0].(session.SignInFailedEvent)
	require.Equal(t, "a@b.com", failed.Email)
	require.Equal(t, "10.0.0.1", failed.Request.IP)
	require.Equal(t, "u1", events[1].(session.SignedInEvent).User.ID)
	require.False(t, events[2].(session.SignedUpEvent).Pending)
	require.Equal(t, "u1", events[3].(session.SignedOutEvent).User.ID)
}
