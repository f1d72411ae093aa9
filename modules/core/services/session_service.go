package services

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"

	"github.com/iota-uz/portal/modules/core/domain/entities/session"
	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/configuration"
)

type SessionServiceOptions struct {
	AccessCookieKey  string
	RefreshCookieKey string
	// Cookie lifetime.
	Duration   time.Duration
	Domain     string
	Production bool
	Clock      clockwork.Clock
}

func SessionOptionsFromConfig(conf *configuration.Configuration) SessionServiceOptions {
	return SessionServiceOptions{
		AccessCookieKey:  conf.AccessCookieKey,
		RefreshCookieKey: conf.RefreshCookieKey,
		Duration:         conf.SessionDuration,
		Domain:           conf.Domain,
		Production:       conf.IsProduction(),
	}
}

type SessionService struct {
	auth backend.Auth
	opts SessionServiceOptions
}

func NewSessionService(auth backend.Auth, opts SessionServiceOptions) *SessionService {
	if opts.AccessCookieKey == "" {
		opts.AccessCookieKey = "sb-access-token"
	}
	if opts.RefreshCookieKey == "" {
		opts.RefreshCookieKey = "sb-refresh-token"
	}
	if opts.Duration <= 0 {
		opts.Duration = 30 * 24 * time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &SessionService{auth: auth, opts: opts}
}

func (s *SessionService) Current(r *http.Request) session.Tokens {
	var tokens session.Tokens
	if c, err := r.Cookie(s.opts.AccessCookieKey); err == nil {
		tokens.AccessToken = c.Value
	}
	if c, err := r.Cookie(s.opts.RefreshCookieKey); err == nil {
		tokens.RefreshToken = c.Value
	}
	return tokens
}

// Refresh resolves the user behind the request cookies, rotating the tokens
// when the access token has expired. Only provider or transport failures are
// returned as errors.
func (s *SessionService) Refresh(ctx context.Context, r *http.Request) (session.RefreshResult, error) {
	tokens := s.Current(r)
	if tokens.Empty() {
		return session.RefreshResult{}, nil
	}

	if tokens.AccessToken != "" {
		user, err := s.auth.GetUser(ctx, tokens.AccessToken)
		if err == nil {
			return session.RefreshResult{User: user, AccessToken: tokens.AccessToken}, nil
		}
		if !errors.Is(err, backend.ErrInvalidToken) {
			return session.RefreshResult{}, errors.Wrap(err, "get session user")
		}
	}

	if tokens.RefreshToken == "" {
		return session.RefreshResult{Cleared: true}, nil
	}
	sess, err := s.auth.RefreshSession(ctx, tokens.RefreshToken)
	if errors.Is(err, backend.ErrInvalidToken) {
		return session.RefreshResult{Cleared: true}, nil
	}
	if err != nil {
		return session.RefreshResult{}, errors.Wrap(err, "refresh session")
	}

	user := sess.User
	if user == nil {
		if user, err = s.auth.GetUser(ctx, sess.AccessToken); err != nil {
			return session.RefreshResult{}, errors.Wrap(err, "get refreshed session user")
		}
	}
	return session.RefreshResult{
		User:        user,
		AccessToken: sess.AccessToken,
		Session:     sess,
		Refreshed:   true,
	}, nil
}

func (s *SessionService) cookie(name, value string, expires time.Time, maxAge int) *http.Cookie {
	domain := ""
	if s.opts.Production {
		domain = s.opts.Domain
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetCookies is a no-op for sessions without tokens, e.g. a sign-up that
// still waits for email confirmation.
func (s *SessionService) SetCookies(w http.ResponseWriter, sess *backend.Session) {
	if sess == nil || sess.AccessToken == "" {
		return
	}
	expires := s.opts.Clock.Now().Add(s.opts.Duration)
	maxAge := int(s.opts.Duration.Seconds())
	http.SetCookie(w, s.cookie(s.opts.AccessCookieKey, sess.AccessToken, expires, maxAge))
	if sess.RefreshToken != "" {
		http.SetCookie(w, s.cookie(s.opts.RefreshCookieKey, sess.RefreshToken, expires, maxAge))
	}
}

func (s *SessionService) ClearCookies(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, s.cookie(s.opts.AccessCookieKey, "", expired, -1))
	http.SetCookie(w, s.cookie(s.opts.RefreshCookieKey, "", expired, -1))
}
