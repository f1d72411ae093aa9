package rest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/iota-uz/portal/pkg/backend"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse covers both the token grant payload and the bare user
// object returned by signup when email confirmation is pending.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *backend.User `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

func (t *tokenResponse) session() *backend.Session {
	sess := &backend.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         t.User,
	}
	switch {
	case t.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		sess.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	if sess.User == nil && t.ID != "" {
		sess.User = &backend.User{ID: t.ID, Email: t.Email}
	}
	return sess
}

func (c *Client) grant(ctx context.Context, grantType string, body any, invalid error) (*backend.Session, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
		token:  c.anonKey,
	})
	if err != nil {
		return nil, err
	}
	if !ok(resp.status) {
		apiErr := decodeAPIError(resp)
		if resp.status == http.StatusBadRequest || resp.status == http.StatusUnauthorized {
			return nil, errors.Wrap(invalid, apiErr.Message)
		}
		return nil, apiErr
	}
	var out tokenResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.session(), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	return c.grant(ctx, "password", credentials{Email: email, Password: password}, backend.ErrInvalidCredentials)
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error) {
	if refreshToken == "" {
		return nil, backend.ErrInvalidToken
	}
	return c.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken}, backend.ErrInvalidToken)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   credentials{Email: email, Password: password},
		token:  c.anonKey,
	})
	if err != nil {
		return nil, err
	}
	if !ok(resp.status) {
		apiErr := decodeAPIError(resp)
		if apiErr.Code == "user_already_exists" {
			return nil, errors.Wrap(backend.ErrUserExists, apiErr.Message)
		}
		return nil, apiErr
	}
	var out tokenResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.session(), nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*backend.User, error) {
	if accessToken == "" {
		return nil, backend.ErrInvalidToken
	}
	resp, err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       "/auth/v1/user",
		token:      accessToken,
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden {
		return nil, errors.Wrap(backend.ErrInvalidToken, decodeAPIError(resp).Message)
	}
	if !ok(resp.status) {
		return nil, decodeAPIError(resp)
	}
	var user backend.User
	if err := decodeJSON(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  accessToken,
	})
	if err != nil {
		return err
	}
	// An already expired token has nothing left to revoke.
	if ok(resp.status) || resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden {
		return nil
	}
	return decodeAPIError(resp)
}
