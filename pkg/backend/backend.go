// Package backend describes the hosted auth, tables and blob storage
// provider the portal runs on. Implementations live in subpackages.
package backend

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotFound           = errors.New("not found")
	ErrUserExists         = errors.New("user already registered")
)

// APIError is a provider-side rejection that does not map onto a sentinel error.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, e.Message)
}

type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *User
}

// Filter matches rows whose columns equal the given values.
type Filter map[string]any

type Query struct {
	Eq      Filter
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

type Object struct {
	Data        []byte
	ContentType string
}

type Auth interface {
	GetUser(ctx context.Context, accessToken string) (*User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp returns a session without tokens when the provider requires email confirmation.
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type Tables interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) error
	// Upsert inserts or merges the row on its id and returns the stored row.
	Upsert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, values Row, filter Filter) error
}

type Storage interface {
	Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error
	Download(ctx context.Context, bucket, path string) (*Object, error)
}

// Client bundles the three capabilities; each may come from a different implementation.
type Client struct {
	Auth    Auth
	Tables  Tables
	Storage Storage
}

type accessTokenKey struct{}

// WithAccessToken scopes table and storage calls made with ctx to the signed in user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}
