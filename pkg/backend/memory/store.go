// Package memory is an in-process backend used for local development and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/iota-uz/portal/pkg/backend"
)

const minPasswordLength = 6

type account struct {
	user     backend.User
	password string
}

type token struct {
	userID    string
	expiresAt time.Time
}

// Store implements backend.Auth, backend.Tables and backend.Storage.
type Store struct {
	mu sync.RWMutex

	clock      clockwork.Clock
	sessionTTL time.Duration

	accounts map[string]*account // by email
	access   map[string]token
	refresh  map[string]string // refresh token -> user id

	tables map[string]*table
	blobs  map[string]backend.Object
}

type table struct {
	rows []backend.Row
	seq  int64
}

var (
	_ backend.Auth    = (*Store)(nil)
	_ backend.Tables  = (*Store)(nil)
	_ backend.Storage = (*Store)(nil)
)

type Option func(*Store)

func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) { s.sessionTTL = ttl }
}

func New(opts ...Option) *Store {
	s := &Store{
		clock:      clockwork.NewRealClock(),
		sessionTTL: time.Hour,
		accounts:   make(map[string]*account),
		access:     make(map[string]token),
		refresh:    make(map[string]string),
		tables:     make(map[string]*table),
		blobs:      make(map[string]backend.Object),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the store through all three capabilities.
func (s *Store) Client() backend.Client {
	return backend.Client{Auth: s, Tables: s, Storage: s}
}

// AddUser registers a user without going through SignUp.
func (s *Store) AddUser(user backend.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.clock.Now()
	}
	s.accounts[strings.ToLower(user.Email)] = &account{user: user, password: password}
}

func (s *Store) userByID(id string) (*backend.User, bool) {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			u := acc.user
			return &u, true
		}
	}
	return nil, false
}

func (s *Store) issue(user backend.User) *backend.Session {
	access := uuid.NewString()
	refresh := uuid.NewString()
	expires := s.clock.Now().Add(s.sessionTTL)
	s.access[access] = token{userID: user.ID, expiresAt: expires}
	s.refresh[refresh] = user.ID
	u := user
	return &backend.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expires,
		User:         &u,
	}
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok || acc.password != password {
		return nil, backend.ErrInvalidCredentials
	}
	return s.issue(acc.user), nil
}

func (s *Store) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if _, exists := s.accounts[key]; exists {
		return nil, backend.ErrUserExists
	}
	if len(password) < minPasswordLength {
		return nil, &backend.APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "weak_password",
			Message: fmt.Sprintf("Password should be at least %d characters.", minPasswordLength),
		}
	}
	user := backend.User{ID: uuid.NewString(), Email: email, CreatedAt: s.clock.Now()}
	s.accounts[key] = &account{user: user, password: password}
	return s.issue(user), nil
}

func (s *Store) GetUser(ctx context.Context, accessToken string) (*backend.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.access[accessToken]
	if !ok || !s.clock.Now().Before(tok.expiresAt) {
		return nil, backend.ErrInvalidToken
	}
	user, ok := s.userByID(tok.userID)
	if !ok {
		return nil, backend.ErrInvalidToken
	}
	return user, nil
}

// RefreshSession rotates the refresh token.
func (s *Store) RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[refreshToken]
	if !ok {
		return nil, backend.ErrInvalidToken
	}
	delete(s.refresh, refreshToken)
	user, ok := s.userByID(userID)
	if !ok {
		return nil, backend.ErrInvalidToken
	}
	return s.issue(*user), nil
}

// SignOut revokes every session of the token's owner.
func (s *Store) SignOut(ctx context.Context, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.access[accessToken]
	if !ok {
		return nil
	}
	for k, v := range s.access {
		if v.userID == tok.userID {
			delete(s.access, k)
		}
	}
	for k, v := range s.refresh {
		if v == tok.userID {
			delete(s.refresh, k)
		}
	}
	return nil
}

func copyRow(row backend.Row) backend.Row {
	out := make(backend.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func matches(row backend.Row, filter backend.Filter) bool {
	for k, want := range filter {
		got, ok := row[k]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func less(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func (s *Store) tableFor(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{}
		s.tables[name] = t
	}
	return t
}

func (s *Store) Select(ctx context.Context, name string, q backend.Query) ([]backend.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return []backend.Row{}, nil
	}
	result := make([]backend.Row, 0, len(t.rows))
	for _, row := range t.rows {
		if matches(row, q.Eq) {
			result = append(result, copyRow(row))
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(result, func(i, j int) bool {
			if q.Desc {
				return less(result[j][q.OrderBy], result[i][q.OrderBy])
			}
			return less(result[i][q.OrderBy], result[j][q.OrderBy])
		})
	}
	if q.Offset > 0 {
		if q.Offset >= len(result) {
			return []backend.Row{}, nil
		}
		result = result[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(result) {
		result = result[:q.Limit]
	}
	return result, nil
}

// Insert assigns a sequential id to rows that do not carry one.
func (s *Store) Insert(ctx context.Context, name string, rows ...backend.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tableFor(name)
	for _, row := range rows {
		stored := copyRow(row)
		if _, ok := stored["id"]; !ok {
			t.seq++
			stored["id"] = t.seq
		}
		t.rows = append(t.rows, stored)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, name string, row backend.Row) (backend.Row, error) {
	id, ok := row["id"]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusBadRequest, Code: "missing_id", Message: "upsert requires an id"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tableFor(name)
	for i, existing := range t.rows {
		if fmt.Sprint(existing["id"]) == fmt.Sprint(id) {
			merged := copyRow(existing)
			for k, v := range row {
				merged[k] = v
			}
			t.rows[i] = merged
			return copyRow(merged), nil
		}
	}
	stored := copyRow(row)
	t.rows = append(t.rows, stored)
	return copyRow(stored), nil
}

func (s *Store) Update(ctx context.Context, name string, values backend.Row, filter backend.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	for _, row := range t.rows {
		if !matches(row, filter) {
			continue
		}
		for k, v := range values {
			row[k] = v
		}
	}
	return nil
}

func blobKey(bucket, path string) string {
	return bucket + "/" + strings.TrimLeft(path, "/")
}

// Upload refuses to overwrite an existing object.
func (s *Store) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := blobKey(bucket, path)
	if _, exists := s.blobs[key]; exists {
		return &backend.APIError{Status: http.StatusConflict, Code: "Duplicate", Message: "The resource already exists"}
	}
	s.blobs[key] = backend.Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (s *Store) Download(ctx context.Context, bucket, path string) (*backend.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.blobs[blobKey(bucket, path)]
	if !ok {
		return nil, backend.ErrNotFound
	}
	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)
	return &backend.Object{Data: data, ContentType: obj.ContentType}, nil
}
