package session

import (
	"github.com/iota-uz/portal/pkg/backend"
)

// Tokens are the session credentials carried by the request cookies.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// RefreshResult describes what a per-request session check decided.
// User is nil for anonymous requests.
type RefreshResult struct {
	User        *backend.User
	AccessToken string
	// Session is set when the provider issued new tokens.
	Session   *backend.Session
	Refreshed bool
	// Cleared means the stored tokens are no longer usable and the
	// cookies must be removed.
	Cleared bool
}

func (r RefreshResult) Authenticated() bool {
	return r.User != nil
}
