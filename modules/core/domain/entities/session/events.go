package session

import (
	"github.com/iota-uz/portal/pkg/backend"
)

// Request describes the client that triggered an auth event.
type Request struct {
	IP        string
	UserAgent string
}

type SignedInEvent struct {
	User    backend.User
	Request Request
}

type SignInFailedEvent struct {
	Email   string
	Error   string
	Request Request
}

type SignedUpEvent struct {
	User backend.User
	// Pending is true when the provider still waits for an email
	// confirmation and issued no tokens.
	Pending bool
	Request Request
}

type SignUpFailedEvent struct {
	Email   string
	Error   string
	Request Request
}

// SignedOutEvent is published before the provider session is revoked.
type SignedOutEvent struct {
	User    backend.User
	Request Request
}
