package services

import (
	"context"

	"github.com/iota-uz/portal/modules/core/domain/entities/session"
	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/eventbus"
)

type AuthService struct {
	auth      backend.Auth
	publisher eventbus.EventBus
}

func NewAuthService(auth backend.Auth, publisher eventbus.EventBus) *AuthService {
	return &AuthService{auth: auth, publisher: publisher}
}

func requestFrom(ctx context.Context) session.Request {
	params, ok := composables.UseParams(ctx)
	if !ok {
		return session.Request{}
	}
	return session.Request{IP: params.IP, UserAgent: params.UserAgent}
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	sess, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.publisher.Publish(ctx, session.SignInFailedEvent{
			Email:   email,
			Error:   err.Error(),
			Request: requestFrom(ctx),
		})
		return nil, err
	}
	if sess.User != nil {
		s.publisher.Publish(ctx, session.SignedInEvent{User: *sess.User, Request: requestFrom(ctx)})
	}
	return sess, nil
}

func (s *AuthService) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	sess, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		s.publisher.Publish(ctx, session.SignUpFailedEvent{
			Email:   email,
			Error:   err.Error(),
			Request: requestFrom(ctx),
		})
		return nil, err
	}
	user := backend.User{Email: email}
	if sess.User != nil {
		user = *sess.User
	}
	s.publisher.Publish(ctx, session.SignedUpEvent{
		User:    user,
		Pending: sess.AccessToken == "",
		Request: requestFrom(ctx),
	})
	return sess, nil
}

// SignOut records the sign-out while the session is still valid and then
// revokes it. A nil user skips the event.
func (s *AuthService) SignOut(ctx context.Context, user *backend.User, accessToken string) error {
	if user != nil {
		s.publisher.Publish(ctx, session.SignedOutEvent{User: *user, Request: requestFrom(ctx)})
	}
	if accessToken == "" {
		return nil
	}
	return s.auth.SignOut(ctx, accessToken)
}
