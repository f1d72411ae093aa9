package handlers

import (
	"context"

	"github.com/iota-uz/portal/modules/core/domain/entities/session"
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/eventbus"
)

const (
	EventSignInSuccess = "sign_in_success"
	EventSignInFailed  = "sign_in_failed"
	EventSignUpSuccess = "sign_up_success"
	EventSignUpFailed  = "sign_up_failed"
	EventSignOut       = "sign_out"
)

// AuthEventsHandler turns published session events into auth log records.
type AuthEventsHandler struct {
	logger *services.EventLogger
}

func NewAuthEventsHandler(logger *services.EventLogger) *AuthEventsHandler {
	return &AuthEventsHandler{logger: logger}
}

func RegisterAuthEventHandlers(bus eventbus.EventBus, logger *services.EventLogger) *AuthEventsHandler {
	h := NewAuthEventsHandler(logger)
	bus.Subscribe(h.onSignedIn)
	bus.Subscribe(h.onSignInFailed)
	bus.Subscribe(h.onSignedUp)
	bus.Subscribe(h.onSignUpFailed)
	bus.Subscribe(h.onSignedOut)
	return h
}

func requestMetadata(md logrecord.Metadata, req session.Request) logrecord.Metadata {
	if req.IP != "" {
		md["ip"] = req.IP
	}
	if req.UserAgent != "" {
		md["userAgent"] = req.UserAgent
	}
	return md
}

func (h *AuthEventsHandler) onSignedIn(ctx context.Context, e session.SignedInEvent) {
	h.logger.LogServerEvent(ctx, logrecord.CategoryAuth, EventSignInSuccess, e.User.ID,
		requestMetadata(logrecord.Metadata{"email": e.User.Email}, e.Request))
}

func (h *AuthEventsHandler) onSignInFailed(ctx context.Context, e session.SignInFailedEvent) {
	h.logger.LogServerEvent(ctx, logrecord.CategoryAuth, EventSignInFailed, "",
		requestMetadata(logrecord.Metadata{"email": e.Email, "error": e.Error}, e.Request))
}

func (h *AuthEventsHandler) onSignedUp(ctx context.Context, e session.SignedUpEvent) {
	md := logrecord.Metadata{"email": e.User.Email}
	if e.Pending {
		md["pendingConfirmation"] = true
	}
	h.logger.LogServerEvent(ctx, logrecord.CategoryAuth, EventSignUpSuccess, e.User.ID, requestMetadata(md, e.Request))
}

func (h *AuthEventsHandler) onSignUpFailed(ctx context.Context, e session.SignUpFailedEvent) {
	h.logger.LogServerEvent(ctx, logrecord.CategoryAuth, EventSignUpFailed, "",
		requestMetadata(logrecord.Metadata{"email": e.Email, "error": e.Error}, e.Request))
}

func (h *AuthEventsHandler) onSignedOut(ctx context.Context, e session.SignedOutEvent) {
	h.logger.LogServerEvent(ctx, logrecord.CategoryAuth, EventSignOut, e.User.ID,
		logrecord.Metadata{"email": e.User.Email})
}
