package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/portal/modules/core/domain/entities/session"
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/eventbus"
)

func TestAuthEventsHandler_RecordsAuthEvents(t *testing.T) {
	repo := &memoryRepo{}
	bus := eventbus.NewEventPublisher(nil)
	RegisterAuthEventHandlers(bus, newTestLogger(repo))
	ctx := context.Background()
	req := session.Request{IP: "10.0.0.1", UserAgent: "ua"}

	bus.Publish(ctx, session.SignedInEvent{User: backend.User{ID: "u1", Email: "a@b.com"}, Request: req})
	bus.Publish(ctx, session.SignInFailedEvent{Email: "a@b.com", Error: "Invalid login credentials", Request: req})
	bus.Publish(ctx, session.SignedUpEvent{User: backend.User{ID: "u2", Email: "c@d.com"}, Pending: true, Request: req})
	bus.Publish(ctx, session.SignUpFailedEvent{Email: "c@d.com", Error: "User already registered", Request: req})
	bus.Publish(ctx, session.SignedOutEvent{User: backend.User{ID: "u1", Email: "a@b.com"}})

	records := repo.byCategory(logrecord.CategoryAuth)
	require.Len(t, records, 5)

	messages := make([]string, 0, len(records))
	for _, rec := range records {
		messages = append(messages, rec.Message)
	}
	require.Equal(t, []string{
		"Server Event: sign_in_success",
		"Server Event: sign_in_failed",
		"Server Event: sign_up_success",
		"Server Event: sign_up_failed",
		"Server Event: sign_out",
	}, messages)

	require.Equal(t, "u1", records[0].UserID)
	require.Equal(t, "10.0.0.1", records[0].Metadata["ip"])
	require.Empty(t, records[1].UserID)
	require.Equal(t, "Invalid login credentials", records[1].Metadata["error"])
	require.Equal(t, true, records[2].Metadata["pendingConfirmation"])

	signOut := records[4]
	require.Equal(t, "u1", signOut.UserID)
	require.Equal(t, logrecord.Metadata{"email": "a@b.com"}, signOut.Metadata)
}
