package services

import (
	"context"

	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
)

const (
	ActionProfileUpdate  = "profile_update"
	ActionSettingsUpdate = "settings_update"
	ActionAvatarUpload   = "avatar_upload"
)

// ActionLogger is the part of the event logger the account services use.
type ActionLogger interface {
	LogUserAction(ctx context.Context, action, userID string, md logrecord.Metadata)
	Error(ctx context.Context, msg string, md logrecord.Metadata)
}

type nopActionLogger struct{}

func (nopActionLogger) LogUserAction(context.Context, string, string, logrecord.Metadata) {}

func (nopActionLogger) Error(context.Context, string, logrecord.Metadata) {}
