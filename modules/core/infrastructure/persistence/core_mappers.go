package persistence

import (
	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
	"github.com/iota-uz/portal/modules/core/infrastructure/persistence/models"
	"github.com/iota-uz/portal/pkg/backend"
)

func toDBProfile(p *profile.Profile) *models.Profile {
	return &models.Profile{
		ID:                   p.ID,
		FullName:             p.FullName,
		Username:             p.Username,
		Website:              p.Website,
		AvatarURL:            p.AvatarURL,
		Timezone:             p.Timezone,
		Currency:             p.Currency,
		DateFormat:           p.DateFormat,
		TimeFormat:           p.TimeFormat,
		Language:             p.Language,
		NotificationsEnabled: p.NotificationsEnabled,
		EmailNotifications:   p.EmailNotifications,
		PushNotifications:    p.PushNotifications,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toDomainProfile(m *models.Profile) *profile.Profile {
	p := &profile.Profile{
		ID:                   m.ID,
		FullName:             m.FullName,
		Username:             m.Username,
		Website:              m.Website,
		AvatarURL:            m.AvatarURL,
		Timezone:             m.Timezone,
		Currency:             m.Currency,
		DateFormat:           m.DateFormat,
		TimeFormat:           m.TimeFormat,
		Language:             m.Language,
		NotificationsEnabled: m.NotificationsEnabled,
		EmailNotifications:   m.EmailNotifications,
		PushNotifications:    m.PushNotifications,
		UpdatedAt:            m.UpdatedAt,
	}
	p.ApplyDefaults()
	return p
}

func profileToRow(m *models.Profile) backend.Row {
	return backend.Row{
		"id":                    m.ID,
		"full_name":             m.FullName,
		"username":              m.Username,
		"website":               m.Website,
		"avatar_url":            m.AvatarURL,
		"timezone":              m.Timezone,
		"currency":              m.Currency,
		"date_format":           m.DateFormat,
		"time_format":           m.TimeFormat,
		"language":              m.Language,
		"notifications_enabled": m.NotificationsEnabled,
		"email_notifications":   m.EmailNotifications,
		"push_notifications":    m.PushNotifications,
		"updated_at":            m.UpdatedAt,
	}
}

// Missing notification flags default to enabled.
func profileFromRow(row backend.Row) *models.Profile {
	return &models.Profile{
		ID:                   row.String("id"),
		FullName:             row.String("full_name"),
		Username:             row.String("username"),
		Website:              row.String("website"),
		AvatarURL:            row.String("avatar_url"),
		Timezone:             row.String("timezone"),
		Currency:             row.String("currency"),
		DateFormat:           row.String("date_format"),
		TimeFormat:           row.String("time_format"),
		Language:             row.String("language"),
		NotificationsEnabled: row.Bool("notifications_enabled", true),
		EmailNotifications:   row.Bool("email_notifications", true),
		PushNotifications:    row.Bool("push_notifications", true),
		UpdatedAt:            row.Time("updated_at"),
	}
}
