package mappers

import (
	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
	"github.com/iota-uz/portal/modules/core/presentation/viewmodels"
	"github.com/iota-uz/portal/pkg/backend"
)

func profileFields(p *profile.Profile) viewmodels.ProfileFields {
	return viewmodels.ProfileFields{
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

func ProfileToViewModel(p *profile.Profile) *viewmodels.Profile {
	return &viewmodels.Profile{
		ID:            p.ID,
		ProfileFields: profileFields(p),
	}
}

func UserWithProfileToViewModel(u *backend.User, p *profile.Profile) *viewmodels.UserWithProfile {
	if p == nil {
		p = profile.New(u.ID)
	}
	return &viewmodels.UserWithProfile{
		ID:            u.ID,
		Email:         u.Email,
		CreatedAt:     u.CreatedAt,
		ProfileFields: profileFields(p),
	}
}
