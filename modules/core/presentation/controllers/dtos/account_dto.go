package dtos

import (
	"context"

	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
)

type SaveProfileDTO struct {
	FullName string `form:"full_name" json:"full_name" validate:"omitempty,max=200"`
	Username string `form:"username" json:"username" validate:"omitempty,min=3,max=50"`
	Website  string `form:"website" json:"website" validate:"omitempty,url"`
}

func (d *SaveProfileDTO) Ok(ctx context.Context) (map[string]string, bool) {
	errorMessages := validate(d)
	return errorMessages, len(errorMessages) == 0
}

func (d *SaveProfileDTO) Apply(p *profile.Profile) {
	p.FullName = d.FullName
	p.Username = d.Username
	p.Website = d.Website
}

// SaveSettingsDTO leaves fields that were not sent unchanged.
type SaveSettingsDTO struct {
	Timezone             string `form:"timezone" json:"timezone"`
	Currency             string `form:"currency" json:"currency"`
	DateFormat           string `form:"date_format" json:"date_format"`
	TimeFormat           string `form:"time_format" json:"time_format"`
	Language             string `form:"language" json:"language"`
	NotificationsEnabled *bool  `form:"notifications_enabled" json:"notifications_enabled"`
	EmailNotifications   *bool  `form:"email_notifications" json:"email_notifications"`
	PushNotifications    *bool  `form:"push_notifications" json:"push_notifications"`
}

func (d *SaveSettingsDTO) Ok(ctx context.Context) (map[string]string, bool) {
	errorMessages := validate(d)
	checks := []struct {
		field, value string
		options      []string
	}{
		{"Timezone", d.Timezone, profile.Timezones},
		{"Currency", d.Currency, profile.Currencies},
		{"DateFormat", d.DateFormat, profile.DateFormats},
		{"TimeFormat", d.TimeFormat, profile.TimeFormats},
		{"Language", d.Language, profile.Languages},
	}
	for _, c := range checks {
		if c.value != "" && !profile.IsAllowed(c.options, c.value) {
			errorMessages[c.field] = c.field + " is not supported"
		}
	}
	return errorMessages, len(errorMessages) == 0
}

func (d *SaveSettingsDTO) Apply(p *profile.Profile) {
	if d.Timezone != "" {
		p.Timezone = d.Timezone
	}
	if d.Currency != "" {
		p.Currency = d.Currency
	}
	if d.DateFormat != "" {
		p.DateFormat = d.DateFormat
	}
	if d.TimeFormat != "" {
		p.TimeFormat = d.TimeFormat
	}
	if d.Language != "" {
		p.Language = d.Language
	}
	if d.NotificationsEnabled != nil {
		p.NotificationsEnabled = *d.NotificationsEnabled
	}
	if d.EmailNotifications != nil {
		p.EmailNotifications = *d.EmailNotifications
	}
	if d.PushNotifications != nil {
		p.PushNotifications = *d.PushNotifications
	}
}
