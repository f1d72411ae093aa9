package profile

import (
	"context"
	"slices"
	"time"
)

const (
	DefaultTimezone   = "Europe/Copenhagen"
	DefaultCurrency   = "DKK"
	DefaultDateFormat = "DD/MM/YYYY"
	DefaultTimeFormat = "24h"
	DefaultLanguage   = "da"
)

var (
	Timezones   = []string{"Europe/Copenhagen", "Europe/London", "America/New_York", "Asia/Dubai"}
	Currencies  = []string{"DKK", "EUR", "USD", "GBP", "SEK", "NOK"}
	TimeFormats = []string{"12h", "24h"}
	DateFormats = []string{"DD/MM/YYYY", "MM/DD/YYYY", "YYYY-MM-DD"}
	Languages   = []string{"da", "en", "sv", "no"}
)

// Profile is keyed by the id of the owning user.
type Profile struct {
	ID                   string
	FullName             string
	Username             string
	Website              string
	AvatarURL            string
	Timezone             string
	Currency             string
	DateFormat           string
	TimeFormat           string
	Language             string
	NotificationsEnabled bool
	EmailNotifications   bool
	PushNotifications    bool
	UpdatedAt            time.Time
}

func New(userID string) *Profile {
	p := &Profile{
		ID:                   userID,
		NotificationsEnabled: true,
		EmailNotifications:   true,
		PushNotifications:    true,
	}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults fills empty settings. Notification flags are left alone.
func (p *Profile) ApplyDefaults() {
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	if p.DateFormat == "" {
		p.DateFormat = DefaultDateFormat
	}
	if p.TimeFormat == "" {
		p.TimeFormat = DefaultTimeFormat
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
}

func (p *Profile) Clone() *Profile {
	c := *p
	return &c
}

// Values is the loggable view of the user editable fields.
func (p *Profile) Values() map[string]any {
	return map[string]any{
		"full_name":             p.FullName,
		"username":              p.Username,
		"website":               p.Website,
		"avatar_url":            p.AvatarURL,
		"timezone":              p.Timezone,
		"currency":              p.Currency,
		"date_format":           p.DateFormat,
		"time_format":           p.TimeFormat,
		"language":              p.Language,
		"notifications_enabled": p.NotificationsEnabled,
		"email_notifications":   p.EmailNotifications,
		"push_notifications":    p.PushNotifications,
	}
}

// Diff returns the sorted names of fields whose value differs.
func Diff(before, after *Profile) []string {
	a, b := before.Values(), after.Values()
	changed := make([]string, 0)
	for k, v := range b {
		if a[k] != v {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}

func IsAllowed(options []string, value string) bool {
	return slices.Contains(options, value)
}

type Repository interface {
	// GetByID returns ErrNotFound when the user has no stored profile.
	GetByID(ctx context.Context, id string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) (*Profile, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string, updatedAt time.Time) error
}
