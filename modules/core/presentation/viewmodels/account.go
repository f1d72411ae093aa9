package viewmodels

import (
	"time"
)

type ProfileFields struct {
	FullName             string    `json:"full_name"`
	Username             string    `json:"username"`
	Website              string    `json:"website"`
	AvatarURL            string    `json:"avatar_url"`
	Timezone             string    `json:"timezone"`
	Currency             string    `json:"currency"`
	DateFormat           string    `json:"date_format"`
	TimeFormat           string    `json:"time_format"`
	Language             string    `json:"language"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	EmailNotifications   bool      `json:"email_notifications"`
	PushNotifications    bool      `json:"push_notifications"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type Profile struct {
	ID string `json:"id"`
	ProfileFields
}

// UserWithProfile merges the account user with its profile fields.
type UserWithProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ProfileFields
}

type AuthResponse struct {
	Success bool             `json:"success"`
	User    *UserWithProfile `json:"user,omitempty"`
	// Pending is set after a sign-up that waits for email confirmation.
	Pending bool   `json:"pending,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AvatarUploaded struct {
	AvatarURL string `json:"avatar_url"`
}

type Health struct {
	Status string `json:"status"`
}
