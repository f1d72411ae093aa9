package models

import "time"

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
