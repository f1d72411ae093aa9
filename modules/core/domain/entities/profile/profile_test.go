package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_AppliesDefaults(t *testing.T) {
	p := New("u1")
	require.Equal(t, "u1", p.ID)
	require.Equal(t, "Europe/Copenhagen", p.Timezone)
	require.Equal(t, "DKK", p.Currency)
	require.Equal(t, "DD/MM/YYYY", p.DateFormat)
	require.Equal(t, "24h", p.TimeFormat)
	require.Equal(t, "da", p.Language)
	require.True(t, p.NotificationsEnabled)
	require.True(t, p.EmailNotifications)
	require.True(t, p.PushNotifications)
}

func TestApplyDefaults_KeepsStoredValues(t *testing.T) {
	p := &Profile{Timezone: "Asia/Dubai", Language: "en"}
	p.ApplyDefaults()
	require.Equal(t, "Asia/Dubai", p.Timezone)
	require.Equal(t, "en", p.Language)
	require.Equal(t, "DKK", p.Currency)
	require.False(t, p.PushNotifications)
}

func TestDiff(t *testing.T) {
	before := New("u1")
	after := before.Clone()
	after.Username = "alex"
	after.Currency = "EUR"
	after.PushNotifications = false

	require.Equal(t, []string{"currency", "push_notifications", "username"}, Diff(before, after))
	require.Empty(t, Diff(before, before.Clone()))
}

func TestIsAllowed(t *testing.T) {
	require.True(t, IsAllowed(Currencies, "SEK"))
	require.False(t, IsAllowed(Currencies, "JPY"))
	require.True(t, IsAllowed(Languages, "no"))
}
