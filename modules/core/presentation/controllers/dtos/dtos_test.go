package dtos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
)

func TestLoginDTO_Ok(t *testing.T) {
	errs, ok := (&LoginDTO{Email: "not-an-email"}).Ok(context.Background())
	require.False(t, ok)
	require.Contains(t, errs, "Email")
	require.Contains(t, errs, "Password")

	_, ok = (&LoginDTO{Email: "a@b.com", Password: "secret"}).Ok(context.Background())
	require.True(t, ok)
}

func TestSaveSettingsDTO(t *testing.T) {
	errs, ok := (&SaveSettingsDTO{Currency: "XYZ"}).Ok(context.Background())
	require.False(t, ok)
	require.Contains(t, errs, "Currency")

	off := false
	dto := &SaveSettingsDTO{Currency: "EUR", PushNotifications: &off}
	_, ok = dto.Ok(context.Background())
	require.True(t, ok)

	p := profile.New("u1")
	dto.Apply(p)
	require.Equal(t, "EUR", p.Currency)
	require.Equal(t, profile.DefaultTimezone, p.Timezone)
	require.False(t, p.PushNotifications)
	require.True(t, p.EmailNotifications)
}
