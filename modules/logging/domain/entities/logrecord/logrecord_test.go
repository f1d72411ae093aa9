package logrecord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"Error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLevel("fatal")
	require.Error(t, err)
}

func TestLevel_Ordering(t *testing.T) {
	require.Less(t, LevelDebug, LevelInfo)
	require.Less(t, LevelInfo, LevelWarn)
	require.Less(t, LevelWarn, LevelError)
	require.Equal(t, "WARN", LevelWarn.String())
}

func TestRecord_Validate(t *testing.T) {
	r := &Record{Timestamp: time.Now(), Level: LevelInfo, Message: "API GET /"}
	require.NoError(t, r.Validate())

	require.ErrorIs(t, (&Record{Level: LevelInfo, Message: "x"}).Validate(), ErrInvalidRecord)
	require.ErrorIs(t, (&Record{Timestamp: time.Now(), Level: LevelInfo}).Validate(), ErrInvalidRecord)
	require.ErrorIs(t, (&Record{Timestamp: time.Now(), Level: Level(9), Message: "x"}).Validate(), ErrInvalidRecord)
}
