package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/backend/memory"
)

func TestToRow_FlattensRecord(t *testing.T) {
	status := 200
	duration := int64(12)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	row := ToRow(&logrecord.Record{
		Timestamp:   ts,
		Level:       logrecord.LevelInfo,
		Category:    "API",
		Message:     "API GET /account",
		Environment: "development",
		UserID:      "u1",
		Method:      "GET",
		Path:        "/account",
		StatusCode:  &status,
		DurationMs:  &duration,
		Metadata:    logrecord.Metadata{"userAgent": "ua"},
	})

	require.Equal(t, backend.Row{
		"timestamp":    ts,
		"level":        "INFO",
		"category":     "api",
		"message":      "API GET /account",
		"environment":  "development",
		"user_id":      "u1",
		"method":       "GET",
		"path":         "/account",
		"status_code":  200,
		"duration_ms":  int64(12),
		"error_stack":  nil,
		"metric_name":  nil,
		"metric_value": nil,
		"metadata":     map[string]any{"userAgent": "ua"},
	}, row)
}

func TestToRow_EmptyOptionalFieldsAreNull(t *testing.T) {
	row := ToRow(&logrecord.Record{
		Timestamp: time.Now(),
		Level:     logrecord.LevelWarn,
		Message:   "disk almost full",
	})

	require.Nil(t, row["user_id"])
	require.Nil(t, row["status_code"])
	require.Equal(t, "info", row["category"])
	require.Equal(t, "WARN", row["level"])
	require.Equal(t, map[string]any{}, row["metadata"])
}

func TestLogRepository_CreateAndList(t *testing.T) {
	store := memory.New()
	repo := NewLogRepository(store, "")
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &logrecord.Record{
		Timestamp: base, Level: logrecord.LevelInfo, Category: "auth", Message: "Server Event: sign_in_success", UserID: "u1",
	}))
	require.NoError(t, repo.Create(ctx, &logrecord.Record{
		Timestamp: base.Add(time.Minute), Level: logrecord.LevelError, Category: "error", Message: "boom",
	}))
	require.NoError(t, repo.Create(ctx, &logrecord.Record{
		Timestamp: base.Add(2 * time.Minute), Level: logrecord.LevelInfo, Category: "auth", Message: "Server Event: sign_out", UserID: "u1",
	}))

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "Server Event: sign_out", all[0].Message)

	lvl := logrecord.LevelError
	errorsOnly, err := repo.List(ctx, &logrecord.FindParams{Level: &lvl})
	require.NoError(t, err)
	require.Len(t, errorsOnly, 1)
	require.Equal(t, logrecord.LevelError, errorsOnly[0].Level)

	authForUser, err := repo.List(ctx, &logrecord.FindParams{Category: "AUTH", UserID: "u1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, authForUser, 1)
	require.Equal(t, "u1", authForUser[0].UserID)
}

func TestLogRepository_Create_RejectsInvalidRecord(t *testing.T) {
	repo := NewLogRepository(memory.New(), "logs")
	err := repo.Create(context.Background(), &logrecord.Record{Level: logrecord.LevelInfo})
	require.ErrorIs(t, err, logrecord.ErrInvalidRecord)
}

type failingTables struct {
	backend.Tables
}

func (failingTables) Insert(ctx context.Context, table string, rows ...backend.Row) error {
	return errors.New("network down")
}

func TestLogRepository_Create_WrapsBackendError(t *testing.T) {
	repo := NewLogRepository(failingTables{}, "logs")
	err := repo.Create(context.Background(), &logrecord.Record{
		Timestamp: time.Now(), Level: logrecord.LevelInfo, Message: "x",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert log record")
}
