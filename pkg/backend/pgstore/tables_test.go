package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/constants"
)

func TestTables_Select_BuildsFilteredQuery(t *testing.T) {
	now := time.Now()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Equal(t, `SELECT * FROM "logs" WHERE "category" = $1 AND "level" = $2 ORDER BY "timestamp" DESC LIMIT 10 OFFSET 20`, sql)
			require.Equal(t, []any{"api", "INFO"}, args)
			return &stubRows{
				fields: []string{"id", "message", "timestamp"},
				data:   [][]any{{int64(1), "API GET /", now}},
			}, nil
		},
	}

	rows, err := New(tx).Select(context.Background(), "logs", backend.Query{
		Eq:      backend.Filter{"level": "INFO", "category": "api"},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   10,
		Offset:  20,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "API GET /", rows[0].String("message"))
	require.Equal(t, now, rows[0].Time("timestamp"))
}

func TestTables_Select_RejectsUnsafeIdentifiers(t *testing.T) {
	_, err := New(&stubTx{}).Select(context.Background(), "logs; drop table logs", backend.Query{})
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = New(&stubTx{}).Select(context.Background(), "logs", backend.Query{OrderBy: "1=1"})
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestTables_Insert_ExecsEachRow(t *testing.T) {
	var statements []string
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			statements = append(statements, sql)
			require.Len(t, args, 2)
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	err := New(tx).Insert(context.Background(), "logs",
		backend.Row{"message": "a", "level": "INFO"},
		backend.Row{"message": "b", "level": "WARN"},
	)
	require.NoError(t, err)
	require.Equal(t, []string{
		`INSERT INTO "logs" ("level", "message") VALUES ($1, $2)`,
		`INSERT INTO "logs" ("level", "message") VALUES ($1, $2)`,
	}, statements)
}

func TestTables_Insert_WrapsDriverErrors(t *testing.T) {
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errors.New("connection refused")
		},
	}

	err := New(tx).Insert(context.Background(), "logs", backend.Row{"message": "a"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert into logs")
}

func TestTables_Upsert_OnConflictUpdate(t *testing.T) {
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Equal(t,
				`INSERT INTO "profiles" ("id", "username") VALUES ($1, $2) ON CONFLICT ("id") DO UPDATE SET "username" = EXCLUDED."username" RETURNING *`,
				sql,
			)
			return &stubRows{
				fields: []string{"id", "username"},
				data:   [][]any{{"u1", "alex"}},
			}, nil
		},
	}

	row, err := New(tx).Upsert(context.Background(), "profiles", backend.Row{"id": "u1", "username": "alex"})
	require.NoError(t, err)
	require.Equal(t, "alex", row.String("username"))
}

func TestTables_Upsert_RequiresID(t *testing.T) {
	_, err := New(&stubTx{}).Upsert(context.Background(), "profiles", backend.Row{"username": "alex"})
	require.Error(t, err)
}

func TestTables_Update_SetsThenFilters(t *testing.T) {
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Equal(t, `UPDATE "profiles" SET "avatar_url" = $1 WHERE "id" = $2`, sql)
			require.Equal(t, []any{"u1-x.png", "u1"}, args)
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	err := New(tx).Update(context.Background(), "profiles", backend.Row{"avatar_url": "u1-x.png"}, backend.Filter{"id": "u1"})
	require.NoError(t, err)
}

func TestTables_PrefersContextTransaction(t *testing.T) {
	used := false
	ctxTx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			used = true
			return pgconn.CommandTag{}, nil
		},
	}
	ctx := context.WithValue(context.Background(), constants.TxKey, ctxTx)

	require.NoError(t, New(&stubTx{}).Insert(ctx, "logs", backend.Row{"message": "a"}))
	require.True(t, used)
}

type stubTx struct {
	queryFunc func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc  func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("copy not implemented")
}

func (s *stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	var results pgx.BatchResults
	return results
}

func (s *stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if s.execFunc == nil {
		return pgconn.CommandTag{}, errors.New("exec not implemented")
	}
	return s.execFunc(ctx, sql, arguments...)
}

func (s *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.queryFunc == nil {
		return nil, errors.New("query not implemented")
	}
	return s.queryFunc(ctx, sql, args...)
}

func (s *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

type stubRows struct {
	fields []string
	data   [][]any
	idx    int
	err    error
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if scanner, ok := dest[0].(pgx.RowScanner); ok {
			return scanner.ScanRow(r)
		}
	}
	return errors.New("only pgx.RowScanner destinations are supported")
}

func (r *stubRows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.data) {
		return nil, errors.New("no current row")
	}
	return r.data[r.idx-1], nil
}

func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, 0, len(r.fields))
	for _, name := range r.fields {
		out = append(out, pgconn.FieldDescription{Name: name})
	}
	return out
}

func (r *stubRows) RawValues() [][]byte { return nil }
func (r *stubRows) Err() error          { return r.err }
func (r *stubRows) Close()              {}
func (r *stubRows) CommandTag() pgconn.CommandTag {
	return pgconn.CommandTag{}
}
func (r *stubRows) Conn() *pgx.Conn { return nil }
