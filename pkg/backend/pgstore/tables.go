// Package pgstore serves backend.Tables straight from Postgres for
// deployments that keep the logs and profiles tables in their own database.
package pgstore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/repo"
)

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrNoValues          = errors.New("no values to write")
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Tables uses the transaction carried by ctx when present and db otherwise.
type Tables struct {
	db       repo.Tx
	conflict string
}

var _ backend.Tables = (*Tables)(nil)

func New(db repo.Tx) *Tables {
	return &Tables{db: db, conflict: "id"}
}

func (t *Tables) tx(ctx context.Context) (repo.Tx, error) {
	if tx, err := composables.UseTx(ctx); err == nil {
		return tx, nil
	}
	if t.db == nil {
		return nil, composables.ErrNoPool
	}
	return t.db, nil
}

func ident(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", errors.Wrap(ErrInvalidIdentifier, name)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildWhere(filter backend.Filter, args []any) (string, []any, error) {
	if len(filter) == 0 {
		return "", args, nil
	}
	where := make([]string, 0, len(filter))
	for _, k := range sortedKeys(filter) {
		col, err := ident(k)
		if err != nil {
			return "", nil, err
		}
		if filter[k] == nil {
			where = append(where, col+" IS NULL")
			continue
		}
		args = append(args, filter[k])
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	return " WHERE " + strings.Join(where, " AND "), args, nil
}

func buildSelect(table string, q backend.Query) (string, []any, error) {
	tbl, err := ident(table)
	if err != nil {
		return "", nil, err
	}
	where, args, err := buildWhere(q.Eq, nil)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT * FROM " + tbl + where
	if q.OrderBy != "" {
		col, err := ident(q.OrderBy)
		if err != nil {
			return "", nil, err
		}
		sql += " ORDER BY " + col
		if q.Desc {
			sql += " DESC"
		}
	}
	if lo := repo.FormatLimitOffset(q.Limit, q.Offset); lo != "" {
		sql += " " + lo
	}
	return sql, args, nil
}

func buildInsert(table string, row backend.Row) (string, []string, []any, error) {
	if len(row) == 0 {
		return "", nil, nil, ErrNoValues
	}
	tbl, err := ident(table)
	if err != nil {
		return "", nil, nil, err
	}
	keys := sortedKeys(row)
	cols := make([]string, 0, len(keys))
	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		col, err := ident(k)
		if err != nil {
			return "", nil, nil, err
		}
		cols = append(cols, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, row[k])
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tbl, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return sql, cols, args, nil
}

func buildUpsert(table, conflict string, row backend.Row) (string, []any, error) {
	if _, ok := row[conflict]; !ok {
		return "", nil, errors.Errorf("upsert into %s requires %q", table, conflict)
	}
	sql, cols, args, err := buildInsert(table, row)
	if err != nil {
		return "", nil, err
	}
	conflictCol, err := ident(conflict)
	if err != nil {
		return "", nil, err
	}
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		if col == conflictCol {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	if len(sets) == 0 {
		sql += " ON CONFLICT (" + conflictCol + ") DO NOTHING RETURNING *"
	} else {
		sql += " ON CONFLICT (" + conflictCol + ") DO UPDATE SET " + strings.Join(sets, ", ") + " RETURNING *"
	}
	return sql, args, nil
}

func buildUpdate(table string, values backend.Row, filter backend.Filter) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, ErrNoValues
	}
	tbl, err := ident(table)
	if err != nil {
		return "", nil, err
	}
	sets := make([]string, 0, len(values))
	args := make([]any, 0, len(values)+len(filter))
	for _, k := range sortedKeys(values) {
		col, err := ident(k)
		if err != nil {
			return "", nil, err
		}
		args = append(args, values[k])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	where, args, err := buildWhere(filter, args)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE " + tbl + " SET " + strings.Join(sets, ", ") + where, args, nil
}

func collect(rows pgx.Rows) ([]backend.Row, error) {
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]backend.Row, 0, len(maps))
	for _, m := range maps {
		out = append(out, backend.Row(m))
	}
	return out, nil
}

func (t *Tables) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	sql, args, err := buildSelect(table, q)
	if err != nil {
		return nil, err
	}
	tx, err := t.tx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "select from %s", table)
	}
	result, err := collect(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", table)
	}
	return result, nil
}

func (t *Tables) Insert(ctx context.Context, table string, rows ...backend.Row) error {
	tx, err := t.tx(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		sql, _, args, err := buildInsert(table, row)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return errors.Wrapf(err, "insert into %s", table)
		}
	}
	return nil
}

func (t *Tables) Upsert(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	sql, args, err := buildUpsert(table, t.conflict, row)
	if err != nil {
		return nil, err
	}
	tx, err := t.tx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "upsert into %s", table)
	}
	result, err := collect(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", table)
	}
	if len(result) == 0 {
		return row, nil
	}
	return result[0], nil
}

func (t *Tables) Update(ctx context.Context, table string, values backend.Row, filter backend.Filter) error {
	sql, args, err := buildUpdate(table, values, filter)
	if err != nil {
		return err
	}
	tx, err := t.tx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return errors.Wrapf(err, "update %s", table)
	}
	return nil
}
