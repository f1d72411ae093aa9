package persistence

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/pkg/backend"
)

const DefaultTable = "logs"

type LogRepository struct {
	tables backend.Tables
	table  string
}

func NewLogRepository(tables backend.Tables, table string) logrecord.Repository {
	if table == "" {
		table = DefaultTable
	}
	return &LogRepository{tables: tables, table: table}
}

func (r *LogRepository) Create(ctx context.Context, record *logrecord.Record) error {
	if record == nil {
		return errors.Wrap(logrecord.ErrInvalidRecord, "record is nil")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if err := r.tables.Insert(ctx, r.table, ToRow(record)); err != nil {
		return errors.Wrap(err, "insert log record")
	}
	return nil
}

func (r *LogRepository) List(ctx context.Context, params *logrecord.FindParams) ([]*logrecord.Record, error) {
	q := backend.Query{
		Eq:      backend.Filter{},
		OrderBy: "timestamp",
		Desc:    true,
	}
	if params != nil {
		if c := strings.TrimSpace(params.Category); c != "" {
			q.Eq["category"] = strings.ToLower(c)
		}
		if params.Level != nil {
			q.Eq["level"] = params.Level.String()
		}
		if uid := strings.TrimSpace(params.UserID); uid != "" {
			q.Eq["user_id"] = uid
		}
		q.Limit = params.Limit
		q.Offset = params.Offset
	}

	rows, err := r.tables.Select(ctx, r.table, q)
	if err != nil {
		return nil, errors.Wrap(err, "select log records")
	}
	result := make([]*logrecord.Record, 0, len(rows))
	for _, row := range rows {
		result = append(result, ToDomainLogRecord(toDBFromRow(row)))
	}
	return result, nil
}
