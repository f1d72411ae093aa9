package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
)

const (
	DefaultListLimit = 50
	DefaultMaxLimit  = 200
)

type LogsService struct {
	repo     logrecord.Repository
	maxLimit int
}

func NewLogsService(repo logrecord.Repository, maxLimit int) *LogsService {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &LogsService{repo: repo, maxLimit: maxLimit}
}

// List returns records newest first. The limit is clamped to the configured
// maximum.
func (s *LogsService) List(ctx context.Context, params *logrecord.FindParams) ([]*logrecord.Record, error) {
	p := logrecord.FindParams{}
	if params != nil {
		p = *params
	}
	p.Limit = s.EffectiveLimit(p.Limit)
	if p.Offset < 0 {
		p.Offset = 0
	}
	records, err := s.repo.List(ctx, &p)
	if err != nil {
		return nil, errors.Wrap(err, "list log records")
	}
	return records, nil
}

func (s *LogsService) EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
