package logrecord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return LevelDebug, errors.Errorf("unknown log level %q", s)
}

const (
	CategoryAuth        = "auth"
	CategoryAPI         = "api"
	CategoryUserAction  = "user_action"
	CategoryError       = "error"
	CategoryPerformance = "performance"
	CategoryInfo        = "info"
)

// Metadata is the open part of a record. Values must be JSON encodable.
type Metadata map[string]any

var ErrInvalidRecord = errors.New("invalid log record")

type Record struct {
	Timestamp   time.Time
	Level       Level
	Category    string
	Message     string
	Environment string
	UserID      string
	Method      string
	Path        string
	StatusCode  *int
	DurationMs  *int64
	ErrorStack  string
	MetricName  string
	MetricValue *float64
	Metadata    Metadata
}

func (r *Record) Validate() error {
	switch {
	case r.Timestamp.IsZero():
		return errors.Wrap(ErrInvalidRecord, "timestamp is required")
	case r.Message == "":
		return errors.Wrap(ErrInvalidRecord, "message is required")
	case r.Level < LevelDebug || r.Level > LevelError:
		return errors.Wrapf(ErrInvalidRecord, "level %d out of range", int(r.Level))
	}
	return nil
}

type FindParams struct {
	Category string
	Level    *Level
	UserID   string
	Limit    int
	Offset   int
}

type Repository interface {
	Create(ctx context.Context, record *Record) error
	List(ctx context.Context, params *FindParams) ([]*Record, error)
}
