package models

import "time"

// LogRecord mirrors a row of the logs table.
type LogRecord struct {
	ID          int64
	Timestamp   time.Time
	Level       string
	Category    string
	Message     string
	Environment string
	UserID      *string
	Method      *string
	Path        *string
	StatusCode  *int
	DurationMs  *int64
	ErrorStack  *string
	MetricName  *string
	MetricValue *float64
	Metadata    map[string]any
}
