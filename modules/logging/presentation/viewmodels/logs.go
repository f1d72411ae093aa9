package viewmodels

import "time"

type LogRecord struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       string         `json:"level"`
	Category    string         `json:"category"`
	Message     string         `json:"message"`
	Environment string         `json:"environment"`
	UserID      string         `json:"user_id,omitempty"`
	Method      string         `json:"method,omitempty"`
	Path        string         `json:"path,omitempty"`
	StatusCode  *int           `json:"status_code,omitempty"`
	DurationMs  *int64         `json:"duration_ms,omitempty"`
	ErrorStack  string         `json:"error_stack,omitempty"`
	MetricName  string         `json:"metric_name,omitempty"`
	MetricValue *float64       `json:"metric_value,omitempty"`
	Metadata    map[string]any `json:"metadata"`
}

type LogsPage struct {
	Logs   []*LogRecord `json:"logs"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}
