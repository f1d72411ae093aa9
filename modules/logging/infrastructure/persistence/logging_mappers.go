package persistence

import (
	"strings"

	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/modules/logging/infrastructure/persistence/models"
	"github.com/iota-uz/portal/pkg/backend"
)

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ToDBLogRecord(record *logrecord.Record) *models.LogRecord {
	metadata := map[string]any{}
	for k, v := range record.Metadata {
		metadata[k] = v
	}
	category := strings.ToLower(record.Category)
	if category == "" {
		category = logrecord.CategoryInfo
	}
	return &models.LogRecord{
		Timestamp:   record.Timestamp,
		Level:       strings.ToUpper(record.Level.String()),
		Category:    category,
		Message:     record.Message,
		Environment: record.Environment,
		UserID:      optionalString(record.UserID),
		Method:      optionalString(record.Method),
		Path:        optionalString(record.Path),
		StatusCode:  record.StatusCode,
		DurationMs:  record.DurationMs,
		ErrorStack:  optionalString(record.ErrorStack),
		MetricName:  optionalString(record.MetricName),
		MetricValue: record.MetricValue,
		Metadata:    metadata,
	}
}

// ToRow flattens a record into the column layout of the logs table.
// Absent optional fields are written as nulls.
func ToRow(record *logrecord.Record) backend.Row {
	m := ToDBLogRecord(record)
	row := backend.Row{
		"timestamp":    m.Timestamp,
		"level":        m.Level,
		"category":     m.Category,
		"message":      m.Message,
		"environment":  m.Environment,
		"user_id":      nil,
		"method":       nil,
		"path":         nil,
		"status_code":  nil,
		"duration_ms":  nil,
		"error_stack":  nil,
		"metric_name":  nil,
		"metric_value": nil,
		"metadata":     m.Metadata,
	}
	if m.UserID != nil {
		row["user_id"] = *m.UserID
	}
	if m.Method != nil {
		row["method"] = *m.Method
	}
	if m.Path != nil {
		row["path"] = *m.Path
	}
	if m.StatusCode != nil {
		row["status_code"] = *m.StatusCode
	}
	if m.DurationMs != nil {
		row["duration_ms"] = *m.DurationMs
	}
	if m.ErrorStack != nil {
		row["error_stack"] = *m.ErrorStack
	}
	if m.MetricName != nil {
		row["metric_name"] = *m.MetricName
	}
	if m.MetricValue != nil {
		row["metric_value"] = *m.MetricValue
	}
	return row
}

func toDBFromRow(row backend.Row) *models.LogRecord {
	m := &models.LogRecord{
		Timestamp:   row.Time("timestamp"),
		Level:       row.String("level"),
		Category:    row.String("category"),
		Message:     row.String("message"),
		Environment: row.String("environment"),
		UserID:      optionalString(row.String("user_id")),
		Method:      optionalString(row.String("method")),
		Path:        optionalString(row.String("path")),
		ErrorStack:  optionalString(row.String("error_stack")),
		MetricName:  optionalString(row.String("metric_name")),
		Metadata:    row.Map("metadata"),
	}
	if id, ok := row.Int64("id"); ok {
		m.ID = id
	}
	if v, ok := row.Int64("status_code"); ok {
		code := int(v)
		m.StatusCode = &code
	}
	if v, ok := row.Int64("duration_ms"); ok {
		m.DurationMs = &v
	}
	if v, ok := row.Float64("metric_value"); ok {
		m.MetricValue = &v
	}
	return m
}

func ToDomainLogRecord(m *models.LogRecord) *logrecord.Record {
	level, err := logrecord.ParseLevel(m.Level)
	if err != nil {
		level = logrecord.LevelInfo
	}
	metadata := logrecord.Metadata{}
	for k, v := range m.Metadata {
		metadata[k] = v
	}
	return &logrecord.Record{
		Timestamp:   m.Timestamp,
		Level:       level,
		Category:    m.Category,
		Message:     m.Message,
		Environment: m.Environment,
		UserID:      derefString(m.UserID),
		Method:      derefString(m.Method),
		Path:        derefString(m.Path),
		StatusCode:  m.StatusCode,
		DurationMs:  m.DurationMs,
		ErrorStack:  derefString(m.ErrorStack),
		MetricName:  derefString(m.MetricName),
		MetricValue: m.MetricValue,
		Metadata:    metadata,
	}
}
