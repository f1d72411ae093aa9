package mappers

import (
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/modules/logging/presentation/viewmodels"
)

func LogRecordToViewModel(r *logrecord.Record) *viewmodels.LogRecord {
	metadata := map[string]any{}
	for k, v := range r.Metadata {
		metadata[k] = v
	}
	return &viewmodels.LogRecord{
		Timestamp:   r.Timestamp,
		Level:       r.Level.String(),
		Category:    r.Category,
		Message:     r.Message,
		Environment: r.Environment,
		UserID:      r.UserID,
		Method:      r.Method,
		Path:        r.Path,
		StatusCode:  r.StatusCode,
		DurationMs:  r.DurationMs,
		ErrorStack:  r.ErrorStack,
		MetricName:  r.MetricName,
		MetricValue: r.MetricValue,
		Metadata:    metadata,
	}
}

func LogRecordsToViewModels(records []*logrecord.Record) []*viewmodels.LogRecord {
	out := make([]*viewmodels.LogRecord, 0, len(records))
	for _, r := range records {
		out = append(out, LogRecordToViewModel(r))
	}
	return out
}
