package services

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/pkg/configuration"
	pkglogging "github.com/iota-uz/portal/pkg/logging"
)

const DefaultPersistTimeout = 5 * time.Second

type Config struct {
	MinLevel    logrecord.Level
	Environment string
}

// DefaultConfig keeps DEBUG records everywhere except production.
func DefaultConfig(env string) Config {
	cfg := Config{MinLevel: logrecord.LevelDebug, Environment: env}
	if env == configuration.Production {
		cfg.MinLevel = logrecord.LevelInfo
	}
	return cfg
}

// ConfigFromEnvironment applies EVENT_LOG_MIN_LEVEL on top of DefaultConfig.
// configuration.Load rejects unknown level names.
func ConfigFromEnvironment(conf *configuration.Configuration) Config {
	cfg := DefaultConfig(conf.GoAppEnvironment)
	if conf.EventLog.MinLevel != "" {
		if lvl, err := logrecord.ParseLevel(conf.EventLog.MinLevel); err == nil {
			cfg.MinLevel = lvl
		}
	}
	return cfg
}

type Option func(*EventLogger)

func WithClock(clock clockwork.Clock) Option {
	return func(l *EventLogger) { l.clock = clock }
}

// WithQueue switches to asynchronous delivery through a queue of the given
// size. Zero keeps delivery synchronous.
func WithQueue(size int) Option {
	return func(l *EventLogger) { l.queueSize = size }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(l *EventLogger) {
		if d > 0 {
			l.persistTimeout = d
		}
	}
}

// EventLogger builds structured log records and persists them through the
// repository. None of its entry points return an error: a failed write is
// reported on the console logger.
type EventLogger struct {
	repo           logrecord.Repository
	console        *logrus.Logger
	cfg            Config
	clock          clockwork.Clock
	persistTimeout time.Duration
	queueSize      int
	writer         *AsyncWriter
}

func NewEventLogger(repo logrecord.Repository, console *logrus.Logger, cfg Config, opts ...Option) *EventLogger {
	if console == nil {
		console = pkglogging.StderrLogger(logrus.DebugLevel)
	}
	l := &EventLogger{
		repo:           repo,
		console:        console,
		cfg:            cfg,
		clock:          clockwork.NewRealClock(),
		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.queueSize > 0 {
		l.writer = NewAsyncWriter(l.queueSize, l.persist)
	}
	return l
}

func (l *EventLogger) Config() Config {
	return l.cfg
}

// Close drains pending asynchronous writes.
func (l *EventLogger) Close(ctx context.Context) error {
	if l.writer == nil {
		return nil
	}
	return l.writer.Close(ctx)
}

func (l *EventLogger) enabled(level logrecord.Level) bool {
	return level >= l.cfg.MinLevel
}

func (l *EventLogger) LogUserAction(ctx context.Context, action, userID string, md logrecord.Metadata) {
	if !l.enabled(logrecord.LevelInfo) {
		return
	}
	rec := l.newRecord(logrecord.LevelInfo, "User Action: "+action, md)
	rec.Category = logrecord.CategoryUserAction
	setUserID(rec, userID)
	l.deliver(ctx, rec)
}

func (l *EventLogger) LogAuth(ctx context.Context, event, userID string, md logrecord.Metadata) {
	if !l.enabled(logrecord.LevelInfo) {
		return
	}
	rec := l.newRecord(logrecord.LevelInfo, "Auth Event: "+event, md)
	rec.Category = logrecord.CategoryAuth
	setUserID(rec, userID)
	l.deliver(ctx, rec)
}

// LogServerEvent stores md as given without lifting any keys.
func (l *EventLogger) LogServerEvent(ctx context.Context, category, event, userID string, md logrecord.Metadata) {
	if !l.enabled(logrecord.LevelInfo) {
		return
	}
	rec := l.baseRecord(logrecord.LevelInfo, "Server Event: "+event)
	if category != "" {
		rec.Category = category
	}
	for k, v := range md {
		rec.Metadata[k] = v
	}
	setUserID(rec, userID)
	l.deliver(ctx, rec)
}

func (l *EventLogger) LogAPI(ctx context.Context, method, path string, status int, durationMs int64, md logrecord.Metadata) {
	if !l.enabled(logrecord.LevelInfo) {
		return
	}
	rec := l.newRecord(logrecord.LevelInfo, fmt.Sprintf("API %s %s", method, path), md)
	rec.Category = logrecord.CategoryAPI
	rec.Method = method
	rec.Path = path
	rec.StatusCode = &status
	if durationMs < 0 {
		durationMs = 0
	}
	rec.DurationMs = &durationMs
	l.deliver(ctx, rec)
}

func (l *EventLogger) LogError(ctx context.Context, err error, md logrecord.Metadata) {
	if !l.enabled(logrecord.LevelError) {
		return
	}
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	rec := l.newRecord(logrecord.LevelError, message, md)
	rec.Category = logrecord.CategoryError
	rec.ErrorStack = stackOf(err)
	l.deliver(ctx, rec)
}

func (l *EventLogger) LogPerformance(ctx context.Context, metric string, value float64, md logrecord.Metadata) {
	if !l.enabled(logrecord.LevelInfo) {
		return
	}
	rec := l.newRecord(logrecord.LevelInfo, "Performance: "+metric, md)
	rec.Category = logrecord.CategoryPerformance
	rec.MetricName = metric
	rec.MetricValue = &value
	l.deliver(ctx, rec)
}

func (l *EventLogger) Debug(ctx context.Context, msg string, md logrecord.Metadata) {
	l.log(ctx, logrecord.LevelDebug, msg, md)
}

func (l *EventLogger) Info(ctx context.Context, msg string, md logrecord.Metadata) {
	l.log(ctx, logrecord.LevelInfo, msg, md)
}

func (l *EventLogger) Warn(ctx context.Context, msg string, md logrecord.Metadata) {
	l.log(ctx, logrecord.LevelWarn, msg, md)
}

func (l *EventLogger) Error(ctx context.Context, msg string, md logrecord.Metadata) {
	l.log(ctx, logrecord.LevelError, msg, md)
}

func (l *EventLogger) log(ctx context.Context, level logrecord.Level, msg string, md logrecord.Metadata) {
	if !l.enabled(level) {
		return
	}
	l.deliver(ctx, l.newRecord(level, msg, md))
}

func (l *EventLogger) baseRecord(level logrecord.Level, message string) *logrecord.Record {
	if message == "" {
		message = "(empty message)"
	}
	return &logrecord.Record{
		Timestamp:   l.clock.Now().UTC(),
		Level:       level,
		Category:    logrecord.CategoryInfo,
		Message:     message,
		Environment: l.cfg.Environment,
		Metadata:    logrecord.Metadata{},
	}
}

func (l *EventLogger) newRecord(level logrecord.Level, message string, md logrecord.Metadata) *logrecord.Record {
	rec := l.baseRecord(level, message)
	liftMetadata(rec, md)
	return rec
}

func (l *EventLogger) deliver(ctx context.Context, rec *logrecord.Record) {
	if l.cfg.Environment != configuration.Production {
		l.console.WithFields(recordFields(rec)).Log(logrusLevel(rec.Level), rec.Message)
	}
	if l.writer == nil {
		l.persist(ctx, rec)
		return
	}
	if !l.writer.Enqueue(ctx, rec) {
		recordDelivery(rec.Category, resultDropped)
		l.fallback(rec, errQueueFull)
	}
}

var errQueueFull = fmt.Errorf("event log queue is full")

func (l *EventLogger) persist(ctx context.Context, rec *logrecord.Record) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.persistTimeout)
	defer cancel()
	if err := l.repo.Create(ctx, rec); err != nil {
		recordDelivery(rec.Category, resultFailed)
		l.fallback(rec, err)
		return
	}
	recordDelivery(rec.Category, resultPersisted)
}

// fallback prints the whole record so nothing is lost when the store rejects it.
func (l *EventLogger) fallback(rec *logrecord.Record, err error) {
	fields := recordFields(rec)
	fields["message"] = rec.Message
	fields["level_name"] = rec.Level.String()
	if rec.ErrorStack != "" {
		fields["error_stack"] = rec.ErrorStack
	}
	l.console.WithFields(fields).
		WithError(err).
		Error("failed to persist event log record")
}

func recordFields(rec *logrecord.Record) logrus.Fields {
	fields := logrus.Fields{
		"category":    rec.Category,
		"environment": rec.Environment,
		"timestamp":   rec.Timestamp.Format(time.RFC3339Nano),
	}
	if rec.UserID != "" {
		fields["user_id"] = rec.UserID
	}
	if rec.Method != "" {
		fields["method"] = rec.Method
		fields["path"] = rec.Path
	}
	if rec.StatusCode != nil {
		fields["status_code"] = *rec.StatusCode
	}
	if rec.DurationMs != nil {
		fields["duration_ms"] = *rec.DurationMs
	}
	if rec.MetricName != "" {
		fields["metric_name"] = rec.MetricName
	}
	if rec.MetricValue != nil {
		fields["metric_value"] = *rec.MetricValue
	}
	if len(rec.Metadata) > 0 {
		fields["metadata"] = rec.Metadata
	}
	return fields
}

func logrusLevel(level logrecord.Level) logrus.Level {
	switch level {
	case logrecord.LevelDebug:
		return logrus.DebugLevel
	case logrecord.LevelWarn:
		return logrus.WarnLevel
	case logrecord.LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func setUserID(rec *logrecord.Record, userID string) {
	if userID != "" {
		rec.UserID = userID
	}
}

var reservedKeys = map[string]struct{}{
	"timestamp":   {},
	"level":       {},
	"message":     {},
	"environment": {},
}

// liftMetadata moves recognised keys into typed fields. Keys with an
// unexpected value type stay in Metadata.
func liftMetadata(rec *logrecord.Record, md logrecord.Metadata) {
	for k, v := range md {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		lifted := true
		switch k {
		case "userId":
			if s, ok := v.(string); ok {
				rec.UserID = s
			} else {
				lifted = v == nil
			}
		case "method":
			rec.Method, lifted = v.(string)
		case "path":
			rec.Path, lifted = v.(string)
		case "stack":
			rec.ErrorStack, lifted = v.(string)
		case "metric":
			rec.MetricName, lifted = v.(string)
		case "category":
			var c string
			if c, lifted = v.(string); lifted && c != "" {
				rec.Category = c
			}
		case "statusCode":
			if n, ok := toInt64(v); ok {
				code := int(n)
				rec.StatusCode = &code
			} else {
				lifted = false
			}
		case "duration":
			if n, ok := toInt64(v); ok {
				rec.DurationMs = &n
			} else {
				lifted = false
			}
		case "value":
			if f, ok := toFloat64(v); ok {
				rec.MetricValue = &f
			} else {
				lifted = false
			}
		default:
			lifted = false
		}
		if !lifted {
			rec.Metadata[k] = v
		}
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case float32:
		return int64(math.Round(float64(n))), true
	case float64:
		return int64(math.Round(n)), true
	case time.Duration:
		return n.Milliseconds(), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

func stackOf(err error) string {
	var st stackTracer
	if pkgerrors.As(err, &st) {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return string(debug.Stack())
}
