package middleware

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/constants"
	"github.com/iota-uz/portal/pkg/httpapi"
	"github.com/iota-uz/portal/pkg/routing"
)

type LoggerOptions struct {
	RequestIDHeader string
	RealIPHeader    string
	Classifier      *routing.Classifier
	Repanic         bool
}

func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
		Classifier:      routing.NewClassifier(routing.DefaultRules),
	}
}

// StatusWriter records the status code written by downstream handlers.
type StatusWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
}

func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	if sw, ok := w.(*StatusWriter); ok {
		return sw
	}
	return &StatusWriter{ResponseWriter: w}
}

func (w *StatusWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *StatusWriter) Write(b []byte) (int, error) {
	if !w.statusWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Status returns the HTTP status code, 200 when nothing was written yet.
func (w *StatusWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *StatusWriter) Written() bool {
	return w.statusWritten
}

func (w *StatusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *StatusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

func (w *StatusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func getRealIP(r *http.Request, header string) string {
	if header != "" && len(r.Header.Get(header)) > 0 {
		return r.Header.Get(header)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func getRequestID(r *http.Request, header string) string {
	if header != "" && len(r.Header.Get(header)) > 0 {
		return r.Header.Get(header)
	}
	return uuid.New().String()
}

var tracer = otel.Tracer("portal-middleware")

func TracedMiddleware(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			propagator := propagation.TraceContext{}
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(
				ctx,
				"middleware."+name,
				trace.WithAttributes(
					attribute.String("middleware.name", name),
					attribute.String("http.method", r.Method),
					attribute.String("http.url", r.URL.String()),
					attribute.String("http.host", r.Host),
				),
			)
			defer span.End()

			propagator.Inject(ctx, propagation.HeaderCarrier(r.Header))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithLogger attaches a request scoped logger and request params to the
// context, opens the root span and recovers panics.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = routing.NewClassifier(routing.DefaultRules)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()
				requestID := getRequestID(r, opts.RequestIDHeader)
				ip := getRealIP(r, opts.RealIPHeader)

				fieldsLogger := logger.WithFields(logrus.Fields{
					"request-id": requestID,
					"path":       r.URL.Path,
					"method":     r.Method,
				})

				fieldsLogger.WithFields(logrus.Fields{
					"host":       r.Host,
					"ip":         ip,
					"user-agent": r.UserAgent(),
				}).Debug("request started")

				propagator := propagation.TraceContext{}
				ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

				ctx, span := tracer.Start(
					ctx,
					"http.request",
					trace.WithAttributes(
						attribute.String("http.method", r.Method),
						attribute.String("http.url", r.URL.String()),
						attribute.String("http.route", r.URL.Path),
						attribute.String("http.user_agent", r.UserAgent()),
						attribute.String("http.request_id", requestID),
						attribute.String("net.host.name", r.Host),
						attribute.String("net.peer.ip", ip),
					),
				)
				defer span.End()

				propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

				if spanContext := span.SpanContext(); spanContext.HasTraceID() {
					traceID := spanContext.TraceID().String()
					w.Header().Set("X-Trace-Id", traceID)
					fieldsLogger = fieldsLogger.WithField("trace-id", traceID)
				}
				w.Header().Set("X-Request-Id", requestID)

				ctx = composables.WithLogger(ctx, fieldsLogger)
				ctx = context.WithValue(ctx, constants.RequestStart, start)
				ctx = composables.WithParams(ctx, &composables.Params{
					IP:        ip,
					UserAgent: r.UserAgent(),
					Referer:   r.Referer(),
					RequestID: requestID,
				})

				wrappedWriter := NewStatusWriter(w)

				defer func() {
					if recovered := recover(); recovered != nil {
						fieldsLogger.WithFields(logrus.Fields{
							"panic":      recovered,
							"stack":      string(debug.Stack()),
							"ip":         ip,
							"user_agent": r.UserAgent(),
							"duration":   time.Since(start),
						}).Error("panic recovered in request handler")

						if !wrappedWriter.Written() {
							if classifier.WantsJSON(r.URL.Path) {
								_ = httpapi.WriteError(wrappedWriter, http.StatusInternalServerError, httpapi.CodeInternal,
									"internal server error", map[string]string{
										"request_id": requestID,
										"path":       r.URL.Path,
									})
							} else {
								http.Error(wrappedWriter, "Internal Server Error", http.StatusInternalServerError)
							}
						}

						if opts.Repanic {
							panic(recovered)
						}
					}
				}()

				next.ServeHTTP(wrappedWriter, r.WithContext(ctx))

				statusCode := wrappedWriter.Status()
				duration := time.Since(start)
				fieldsLogger.WithFields(logrus.Fields{
					"duration":     duration,
					"status-code":  statusCode,
					"status-class": statusCode / 100,
				}).Info("request completed")
				observeRequest(classifier.ClassifyPath(r.URL.Path), r.Method, statusCode, duration)

				span.SetAttributes(
					attribute.Int64("http.request_duration_ms", duration.Milliseconds()),
					attribute.Int("http.status_code", statusCode),
				)
			},
		)
	}
}
