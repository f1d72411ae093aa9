package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/portal/pkg/routing"
)

// Labelled by route class rather than path to keep cardinality bounded.
var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by route class, method and status class.",
	}, []string{"route_class", "method", "status_class"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route class.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route_class"})
)

func observeRequest(class routing.RouteClass, method string, status int, d time.Duration) {
	httpRequests.WithLabelValues(string(class), method, strconv.Itoa(status/100)+"xx").Inc()
	httpRequestDuration.WithLabelValues(string(class)).Observe(d.Seconds())
}
