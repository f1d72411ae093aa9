package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultPersisted = "persisted"
	resultFailed    = "failed"
	resultDropped   = "dropped"
)

var (
	eventLogRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventlog",
		Name:      "records_total",
		Help:      "Total number of event log records broken down by category and delivery result.",
	}, []string{"category", "result"})

	eventLogQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventlog",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Records waiting in the asynchronous writer queue.",
	})
)

func recordDelivery(category, result string) {
	if category == "" {
		category = "info"
	}
	eventLogRecords.WithLabelValues(category, result).Inc()
}
