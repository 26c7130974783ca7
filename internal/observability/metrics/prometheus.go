// Package metrics provides Prometheus metrics for the extraction pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	BatchesProcessed  prometheus.Counter
	BatchesFailed     prometheus.Counter
	RecordsProcessed  prometheus.Counter
	EntitiesDetected  prometheus.Counter
	CodesResolved     prometheus.Counter
	ExtractorFailures prometheus.Counter
	BatchDuration     prometheus.Histogram
	BatchAccuracy     prometheus.Gauge
	BusMessagesIn     prometheus.Counter
	BusMessagesOut    prometheus.Counter
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		BatchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extraction_batches_processed_total",
			Help: "Total record batches processed",
		}),
		BatchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extraction_batches_failed_total",
			Help: "Total record batches that failed",
		}),
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extraction_records_processed_total",
			Help: "Total patient records processed",
		}),
		EntitiesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extraction_entities_detected_total",
			Help: "Total entity mentions detected",
		}),
		CodesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extraction_codes_resolved_total",
			Help: "Total ICD-10 codes resolved",
		}),
		ExtractorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extractor_call_failures_total",
			Help: "Total failed entity-extractor calls",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "extraction_batch_duration_seconds",
			Help:    "Batch processing duration including the extractor call",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		BatchAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extraction_last_batch_accuracy_percent",
			Help: "Record-level match accuracy of the last evaluated batch",
		}),
		BusMessagesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bus_messages_consumed_total",
			Help: "Total bus messages consumed",
		}),
		BusMessagesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bus_messages_produced_total",
			Help: "Total bus messages produced",
		}),
	}

	prometheus.MustRegister(
		m.BatchesProcessed,
		m.BatchesFailed,
		m.RecordsProcessed,
		m.EntitiesDetected,
		m.CodesResolved,
		m.ExtractorFailures,
		m.BatchDuration,
		m.BatchAccuracy,
		m.BusMessagesIn,
		m.BusMessagesOut,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
