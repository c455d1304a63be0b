package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	provProductsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "provenance_products_total",
		Help: "Number of registered products.",
	})

	provEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provenance_events_total",
		Help: "Total supply-chain events appended.",
	})

	provVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provenance_verifications_total",
		Help: "Total verifications by outcome.",
	}, []string{"outcome"})

	provRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provenance_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	provRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provenance_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	provLedgerEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provenance_ledger_entries_total",
		Help: "Total verification ledger entries appended.",
	})

	provSnapshotOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provenance_snapshot_operations_total",
		Help: "Snapshot checkpoints and recoveries by result.",
	}, []string{"op", "result"})

	provSnapshotDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provenance_snapshot_duration_seconds",
		Help:    "Snapshot operation duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		provRequestsTotal.WithLabelValues(method, path, status).Inc()
		provRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordProductRegistered increments the product gauge.
func RecordProductRegistered() {
	provProductsTotal.Inc()
}

// SetProductsGauge sets the product gauge, e.g. after a restore.
func SetProductsGauge(count float64) {
	provProductsTotal.Set(count)
}

// RecordEventAppended records a supply-chain event append.
func RecordEventAppended() {
	provEventsTotal.Inc()
}

// RecordVerification records a verification outcome.
func RecordVerification(authentic bool) {
	if authentic {
		provVerificationsTotal.WithLabelValues("authentic").Inc()
	} else {
		provVerificationsTotal.WithLabelValues("suspect").Inc()
	}
}

// RecordLedgerAppend records a verification ledger entry append.
func RecordLedgerAppend() {
	provLedgerEntriesTotal.Inc()
}

// RecordSnapshot records a snapshot operation. Its signature matches
// persistence.MetricsRecordFunc.
func RecordSnapshot(op string, success bool, d time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	provSnapshotOpsTotal.WithLabelValues(op, result).Inc()
	provSnapshotDuration.WithLabelValues(op).Observe(d.Seconds())
}
