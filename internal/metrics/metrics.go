// Package metrics holds the Prometheus collectors shared by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttendanceRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_recorded_total",
		Help: "Attendance rows written, by recording mode.",
	}, []string{"mode"})

	AttendanceRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_rejected_total",
		Help: "Recording calls rejected before or during the write, by reason.",
	}, []string{"reason"})

	BatchDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_batch_dropped_total",
		Help: "Batch candidates silently dropped, by reason.",
	}, []string{"reason"})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_batch_size",
		Help:    "Number of candidates submitted per batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	DirectoryCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_cache_lookups_total",
		Help: "Student directory cache lookups, by result.",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter.",
	})
)

// Recording modes and drop reasons used as label values.
const (
	ModeSingle = "single"
	ModeBatch  = "batch"

	DropDeadline       = "deadline"
	DropUnparseable    = "unparseable"
	DropExisting       = "existing"
	DropInBatch        = "in_batch"
	DropInsertConflict = "insert_conflict"
)
