package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Verdicts counts moderation results by operation and status
	Verdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_verdicts_total",
			Help: "Total number of moderation verdicts by operation and status",
		},
		[]string{"operation", "status"},
	)

	// FlagsRaised counts triggered policy flags
	FlagsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_flags_total",
			Help: "Total number of policy flags raised by flag",
		},
		[]string{"flag"},
	)

	// PIIDetections counts PII hits by type and channel
	PIIDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_pii_detections_total",
			Help: "Total number of PII detections by type and channel",
		},
		[]string{"type", "channel"},
	)

	// OCRFailures counts recognizer errors and timeouts
	OCRFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_ocr_failures_total",
			Help: "Total number of OCR calls that failed or timed out",
		},
	)

	// Latency tracks how long each moderation operation takes
	Latency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moderation_latency_seconds",
			Help:    "Latency of moderation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Redactions counts regions painted over by the redaction engine
	Redactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_redacted_regions_total",
			Help: "Total number of image regions redacted",
		},
	)
)
