// Package metrics provides Prometheus metrics for secwatch. All metrics use the
// "secwatch" namespace and are registered with the default registry via promauto,
// so they are served by the /metrics handler on the metrics port.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "secwatch"

var (
	// ReportsTotal counts classified reports by kind and outcome.
	// kind: alert | csp | suspicious | identity; action: LOGGED | IGNORED | MONITOR
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "total",
			Help:      "Total number of classified security reports by kind, severity and action.",
		},
		[]string{"kind", "severity", "action"},
	)

	// ReportFailuresTotal counts reports that could not be persisted.
	ReportFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "failures_total",
			Help:      "Total number of security reports rejected or not persisted, by kind and reason.",
		},
		[]string{"kind", "reason"},
	)

	EscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "escalations_total",
			Help:      "Total number of suspicious-activity escalations.",
		},
	)

	NotificationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "failures_total",
			Help:      "Total number of alert notifications that failed to send.",
		},
	)

	// FeedReadsTotal counts admin feed reads by feed and status.
	// feed: events | alerts | metrics; status: live | empty | unavailable
	FeedReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reads_total",
			Help:      "Total number of admin feed reads by feed and status.",
		},
		[]string{"feed", "status"},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of feed cache hits.",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of feed cache misses.",
		},
	)

	// AlertActionsTotal counts acknowledge/resolve actions by action and outcome.
	// outcome: success | noop | not_found | conflict | failure
	AlertActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "actions_total",
			Help:      "Total number of alert lifecycle actions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
