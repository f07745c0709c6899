package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChangeEventsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_received_total",
		Help: "Total number of change events received from the feed",
	}, []string{"table", "kind"})

	ChangeEventsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_applied_total",
		Help: "Total number of change events applied as real transitions",
	}, []string{"table"})

	ChangeEventsNoopTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "change_events_noop_total",
		Help: "Total number of redelivered or reasserted events classified as no-ops",
	})

	ChangeEventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_dropped_total",
		Help: "Total number of change events dropped before apply",
	}, []string{"reason"})

	NotificationsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_emitted_total",
		Help: "Total number of user-facing notifications emitted",
	}, []string{"severity"})

	SnapshotLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_loads_total",
		Help: "Total number of snapshot loads",
	}, []string{"view"})

	SnapshotLoadFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_load_failures_total",
		Help: "Total number of snapshot loads that fell back to empty data",
	}, []string{"view"})

	FallbackActivationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fallback_activations_total",
		Help: "Total number of scopes that started on the fallback dataset",
	})

	ActiveScopes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_scopes",
		Help: "Number of currently mounted reconciliation scopes",
	})

	LiveChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_channels",
		Help: "Number of currently connected push channels",
	})

	EventApplyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "event_apply_latency_seconds",
		Help:    "Latency of applying a single change event to a scope",
		Buckets: prometheus.DefBuckets,
	})

	SnapshotLoadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapshot_load_latency_seconds",
		Help:    "Latency of initial snapshot loads",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
