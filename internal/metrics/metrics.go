package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkItemsScheduled tracks work items created by campaign runs
	WorkItemsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_service_work_items_scheduled_total",
			Help: "Total number of work items scheduled",
		},
		[]string{"campaign_id", "mode"},
	)

	// WorkItemsCancelled tracks work items voided by campaign pause/delete
	WorkItemsCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_service_work_items_cancelled_total",
			Help: "Total number of pending work items cancelled",
		},
		[]string{"campaign_id"},
	)

	// IdentitiesPaused tracks identities paused by the error threshold
	IdentitiesPaused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_service_identities_paused_total",
			Help: "Total number of sending identities paused after consecutive errors",
		},
	)

	// DoubleBookings tracks deliberate double-bookings taken under policy
	DoubleBookings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_service_double_bookings_total",
			Help: "Total number of deliberate double-bookings",
		},
	)

	// ProbeExhausted tracks booking probes that ran out of attempts
	ProbeExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_service_probe_exhausted_total",
			Help: "Total number of slot probes that exhausted their budget",
		},
	)

	// SweepDuration tracks campaign sweep duration
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outreach_service_sweep_duration_seconds",
			Help:    "Campaign sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DispatchQueueSize tracks the in-memory dispatch queue depth
	DispatchQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outreach_service_dispatch_queue_size",
			Help: "Current number of claimed work items awaiting publish",
		},
	)

	// RateLimitExceeded tracks validation surface rate limit rejections
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_service_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"account_id"},
	)
)
