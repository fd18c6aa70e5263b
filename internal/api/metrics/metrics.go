// Package metrics defines and registers all custom Prometheus metrics for the
// boosting marketplace API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "boosting"

// ── Order event metrics ───────────────────────────────────────────────────────

// OrderTransitionsTotal counts committed order transitions.
// Labels:
//   - transition: the transition kind (e.g. "claim", "complete")
//   - to: the resulting order status (e.g. "InProgress")
var OrderTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Total number of committed order transitions.",
	},
	[]string{"transition", "to"},
)

// OrderEventErrorsTotal counts order events whose handling failed.
// Label:
//   - reason: the stable error code of the failure
var OrderEventErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_event_errors_total",
		Help:      "Total number of order events that failed processing.",
	},
	[]string{"reason"},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of order events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// EventProcessingDuration measures how long a single order event takes to handle.
// Label:
//   - transition: the transition kind, or "error" on failure
var EventProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_processing_duration_seconds",
		Help:      "Duration of order event handling from dequeue to broadcast.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"transition"},
)

// ── Wallet metrics ────────────────────────────────────────────────────────────

// WalletCreditedTotal sums the amounts credited to booster wallets.
// Label:
//   - source: "completion" or "admin"
var WalletCreditedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_credited_total",
		Help:      "Total amount credited to booster wallets.",
	},
	[]string{"source"},
)

// WalletAdjustmentsTotal counts administrative wallet adjustments.
// Label:
//   - direction: "credit" or "debit"
var WalletAdjustmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_adjustments_total",
		Help:      "Total number of administrative wallet adjustments.",
	},
	[]string{"direction"},
)

// ── Chat metrics ──────────────────────────────────────────────────────────────

// ChatFramesTotal counts frames fanned out to room members.
// Label:
//   - event: outbound frame event (e.g. "receiveMessage", "orderStatus")
var ChatFramesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_frames_total",
		Help:      "Total number of frames queued for room members.",
	},
	[]string{"event"},
)

// ChatDedupTotal counts message nonce lookups.
// Label:
//   - result: "hit" (resend suppressed) or "miss"
var ChatDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_dedup_total",
		Help:      "Total number of chat nonce lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// RealtimeConnections is the number of open websocket connections.
var RealtimeConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_connections",
		Help:      "Current number of open websocket connections.",
	},
)

// RealtimeDroppedTotal counts connections closed because their send buffer was full.
var RealtimeDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_dropped_total",
		Help:      "Total number of websocket connections dropped as slow consumers.",
	},
)
