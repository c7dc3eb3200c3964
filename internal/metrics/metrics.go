// Package metrics provides Prometheus instrumentation for the podhouse
// gateway: gauges for live connections, counters for realtime event
// throughput, and a histogram for message persistence latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "podhouse_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// MessagesTotal counts persisted chat messages, labeled by
	// target: "room" or "chat".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "podhouse_messages_total",
		Help: "Total number of chat messages persisted",
	}, []string{"target"})

	// EventsRejectedTotal counts realtime commands rejected before any state
	// change, labeled by reason: "not_found", "unauthorized", "validation",
	// "internal".
	EventsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "podhouse_events_rejected_total",
		Help: "Total number of realtime commands rejected",
	}, []string{"reason"})

	// PersistLatency records message persistence latency in seconds.
	PersistLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "podhouse_persist_latency_seconds",
		Help:    "Message persistence latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// NotificationsTotal counts targeted events published through per-user
	// notification channels.
	NotificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "podhouse_notifications_total",
		Help: "Total number of targeted notification events published",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		MessagesTotal,
		EventsRejectedTotal,
		PersistLatency,
		NotificationsTotal,
	)
}
