package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes
const (
	resultPublished = "published"
	resultFailed    = "failed"
	resultDropped   = "dropped"
)

var (
	// EventsTotal counts notification events by type and outcome.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notify_events_total",
			Help: "Notification events by type and delivery outcome",
		},
		[]string{"type", "result"},
	)

	// QueueDepth tracks batches waiting for a dispatcher worker.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_notify_queue_depth",
			Help: "Notification batches waiting in the dispatcher queue",
		},
	)

	// RelayedTotal counts events handed to live websocket connections.
	RelayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_notify_relayed_total",
			Help: "Notification events written to live connections",
		},
	)
)
