// Package metrics exposes the process-wide prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchparty_active_rooms",
		Help: "Number of live rooms.",
	})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchparty_active_connections",
		Help: "Number of open WebSocket sessions.",
	})

	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchparty_events_broadcast_total",
		Help: "Events fanned out to room members, by event type.",
	}, []string{"type"})

	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_chat_messages_total",
		Help: "Chat messages appended to room histories.",
	})
)
