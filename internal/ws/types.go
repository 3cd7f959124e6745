package ws

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady   = "ready"
	MsgPong    = "pong"
	MsgBalance = "balance"
)

var (
	connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "balance_feed_connections",
		Help: "Open balance feed websocket connections",
	})
	droppedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "balance_feed_dropped_events_total",
		Help: "Balance events dropped because a client's buffer was full",
	})
)

func init() {
	prometheus.MustRegister(connectedClients)
	prometheus.MustRegister(droppedEvents)
}
