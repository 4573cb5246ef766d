package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay counters and gauges, registered on the default registry.
var (
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_live_connections",
		Help: "Websocket connections currently registered.",
	})
	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_online_users",
		Help: "Usernames with at least one live connection.",
	})
	MessagesRouted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_routed_total",
		Help: "Chat messages fanned out to room members.",
	})
	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_dropped_total",
		Help: "Outbound frames dropped because a recipient queue was full.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
