package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for browser WebSocket connections.
type WebSocketMetrics struct {
	ActiveConnections prometheus.Gauge
	RejectedTotal     prometheus.Counter
	PatchesSent       prometheus.Counter
	ActionsReceived   *prometheus.CounterVec
	ActionsThrottled  prometheus.Counter
	SlowClientsDrops  prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of open dashboard pages.",
		}),
		RejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_total",
			Help:      "Connections refused because the connection limit was reached.",
		}),
		PatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "patches_sent_total",
			Help:      "Total number of view patches written to browsers.",
		}),
		ActionsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "actions_received_total",
			Help:      "Browser actions received, by action.",
		}, []string{"action"}),
		ActionsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "actions_throttled_total",
			Help:      "Browser actions dropped by the per-connection rate limiter.",
		}),
		SlowClientsDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "slow_client_drops_total",
			Help:      "Patch batches dropped because a browser was not reading.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.RejectedTotal, m.PatchesSent, m.ActionsReceived, m.ActionsThrottled, m.SlowClientsDrops)
	return m
}
