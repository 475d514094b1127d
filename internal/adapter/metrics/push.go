package metrics

import "github.com/prometheus/client_golang/prometheus"

// PushMetrics tracks the upstream push channel.
type PushMetrics struct {
	EventsReceived *prometheus.CounterVec
	DecodeErrors   prometheus.Counter
	Reconnects     prometheus.Counter
	Connected      prometheus.Gauge
	Subscribers    prometheus.Gauge
}

func NewPushMetrics(reg prometheus.Registerer) *PushMetrics {
	m := &PushMetrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "events_received_total",
			Help:      "Push events received from the bot, by topic.",
		}, []string{"topic"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "decode_errors_total",
			Help:      "Push frames or payloads that could not be decoded.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "reconnects_total",
			Help:      "Number of times the push channel was redialed.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "connected",
			Help:      "1 while the push channel is connected.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "subscribers",
			Help:      "Number of page controllers subscribed to push events.",
		}),
	}

	reg.MustRegister(m.EventsReceived, m.DecodeErrors, m.Reconnects, m.Connected, m.Subscribers)
	return m
}
