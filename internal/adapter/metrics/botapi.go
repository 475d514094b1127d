package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by bot API and command metrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// BotAPIMetrics tracks REST calls made to the bot backend.
type BotAPIMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

func NewBotAPIMetrics(reg prometheus.Registerer) *BotAPIMetrics {
	m := &BotAPIMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "botapi",
			Name:      "request_duration_seconds",
			Help:      "Duration of bot API requests in seconds, by endpoint.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "botapi",
			Name:      "requests_total",
			Help:      "Total bot API requests, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal)
	return m
}
