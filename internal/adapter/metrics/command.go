package metrics

import "github.com/prometheus/client_golang/prometheus"

// CommandMetrics tracks user actions dispatched by dashboard controllers.
type CommandMetrics struct {
	CommandsTotal  *prometheus.CounterVec
	ReloadsTotal   *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	ToastsShown    *prometheus.CounterVec
}

func NewCommandMetrics(reg prometheus.Registerer) *CommandMetrics {
	m := &CommandMetrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "commands_total",
			Help:      "Total dashboard commands, by action and outcome.",
		}, []string{"action", "outcome"}),
		ReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "reloads_total",
			Help:      "Server-scoped state reloads, by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "active_sessions",
			Help:      "Number of running page controllers.",
		}),
		ToastsShown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "toasts_shown_total",
			Help:      "Notifications shown, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.CommandsTotal, m.ReloadsTotal, m.ActiveSessions, m.ToastsShown)
	return m
}
