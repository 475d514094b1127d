package metrics

import (
	"log/slog"
	"net/http"

	"github.com/OccupiedNine220/radiovecher/internal/platform/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "radiovecher"

// NewRegistry creates the dashboard registry: Go runtime and process
// collectors plus a constant radiovecher_build_info series labelled with the
// running version, so dashboards can tell deployments apart.
func NewRegistry() *prometheus.Registry {
	info := version.Get()
	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information of the running dashboard.",
		ConstLabels: prometheus.Labels{
			"version":    info.Version,
			"commit":     info.Commit,
			"go_version": info.GoVersion,
		},
	})
	buildInfo.Set(1)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
	)
	return reg
}

// Handler serves reg. Collection errors are logged and the remaining
// metrics are still served.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      slogErrorLogger{},
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      reg,
	})
}

// slogErrorLogger adapts slog to promhttp.Logger.
type slogErrorLogger struct{}

func (slogErrorLogger) Println(v ...any) {
	slog.Error("Metrics collection failed", "details", v)
}
