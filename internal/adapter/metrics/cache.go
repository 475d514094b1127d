package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics holds Prometheus metrics for the shared radio catalog cache.
type CacheMetrics struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Evictions prometheus.Counter
}

// NewCacheMetrics creates and registers cache metrics on the given registry.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog_cache",
			Name:      "hits_total",
			Help:      "Radio catalog lookups served from memory.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog_cache",
			Name:      "misses_total",
			Help:      "Radio catalog lookups that went to the bot.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog_cache",
			Name:      "evictions_total",
			Help:      "Expired catalog entries removed by the eviction timer.",
		}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Evictions)
	return m
}
