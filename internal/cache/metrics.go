package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_cache_hits_total",
		Help: "Number of cache hits.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_cache_misses_total",
		Help: "Number of cache misses.",
	})

	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_cache_errors_total",
		Help: "Number of cache operation errors.",
	}, []string{"operation"})
)
