package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gateway_ratelimit_decisions_total",
	Help: "Rate limit decisions by outcome and backend region.",
}, []string{"outcome", "region"})

// ObserveDecision records one gate decision for metrics.
func ObserveDecision(allowed bool, region string) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	decisions.WithLabelValues(outcome, region).Inc()
}
