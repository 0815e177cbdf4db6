package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the quota and tier service.
type Metrics struct {
	QuotaDecisions  *prometheus.CounterVec
	EndpointDenials *prometheus.CounterVec
}

// New creates and registers the rate-limit metrics.
func New() *Metrics {
	return &Metrics{
		QuotaDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgraph_quota_decisions_total",
			Help: "Quota admission decisions by tier and outcome",
		}, []string{"tier", "outcome"}),
		EndpointDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgraph_endpoint_denials_total",
			Help: "Requests denied by the tier endpoint allow-list",
		}, []string{"tier"}),
	}
}

// RecordDecision counts one quota decision.
func (m *Metrics) RecordDecision(tier string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.QuotaDecisions.WithLabelValues(tier, outcome).Inc()
}

// RecordEndpointDenial counts one allow-list denial.
func (m *Metrics) RecordEndpointDenial(tier string) {
	m.EndpointDenials.WithLabelValues(tier).Inc()
}
