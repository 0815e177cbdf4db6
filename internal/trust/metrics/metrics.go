package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the trust service.
type Metrics struct {
	Mutations     *prometheus.CounterVec
	ProfileBuilds prometheus.Counter
	ScoreSnapshot *prometheus.GaugeVec
}

// New creates and registers the trust metrics.
func New() *Metrics {
	return &Metrics{
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgraph_trust_mutations_total",
			Help: "Trust-graph mutations by entity and operation",
		}, []string{"entity", "operation"}),
		ProfileBuilds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustgraph_trust_profile_builds_total",
			Help: "Trust profile aggregations served",
		}),
		ScoreSnapshot: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trustgraph_trust_score",
			Help: "Most recently computed trust score by source",
		}, []string{"source"}),
	}
}

// RecordMutation counts one committed mutation.
func (m *Metrics) RecordMutation(entity, operation string) {
	m.Mutations.WithLabelValues(entity, operation).Inc()
}

// RecordProfileBuild counts one trust-profile aggregation.
func (m *Metrics) RecordProfileBuild() {
	m.ProfileBuilds.Inc()
}

// RecordScore tracks the latest computed score for a source.
func (m *Metrics) RecordScore(source string, score int) {
	m.ScoreSnapshot.WithLabelValues(source).Set(float64(score))
}
