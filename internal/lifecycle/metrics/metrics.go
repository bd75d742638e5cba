package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for lifecycle operations.
type Metrics struct {
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	TreeQueryNodes   prometheus.Histogram
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which lets tests construct fresh instances without colliding on the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refledger_lifecycle_operations_total",
			Help: "Lifecycle operations by name and outcome",
		}, []string{"operation", "outcome"}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "refledger_lifecycle_operation_duration_seconds",
			Help:    "Duration of lifecycle operations including external rail calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		TreeQueryNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refledger_tree_query_nodes",
			Help:    "Nodes enumerated per referral tree query",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

// ObserveOperation records one completed operation.
func (m *Metrics) ObserveOperation(operation, outcome string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(operation, outcome).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObserveTreeQuery records the node count of a tree enumeration.
func (m *Metrics) ObserveTreeQuery(nodes int) {
	if m != nil {
		m.TreeQueryNodes.Observe(float64(nodes))
	}
}
