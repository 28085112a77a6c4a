package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aleph-Alpha/workbench/v1/observability"
)

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(op observability.OperationContext) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op.Component, op.Operation, op.StatusLabel()).Inc()
	m.operationDuration.WithLabelValues(op.Component, op.Operation).Observe(op.Duration.Seconds())
	if op.Size > 0 {
		m.operationRows.WithLabelValues(op.Component, op.Operation).Observe(float64(op.Size))
	}
}

// SetLiveConnections sets the live connection gauge.
func (m *Metrics) SetLiveConnections(n int) {
	if m == nil {
		return
	}
	m.liveConnections.Set(float64(n))
}

// SetOpenTabs sets the open tab gauge.
func (m *Metrics) SetOpenTabs(n int) {
	if m == nil {
		return
	}
	m.openTabs.Set(float64(n))
}

func createCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func createHistogramVec(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}
