package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/workbench/v1/observability"
)

func TestNewMetrics_NoAddressNoServer(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "test"})
	assert.Nil(t, m.Server)
	assert.NotNil(t, m.Registry)

	m = NewMetrics(Config{Address: ":0"})
	require.NotNil(t, m.Server)
	assert.Equal(t, ":0", m.Server.Addr)
}

func TestObserveOperation(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "test"})

	m.ObserveOperation(observability.OperationContext{
		Component: "query",
		Operation: "execute",
		Duration:  20 * time.Millisecond,
		Size:      10,
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "query",
		Operation: "execute",
		Error:     errors.New("deadline"),
		Status:    "timeout",
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "query",
		Operation: "execute",
		Error:     errors.New("syntax"),
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("query", "execute", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("query", "execute", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("query", "execute", "error")))
}

func TestGauges(t *testing.T) {
	m := NewMetrics(Config{})
	m.SetOpenTabs(3)
	m.SetLiveConnections(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.openTabs))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.liveConnections))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation(observability.OperationContext{})
		m.SetOpenTabs(1)
		m.SetLiveConnections(1)
	})
}
