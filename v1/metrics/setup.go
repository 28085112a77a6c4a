package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "workbench"

// Metrics owns an isolated Prometheus registry for one workbench process and,
// when an address is configured, the HTTP server exposing it.
type Metrics struct {
	// Server is nil when Config.Address is empty.
	Server *http.Server

	// Registry is private to this instance so tests can create many.
	Registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationRows     *prometheus.HistogramVec
	liveConnections   prometheus.Gauge
	openTabs          prometheus.Gauge
}

// NewMetrics creates the registry, registers the workbench metrics under a
// constant service label and prepares the scrape server.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "workbench"})
//	mgr := connection.NewManager(cfg, drv, vault, log, tabID).WithObserver(m)
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = namespace
	}
	wrappedRegistry := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": serviceName},
		registry,
	)

	m := &Metrics{
		Registry: registry,
	}

	m.operationsTotal = createCounterVec("operations_total",
		"Total number of connection, query and row operations by outcome",
		[]string{"component", "operation", "status"})
	m.operationDuration = createHistogramVec("operation_duration_seconds",
		"Duration of connection, query and row operations in seconds",
		[]string{"component", "operation"}, prometheus.DefBuckets)
	m.operationRows = createHistogramVec("operation_rows",
		"Rows returned or affected per operation",
		[]string{"component", "operation"}, prometheus.ExponentialBuckets(1, 4, 8))
	m.liveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_connections",
		Help:      "Number of tabs currently holding a live database connection",
	})
	m.openTabs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_tabs",
		Help:      "Number of tabs currently open in the workspace",
	})

	wrappedRegistry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.operationRows,
		m.liveConnections,
		m.openTabs,
	)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	if cfg.Address != "" {
		m.Server = &http.Server{
			Addr:    cfg.Address,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
	}

	return m
}
