package metrics

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/workbench/v1/logger"
)

// FXModule provides *Metrics and the Collector interface and manages the
// scrape server lifecycle.
//
// A metrics.Config and a logger.Logger must be available in the container.
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		ProvideCollector,
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// ProvideCollector exposes *Metrics as the Collector interface.
func ProvideCollector(m *Metrics) Collector {
	return m
}

// RegisterMetricsLifecycle starts the scrape server on application start and
// shuts it down on stop. Nothing is started when no address is configured.
func RegisterMetricsLifecycle(lc fx.Lifecycle, m *Metrics, log logger.Logger) {
	if m.Server == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("Starting Prometheus metrics server", nil, map[string]interface{}{
					"address": m.Server.Addr,
				})
				if err := m.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Error starting Prometheus metrics server", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Prometheus metrics server", nil, nil)
			return m.Server.Shutdown(ctx)
		},
	})
}
