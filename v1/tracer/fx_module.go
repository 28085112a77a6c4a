package tracer

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/workbench/v1/logger"
)

// FXModule provides *Tracer and flushes it on shutdown.
//
// A tracer.Config and a logger.Logger must be available in the container.
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClient,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// RegisterTracerLifecycle shuts the tracer provider down when the
// application stops so buffered spans reach the exporter.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer, log logger.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down tracer", nil, nil)
			if tracer == nil || tracer.tracer == nil {
				log.Info("tracer is nil, skipping shutdown", nil, nil)
				return nil
			}
			return tracer.Shutdown(ctx)
		},
	})
}
