// Package logger provides structured logging for the workbench session core.
//
// The package wraps Uber's zap logger behind a small interface so that the
// connection, query and tab packages can log without depending on zap
// directly:
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:       logger.Debug,
//		ServiceName: "workbench",
//	})
//	log.Info("tab created", nil, map[string]interface{}{
//		"tab_id": id,
//	})
//
// Every logging method takes a message, an optional error and any number of
// field maps. Later maps override keys of earlier ones.
//
// # Tracing Integration
//
// When EnableTracing is set, the *WithContext methods extract the OpenTelemetry
// trace and span IDs from the context and attach them as trace_id and span_id.
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule,
//		fx.Provide(func() logger.Config {
//			return logger.Config{Level: logger.Info, ServiceName: "workbench"}
//		}),
//	)
//
// FXModule provides both *LoggerClient and the Logger interface and flushes
// buffered entries on application stop.
//
// # Testing
//
// NewNop returns a client that discards everything, which is what the other
// packages use in their unit tests.
package logger
