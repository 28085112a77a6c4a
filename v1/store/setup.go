package store

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/workbench/v1/logger"
)

// New builds the configured backend for T. For the postgres backend the
// returned close func releases the connection pool; for the other backends
// it is a no-op.
//
// fx cannot provide generic constructors directly, so the workspace module
// wraps New for its record type:
//
//	fx.Provide(func(lc fx.Lifecycle, cfg store.Config, log logger.Logger) (store.RecordStore[tabs.TabRecord], error) {
//	    return store.Provide[tabs.TabRecord](lc, cfg, "tabs.json", log)
//	})
func New[T Record](ctx context.Context, cfg Config, defaultPath string, log logger.Logger) (RecordStore[T], func() error, error) {
	switch cfg.Backend {
	case "", BackendFile:
		path := cfg.Path
		if path == "" {
			path = defaultPath
		}
		return NewFileStore[T](path, log), func() error { return nil }, nil

	case BackendPostgres:
		db, err := OpenGorm(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewGormStore[T](ctx, db, "id", log)
		if err != nil {
			_ = CloseGorm(db)
			return nil, nil, err
		}
		return s, func() error { return CloseGorm(db) }, nil

	case BackendObject:
		client, err := OpenObjectClient(ctx, cfg.Object)
		if err != nil {
			return nil, nil, err
		}
		key := cfg.Object.Key
		if key == "" {
			key = filepath.Base(defaultPath)
		}
		return NewObjectStore[T](client, cfg.Object.Bucket, key, log), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q (must be 'file', 'postgres' or 's3')", ErrUnsupportedBackend, cfg.Backend)
	}
}

// Provide is New with the close func bound to the fx lifecycle. Stop hooks
// run in reverse order, so consumers appended later still flush before the
// pool is released.
func Provide[T Record](lc fx.Lifecycle, cfg Config, defaultPath string, log logger.Logger) (RecordStore[T], error) {
	s, closeFn, err := New[T](context.Background(), cfg, defaultPath, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing record store", nil, map[string]interface{}{"backend": backendName(cfg)})
			return closeFn()
		},
	})
	return s, nil
}

func backendName(cfg Config) string {
	if cfg.Backend == "" {
		return BackendFile
	}
	return cfg.Backend
}
