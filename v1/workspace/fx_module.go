package workspace

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/mariadb"
	"github.com/Aleph-Alpha/workbench/v1/metrics"
	"github.com/Aleph-Alpha/workbench/v1/postgres"
	"github.com/Aleph-Alpha/workbench/v1/store"
	"github.com/Aleph-Alpha/workbench/v1/tabs"
	"github.com/Aleph-Alpha/workbench/v1/tracer"
	"github.com/Aleph-Alpha/workbench/v1/vault"
)

// FXModule wires the components of a workspace and registers its
// lifecycle: tabs are restored on start and torn down on stop.
//
// The workspace Config and the per-component configs must be available in
// the container; Options supplies them.
var FXModule = fx.Module("workspace",
	logger.FXModule,
	metrics.FXModule,
	tracer.FXModule,
	vault.FXModule,
	postgres.FXModule,
	mariadb.FXModule,
	fx.Provide(
		ProvideRegistry,
		ProvideTabStore,
		ProvideWorkspace,
		ProvideSynchronizer,
	),
	fx.Invoke(RegisterWorkspaceLifecycle),
)

// Options supplies cfg to the container and includes FXModule.
func Options(cfg Config) fx.Option {
	return fx.Options(
		fx.Supply(
			cfg,
			cfg.Logger,
			cfg.Metrics,
			cfg.Tracer,
			cfg.Vault,
			cfg.Postgres,
			cfg.MariaDB,
		),
		FXModule,
	)
}

// RegistryParams collects the drivers contributed to "database.drivers".
type RegistryParams struct {
	fx.In

	Config  Config
	Drivers []database.Driver `group:"database.drivers"`
}

// ProvideRegistry registers every contributed driver, with the configured
// default driver first so it serves contexts that leave Driver empty.
func ProvideRegistry(p RegistryParams) *database.Registry {
	def := p.Config.defaultDriver()
	rank := func(d database.Driver) int {
		if d.Name() == def {
			return 0
		}
		return 1
	}
	drivers := slices.Clone(p.Drivers)
	slices.SortStableFunc(drivers, func(a, b database.Driver) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return strings.Compare(a.Name(), b.Name())
	})
	return database.NewRegistry(drivers...)
}

// ProvideTabStore opens the configured record store for tab checkpoints.
func ProvideTabStore(lc fx.Lifecycle, cfg Config, log logger.Logger) (store.RecordStore[tabs.TabRecord], error) {
	return store.Provide[tabs.TabRecord](lc, cfg.Store, cfg.tabsPath(), log)
}

// WorkspaceParams are the dependencies of ProvideWorkspace.
type WorkspaceParams struct {
	fx.In

	Config   Config
	Registry *database.Registry
	Store    store.RecordStore[tabs.TabRecord]
	Logger   logger.Logger
	Vault    vault.Vault
	Metrics  metrics.Collector
	Tracer   *tracer.Tracer
}

func ProvideWorkspace(p WorkspaceParams) *Workspace {
	return New(p.Config, tabs.Dependencies{
		Driver:  p.Registry,
		Store:   p.Store,
		Logger:  p.Logger,
		Vault:   p.Vault,
		Metrics: p.Metrics,
		Tracer:  p.Tracer,
	})
}

// ProvideSynchronizer exposes the workspace's tab synchronizer.
func ProvideSynchronizer(w *Workspace) *tabs.Synchronizer {
	return w.Tabs()
}

// RegisterWorkspaceLifecycle restores tabs on start and shuts them down on
// stop. The record store's hook was appended earlier, so it closes after
// the final flush.
func RegisterWorkspaceLifecycle(lc fx.Lifecycle, w *Workspace, log logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return w.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down workspace", nil, nil)
			return w.Stop(ctx)
		},
	})
}
