package workspace

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/query"
	"github.com/Aleph-Alpha/workbench/v1/tabs"
	"github.com/Aleph-Alpha/workbench/v1/vault"
)

// ErrNoActiveTab is returned when the workspace has not been started.
var ErrNoActiveTab = errors.New("workspace: no active tab")

// Workspace is the set of open tabs together with the saved connections
// they can reach.
type Workspace struct {
	cfg   Config
	tabs  *tabs.Synchronizer
	vault vault.Vault
	log   logger.Logger

	app *fx.App
}

// New builds a workspace from explicit dependencies. The connection and
// query sections of cfg override those of deps.
func New(cfg Config, deps tabs.Dependencies) *Workspace {
	deps.Connection = cfg.Connection
	deps.Query = cfg.Query
	return &Workspace{
		cfg:   cfg,
		tabs:  tabs.NewSynchronizer(cfg.Tabs, deps),
		vault: deps.Vault,
		log:   deps.Logger,
	}
}

// Open runs the workspace fx graph for cfg and starts it. Close stops it.
func Open(ctx context.Context, cfg Config, opts ...fx.Option) (*Workspace, error) {
	var w *Workspace
	app := fx.New(
		Options(cfg),
		fx.Options(opts...),
		fx.Populate(&w),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("workspace: building: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("workspace: starting: %w", err)
	}
	w.app = app
	return w, nil
}

func (w *Workspace) Tabs() *tabs.Synchronizer {
	return w.tabs
}

// Vault is nil when the workspace was built without one.
func (w *Workspace) Vault() vault.Vault {
	return w.vault
}

func (w *Workspace) Config() Config {
	return w.cfg
}

// Start restores the persisted tabs and starts the checkpoint loop.
func (w *Workspace) Start(ctx context.Context) error {
	restored, err := w.tabs.Restore(ctx)
	if err != nil {
		return err
	}
	w.tabs.Start()
	w.log.Info("workspace started", nil, map[string]interface{}{"tabs": len(restored)})
	return nil
}

// Stop tears every tab down and flushes the checkpoint.
func (w *Workspace) Stop(ctx context.Context) error {
	return w.tabs.Shutdown(ctx)
}

// Close stops a workspace returned by Open, or calls Stop otherwise.
func (w *Workspace) Close(ctx context.Context) error {
	if w.app != nil {
		return w.app.Stop(ctx)
	}
	return w.Stop(ctx)
}

// Connect connects the active tab to the saved connection id.
func (w *Workspace) Connect(ctx context.Context, id string) (tabs.TabContext, error) {
	cc, err := w.cfg.LookupConnection(id)
	if err != nil {
		return tabs.TabContext{}, err
	}
	active, ok := w.tabs.Active()
	if !ok {
		return tabs.TabContext{}, ErrNoActiveTab
	}
	if err := w.tabs.Connect(ctx, active.ID, cc); err != nil {
		return tabs.TabContext{}, err
	}
	return w.tabs.Tab(active.ID)
}

// Run executes req in the active tab.
func (w *Workspace) Run(ctx context.Context, req query.Request) (query.Outcome, error) {
	active, ok := w.tabs.Active()
	if !ok {
		return query.Outcome{}, ErrNoActiveTab
	}
	return w.tabs.RunQuery(ctx, active.ID, req)
}

// TestConnection probes the saved connection id without changing the state
// of any tab.
func (w *Workspace) TestConnection(ctx context.Context, id string) error {
	cc, err := w.cfg.LookupConnection(id)
	if err != nil {
		return err
	}
	active, ok := w.tabs.Active()
	if !ok {
		return ErrNoActiveTab
	}
	return w.tabs.TestConnection(ctx, active.ID, cc)
}
