package tabs

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Aleph-Alpha/workbench/v1/connection"
	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/metrics"
	"github.com/Aleph-Alpha/workbench/v1/mutation"
	"github.com/Aleph-Alpha/workbench/v1/pubsub"
	"github.com/Aleph-Alpha/workbench/v1/query"
	"github.com/Aleph-Alpha/workbench/v1/store"
	"github.com/Aleph-Alpha/workbench/v1/tracer"
	"github.com/Aleph-Alpha/workbench/v1/vault"
)

// Dependencies are the collaborators shared by all tabs.
type Dependencies struct {
	Driver database.Driver
	Store  store.RecordStore[TabRecord]
	Logger logger.Logger

	// Vault, Metrics and Tracer are optional.
	Vault   vault.Vault
	Metrics metrics.Collector
	Tracer  *tracer.Tracer

	Connection connection.Config
	Query      query.Config
}

// Tab bundles the in-memory state of one tab with its workers.
type Tab struct {
	ctx TabContext

	manager *connection.Manager
	engine  *query.Engine
	editor  *mutation.Editor

	pendingDeletion atomic.Bool
}

// Synchronizer owns the open tabs. It is safe for concurrent use.
type Synchronizer struct {
	cfg  Config
	deps Dependencies
	log  logger.Logger

	mu       sync.Mutex
	tabs     []*Tab
	activeID string
	shutDown bool

	// closing holds closed tabs until their connection is shut down.
	closing map[string]*Tab

	flushMu sync.Mutex
	events  *pubsub.Broker[Event]
	now     func() time.Time

	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// NewSynchronizer returns an empty synchronizer. Call Restore to load
// persisted tabs and Start to run the checkpoint loop.
func NewSynchronizer(cfg Config, deps Dependencies) *Synchronizer {
	cfg = cfg.withDefaults()
	return &Synchronizer{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Logger,
		events:  pubsub.NewBroker[Event](cfg.EventBuffer),
		now:     time.Now,
		closing: make(map[string]*Tab),
	}
}

// Subscribe returns a channel of tab events that is closed when ctx is done
// or the synchronizer shuts down.
func (s *Synchronizer) Subscribe(ctx context.Context) <-chan Event {
	return s.events.Subscribe(ctx)
}

// Tabs returns copies of the open tabs in display order.
func (s *Synchronizer) Tabs() []TabContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TabContext, len(s.tabs))
	for i, t := range s.tabs {
		out[i] = t.ctx
	}
	slices.SortFunc(out, func(a, b TabContext) int { return a.Order - b.Order })
	return out
}

// Tab returns a copy of the tab with id.
func (s *Synchronizer) Tab(id string) (TabContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.findLocked(id)
	if err != nil {
		return TabContext{}, err
	}
	return t.ctx, nil
}

// Active returns the active tab.
func (s *Synchronizer) Active() (TabContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tabs {
		if t.ctx.ID == s.activeID {
			return t.ctx, true
		}
	}
	return TabContext{}, false
}

// CreateTab opens a new inactive tab. With inheritFrom set, the connection
// and database of that tab are copied.
func (s *Synchronizer) CreateTab(ctx context.Context, inheritFrom *string) (TabContext, error) {
	s.mu.Lock()
	if s.shutDown {
		s.mu.Unlock()
		return TabContext{}, ErrShutDown
	}
	var source *Tab
	if inheritFrom != nil {
		src, err := s.findLocked(*inheritFrom)
		if err != nil {
			s.mu.Unlock()
			return TabContext{}, err
		}
		source = src
	}
	t := s.newTabLocked(source)
	created := t.ctx
	s.mu.Unlock()

	s.publish(Event{Type: EventCreated, Tab: created})
	s.log.Info("tab created", nil, map[string]interface{}{"tab_id": created.ID, "order": created.Order})
	return created, s.Flush(ctx)
}

// SwitchToTab makes id the active tab.
func (s *Synchronizer) SwitchToTab(ctx context.Context, id string) (TabContext, error) {
	s.mu.Lock()
	t, err := s.findLocked(id)
	if err != nil {
		s.mu.Unlock()
		return TabContext{}, err
	}
	events := s.activateLocked(t)
	active := t.ctx
	s.mu.Unlock()

	s.publish(events...)
	return active, s.Flush(ctx)
}

// UpdateTab applies u to the tab. The change is flushed by the checkpoint
// loop.
func (s *Synchronizer) UpdateTab(id string, u Update) (TabContext, error) {
	s.mu.Lock()
	t, err := s.findLocked(id)
	if err != nil {
		s.mu.Unlock()
		return TabContext{}, err
	}
	if u.QueryText != nil {
		t.ctx.QueryText = *u.QueryText
	}
	if u.DatabaseName != nil {
		t.ctx.DatabaseName = *u.DatabaseName
	}
	switch {
	case u.ClearSelection:
		t.ctx.SelectedTable = nil
	case u.SelectedTable != nil:
		ref := *u.SelectedTable
		t.ctx.SelectedTable = &ref
	}
	updated := s.touchLocked(t)
	s.mu.Unlock()

	s.publish(Event{Type: EventUpdated, Tab: updated})
	return updated, nil
}

// CloseTab closes id. The tab is marked pending deletion first so work in
// flight leaves it alone; its query is cancelled and its connection shut
// down. When the active tab is closed the most recently used remaining tab
// is activated, or a fresh tab is created when none remain.
func (s *Synchronizer) CloseTab(ctx context.Context, id string) error {
	s.mu.Lock()
	t, err := s.findLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	t.pendingDeletion.Store(true)
	t.ctx.PendingDeletion = true
	t.engine.Cancel()

	s.tabs = slices.DeleteFunc(s.tabs, func(o *Tab) bool { return o == t })
	s.closing[id] = t
	_ = s.deps.Store.Delete(ctx, id)
	closed := t.ctx

	events := []Event{{Type: EventDeleted, Tab: closed}}
	if s.activeID == id {
		s.activeID = ""
		next := s.mostRecentLocked()
		if next == nil && !s.shutDown {
			next = s.newTabLocked(nil)
			events = append(events, Event{Type: EventCreated, Tab: next.ctx})
		}
		if next != nil {
			events = append(events, s.activateLocked(next)...)
		}
	}
	s.mu.Unlock()

	err = t.manager.Shutdown(ctx)
	s.mu.Lock()
	delete(s.closing, id)
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("closing tab connection failed", err, map[string]interface{}{"tab_id": id})
	}
	s.reportGauges()
	s.publish(events...)
	s.log.Info("tab closed", nil, map[string]interface{}{"tab_id": id})

	if ferr := s.Flush(ctx); ferr != nil {
		return ferr
	}
	return err
}

// findLocked resolves id among open tabs. A tab whose close is still
// shutting down its connection is refused with ErrTabPendingDeletion.
func (s *Synchronizer) findLocked(id string) (*Tab, error) {
	for _, t := range s.tabs {
		if t.ctx.ID == id {
			return t, nil
		}
	}
	if _, ok := s.closing[id]; ok {
		return nil, ErrTabPendingDeletion
	}
	return nil, ErrTabNotFound
}

// resolve returns the tab and its workers for an operation that will do
// I/O outside the lock.
func (s *Synchronizer) resolve(id string) (*Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutDown {
		return nil, ErrShutDown
	}
	return s.findLocked(id)
}

func (s *Synchronizer) newTabLocked(source *Tab) *Tab {
	now := s.now()
	order := 0
	for _, o := range s.tabs {
		order = max(order, o.ctx.Order+1)
	}
	tc := TabContext{
		ID:             uuid.NewString(),
		Order:          order,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if source != nil {
		tc.ConnectionContextID = source.ctx.ConnectionContextID
		tc.DatabaseName = source.ctx.DatabaseName
	}
	t := s.buildTab(tc)
	s.tabs = append(s.tabs, t)
	_ = s.deps.Store.Upsert(context.Background(), t.ctx.record())
	s.reportOpenTabsLocked()
	return t
}

func (s *Synchronizer) buildTab(tc TabContext) *Tab {
	t := &Tab{ctx: tc}
	t.manager = connection.NewManager(s.deps.Connection, s.deps.Driver, s.deps.Vault, s.log, tc.ID).
		WithTracer(s.deps.Tracer)
	t.engine = query.NewEngine(s.deps.Query, t.manager, s.log, tc.ID).
		WithTracer(s.deps.Tracer).
		WithLiveness(func() bool { return !t.pendingDeletion.Load() })
	t.editor = mutation.NewEditor(t.engine, s.log).WithTracer(s.deps.Tracer)
	if s.deps.Metrics != nil {
		t.manager.WithObserver(s.deps.Metrics)
		t.engine.WithObserver(s.deps.Metrics)
		t.editor.WithObserver(s.deps.Metrics)
	}
	return t
}

// activateLocked deactivates the current tab and activates t.
func (s *Synchronizer) activateLocked(t *Tab) []Event {
	var events []Event
	if s.activeID != "" && s.activeID != t.ctx.ID {
		for _, o := range s.tabs {
			if o.ctx.ID == s.activeID {
				o.ctx.IsActive = false
				_ = s.deps.Store.Upsert(context.Background(), o.ctx.record())
				events = append(events, Event{Type: EventUpdated, Tab: o.ctx})
			}
		}
	}
	s.activeID = t.ctx.ID
	t.ctx.IsActive = true
	t.ctx.LastAccessedAt = s.now()
	_ = s.deps.Store.Upsert(context.Background(), t.ctx.record())
	return append(events, Event{Type: EventActivated, Tab: t.ctx})
}

func (s *Synchronizer) mostRecentLocked() *Tab {
	var best *Tab
	for _, t := range s.tabs {
		if t.pendingDeletion.Load() {
			continue
		}
		if best == nil || t.ctx.LastAccessedAt.After(best.ctx.LastAccessedAt) {
			best = t
		}
	}
	return best
}

// touchLocked buffers a deferred write of t and returns a copy.
func (s *Synchronizer) touchLocked(t *Tab) TabContext {
	t.ctx.LastAccessedAt = s.now()
	_ = s.deps.Store.Upsert(context.Background(), t.ctx.record())
	return t.ctx
}

func (s *Synchronizer) publish(events ...Event) {
	if dropped := s.events.Publish(events...); dropped > 0 {
		s.log.Debug("tab events dropped for slow subscribers", nil, map[string]interface{}{"dropped": dropped})
	}
}

func (s *Synchronizer) reportOpenTabsLocked() {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetOpenTabs(len(s.tabs))
	}
}

func (s *Synchronizer) reportGauges() {
	if s.deps.Metrics == nil {
		return
	}
	s.mu.Lock()
	managers := make([]*connection.Manager, len(s.tabs))
	for i, t := range s.tabs {
		managers[i] = t.manager
	}
	s.deps.Metrics.SetOpenTabs(len(s.tabs))
	s.mu.Unlock()

	live := 0
	for _, m := range managers {
		if m.State() == connection.StateConnected {
			live++
		}
	}
	s.deps.Metrics.SetLiveConnections(live)
}
