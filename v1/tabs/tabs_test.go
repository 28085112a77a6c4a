package tabs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/database/dbtest"
	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/observability"
	"github.com/Aleph-Alpha/workbench/v1/query"
	"github.com/Aleph-Alpha/workbench/v1/store"
	"github.com/Aleph-Alpha/workbench/v1/vault"
)

var users = database.TableRef{Schema: "public", Table: "users"}

var local = database.ConnectionContext{
	ID: "local", Driver: "fake", Host: "localhost", Port: 5432, Database: "app",
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type gauges struct {
	openTabs atomic.Int64
	live     atomic.Int64
}

func (g *gauges) ObserveOperation(observability.OperationContext) {}
func (g *gauges) SetLiveConnections(n int)                        { g.live.Store(int64(n)) }
func (g *gauges) SetOpenTabs(n int)                               { g.openTabs.Store(int64(n)) }

type fixture struct {
	s      *Synchronizer
	drv    *dbtest.Driver
	path   string
	gauges *gauges
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	drv := dbtest.New("fake", database.DialectPostgres)
	drv.AddTable(users, []string{"id", "name"}, []string{"id"}, []any{1, "ann"}, []any{2, "bob"})

	path := filepath.Join(t.TempDir(), "tabs.json")
	g := &gauges{}
	s := NewSynchronizer(cfg, Dependencies{
		Driver:  drv,
		Store:   store.NewFileStore[TabRecord](path, logger.NewNop()),
		Logger:  logger.NewNop(),
		Vault:   vault.NewMemory(),
		Metrics: g,
	})
	s.now = (&clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}).Now
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &fixture{s: s, drv: drv, path: path, gauges: g}
}

func (f *fixture) persisted(t *testing.T) map[string]TabRecord {
	t.Helper()
	all, err := store.NewFileStore[TabRecord](f.path, logger.NewNop()).LoadAll(context.Background())
	require.NoError(t, err)
	out := make(map[string]TabRecord, len(all))
	for _, r := range all {
		out[r.ID] = r
	}
	return out
}

func (f *fixture) restoreOne(t *testing.T) TabContext {
	t.Helper()
	restored, err := f.s.Restore(context.Background())
	require.NoError(t, err)
	require.Len(t, restored, 1)
	active, ok := f.s.Active()
	require.True(t, ok)
	return active
}

func TestRestore_EmptyStoreCreatesActiveTab(t *testing.T) {
	f := newFixture(t, Config{})
	active := f.restoreOne(t)

	assert.True(t, active.IsActive)
	assert.Equal(t, 0, active.Order)
	assert.Len(t, f.persisted(t), 1)
	assert.True(t, f.persisted(t)[active.ID].IsActive)
	assert.Equal(t, int64(1), f.gauges.openTabs.Load())

	_, err := f.s.Restore(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRestored)
}

func TestRestore_RebuildsPersistedTabs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabs.json")
	st := store.NewFileStore[TabRecord](path, logger.NewNop())
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.Upsert(ctx, TabRecord{ID: "b", Order: 1, QueryText: "SELECT 2", LastAccessedAt: base.Add(time.Hour)}))
	require.NoError(t, st.Upsert(ctx, TabRecord{ID: "a", Order: 0, SelectedSchema: "public", SelectedTable: "users", LastAccessedAt: base}))
	require.NoError(t, st.Save(ctx))

	s := NewSynchronizer(Config{}, Dependencies{
		Driver: dbtest.New("fake", database.DialectPostgres),
		Store:  store.NewFileStore[TabRecord](path, logger.NewNop()),
		Logger: logger.NewNop(),
	})
	defer func() { _ = s.Shutdown(ctx) }()

	restored, err := s.Restore(ctx)
	require.NoError(t, err)
	require.Len(t, restored, 2)
	assert.Equal(t, "a", restored[0].ID)
	assert.Equal(t, &users, restored[0].SelectedTable)
	assert.Equal(t, "SELECT 2", restored[1].QueryText)

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "b", active.ID, "most recently used tab wins without a persisted active flag")
	assert.False(t, active.HasResults(), "rows are not persisted")
}

func TestCreateTab_InheritsConnection(t *testing.T) {
	f := newFixture(t, Config{})
	first := f.restoreOne(t)
	require.NoError(t, f.s.Connect(context.Background(), first.ID, local))

	second, err := f.s.CreateTab(context.Background(), &first.ID)
	require.NoError(t, err)
	assert.Equal(t, "local", second.ConnectionContextID)
	assert.Equal(t, "app", second.DatabaseName)
	assert.Equal(t, 1, second.Order)
	assert.False(t, second.IsActive)
	assert.NotEqual(t, first.ID, second.ID)

	state, err := f.s.ConnectionState(second.ID)
	require.NoError(t, err)
	assert.Equal(t, "disconnected", state, "tabs never share a connection")

	assert.Len(t, f.persisted(t), 2, "creation is flushed immediately")

	missing := "nope"
	_, err = f.s.CreateTab(context.Background(), &missing)
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestSwitchToTab(t *testing.T) {
	f := newFixture(t, Config{})
	first := f.restoreOne(t)
	second, err := f.s.CreateTab(context.Background(), nil)
	require.NoError(t, err)

	active, err := f.s.SwitchToTab(context.Background(), second.ID)
	require.NoError(t, err)
	assert.True(t, active.IsActive)
	assert.True(t, active.LastAccessedAt.After(second.LastAccessedAt))

	prev, err := f.s.Tab(first.ID)
	require.NoError(t, err)
	assert.False(t, prev.IsActive)

	persisted := f.persisted(t)
	assert.True(t, persisted[second.ID].IsActive)
	assert.False(t, persisted[first.ID].IsActive)

	_, err = f.s.SwitchToTab(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestCloseTab_ActivatesMostRecentOrCreatesFresh(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	first := f.restoreOne(t)
	second, _ := f.s.CreateTab(ctx, nil)
	third, _ := f.s.CreateTab(ctx, nil)
	_, err := f.s.SwitchToTab(ctx, third.ID)
	require.NoError(t, err)
	_, err = f.s.SwitchToTab(ctx, first.ID)
	require.NoError(t, err)

	require.NoError(t, f.s.CloseTab(ctx, first.ID))
	active, ok := f.s.Active()
	require.True(t, ok)
	assert.Equal(t, third.ID, active.ID)

	require.NoError(t, f.s.CloseTab(ctx, second.ID))
	require.NoError(t, f.s.CloseTab(ctx, third.ID))

	tabs := f.s.Tabs()
	require.Len(t, tabs, 1)
	assert.NotContains(t, []string{first.ID, second.ID, third.ID}, tabs[0].ID)
	assert.True(t, tabs[0].IsActive)

	persisted := f.persisted(t)
	assert.Len(t, persisted, 1)
	assert.Contains(t, persisted, tabs[0].ID)

	assert.ErrorIs(t, f.s.CloseTab(ctx, first.ID), ErrTabNotFound)
}

func TestCloseTab_RefusesTabWhileConnectionShutsDown(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	first := f.restoreOne(t)
	second, err := f.s.CreateTab(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.s.Connect(ctx, first.ID, local))

	release := f.drv.HoldCloses()
	defer release()

	done := make(chan error, 1)
	go func() { done <- f.s.CloseTab(ctx, first.ID) }()

	require.Eventually(t, func() bool {
		_, err := f.s.SwitchToTab(ctx, first.ID)
		return errors.Is(err, ErrTabPendingDeletion)
	}, 2*time.Second, time.Millisecond)
	_, err = f.s.Tab(first.ID)
	assert.ErrorIs(t, err, ErrTabPendingDeletion)
	assert.ErrorIs(t, f.s.CloseTab(ctx, first.ID), ErrTabPendingDeletion)

	active, ok := f.s.Active()
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)

	release()
	require.NoError(t, <-done)
	_, err = f.s.SwitchToTab(ctx, first.ID)
	assert.ErrorIs(t, err, ErrTabNotFound)
	assert.Equal(t, int64(0), f.drv.Live())
}

func TestCloseTab_MidQueryPerformsNoMutation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	tab := f.restoreOne(t)
	require.NoError(t, f.s.Connect(ctx, tab.ID, local))
	events := f.s.Subscribe(ctx)

	release := f.drv.HoldQueries()
	defer release()

	done := make(chan query.Outcome, 1)
	go func() {
		out, _ := f.s.RunQuery(ctx, tab.ID, query.Browse(users, 0, 0))
		done <- out
	}()
	require.Eventually(t, func() bool { return len(f.drv.Queries()) == 1 }, 2*time.Second, time.Millisecond)

	require.NoError(t, f.s.CloseTab(ctx, tab.ID))
	release()

	out := <-done
	require.NotNil(t, out.Err)
	assert.True(t, out.Err.Superseded)

	for _, tc := range f.s.Tabs() {
		assert.NotEqual(t, tab.ID, tc.ID)
	}
	assert.NotContains(t, f.persisted(t), tab.ID)
	assert.Equal(t, int64(0), f.drv.Live())

	_, err := f.s.RunQuery(ctx, tab.ID, query.SQL("SELECT 1"))
	assert.ErrorIs(t, err, ErrTabNotFound)

	deleted := false
	for {
		select {
		case ev := <-events:
			if ev.Tab.ID != tab.ID {
				continue
			}
			assert.False(t, deleted, "no event for %s after deletion", tab.ID)
			if ev.Type == EventDeleted {
				assert.True(t, ev.Tab.PendingDeletion)
				deleted = true
			}
		default:
			assert.True(t, deleted)
			return
		}
	}
}

func TestRunQuery_MirrorsResults(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	tab := f.restoreOne(t)
	require.NoError(t, f.s.Connect(ctx, tab.ID, local))
	assert.Equal(t, int64(1), f.gauges.live.Load())

	out, err := f.s.RunQuery(ctx, tab.ID, query.Browse(users, 0, 0))
	require.NoError(t, err)
	require.True(t, out.Success)

	tc, _ := f.s.Tab(tab.ID)
	assert.Equal(t, []string{"id", "name"}, tc.CachedColumns)
	assert.Len(t, tc.CachedRows, 2)
	assert.Equal(t, &users, tc.SelectedTable)

	f.drv.SetQueryError(assert.AnError)
	_, err = f.s.RunQuery(ctx, tab.ID, query.SQL("SELECT broken"))
	require.NoError(t, err)
	tc, _ = f.s.Tab(tab.ID)
	assert.Nil(t, tc.CachedColumns)
	assert.Nil(t, tc.CachedRows)
	assert.Equal(t, "SELECT broken", tc.QueryText)

	cachedOut, cached, err := f.s.SelectTable(tab.ID, users)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.True(t, cachedOut.FromCache)
	tc, _ = f.s.Tab(tab.ID)
	assert.Len(t, tc.CachedRows, 2)

	require.NoError(t, f.s.CancelQuery(tab.ID))
	tc, _ = f.s.Tab(tab.ID)
	assert.False(t, tc.HasResults())
}

func TestRowEditsThroughSynchronizer(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	tab := f.restoreOne(t)
	require.NoError(t, f.s.Connect(ctx, tab.ID, local))
	_, err := f.s.RunQuery(ctx, tab.ID, query.Browse(users, 0, 0))
	require.NoError(t, err)

	require.NoError(t, f.s.UpdateCell(ctx, tab.ID, 1, "name", "bobby"))
	tc, _ := f.s.Tab(tab.ID)
	assert.Equal(t, []any{2, "bobby"}, tc.CachedRows[1])

	n, err := f.s.DeleteRows(ctx, tab.ID, []int{0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	tc, _ = f.s.Tab(tab.ID)
	assert.Len(t, tc.CachedRows, 1)
}

func TestUpdateTab_DeferredUntilFlush(t *testing.T) {
	f := newFixture(t, Config{FlushInterval: time.Hour})
	tab := f.restoreOne(t)

	text := "SELECT * FROM users"
	updated, err := f.s.UpdateTab(tab.ID, Update{QueryText: &text, SelectedTable: &users})
	require.NoError(t, err)
	assert.Equal(t, text, updated.QueryText)

	assert.Empty(t, f.persisted(t)[tab.ID].QueryText)
	require.NoError(t, f.s.Flush(context.Background()))
	assert.Equal(t, text, f.persisted(t)[tab.ID].QueryText)
	assert.Equal(t, "users", f.persisted(t)[tab.ID].SelectedTable)

	updated, err = f.s.UpdateTab(tab.ID, Update{ClearSelection: true})
	require.NoError(t, err)
	assert.Nil(t, updated.SelectedTable)
}

func TestCheckpointLoopFlushes(t *testing.T) {
	f := newFixture(t, Config{FlushInterval: 10 * time.Millisecond})
	tab := f.restoreOne(t)
	f.s.Start()

	name := "analytics"
	_, err := f.s.UpdateTab(tab.ID, Update{DatabaseName: &name})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return f.persisted(t)[tab.ID].DatabaseName == name
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShutdown_TearsDownEveryTab(t *testing.T) {
	f := newFixture(t, Config{FlushInterval: time.Hour})
	ctx := context.Background()
	first := f.restoreOne(t)
	second, err := f.s.CreateTab(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.s.Connect(ctx, first.ID, local))
	require.NoError(t, f.s.Connect(ctx, second.ID, local))
	assert.Equal(t, int64(2), f.drv.Live())

	text := "SELECT 1"
	_, err = f.s.UpdateTab(second.ID, Update{QueryText: &text})
	require.NoError(t, err)
	events := f.s.Subscribe(ctx)
	f.s.Start()

	require.NoError(t, f.s.Shutdown(ctx))
	require.NoError(t, f.s.Shutdown(ctx))

	assert.Equal(t, int64(0), f.drv.Live())
	assert.Equal(t, int64(0), f.gauges.live.Load())
	assert.Equal(t, text, f.persisted(t)[second.ID].QueryText, "final flush")

	_, ok := <-events
	assert.False(t, ok)
	_, err = f.s.CreateTab(ctx, nil)
	assert.ErrorIs(t, err, ErrShutDown)
	assert.ErrorIs(t, f.s.Connect(ctx, first.ID, local), ErrShutDown)
}

func TestTabRecord(t *testing.T) {
	r := TabContext{ID: "x", SelectedTable: &users, Order: 3}.record()
	assert.Equal(t, "x", r.RecordID())
	assert.Equal(t, "workbench_tabs", r.TableName())
	assert.Equal(t, "public", r.SelectedSchema)
	assert.Equal(t, &users, r.context().SelectedTable)
	assert.Nil(t, TabRecord{ID: "y"}.context().SelectedTable)
}
