package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/observability"
	"github.com/Aleph-Alpha/workbench/v1/pubsub"
	"github.com/Aleph-Alpha/workbench/v1/race"
	"github.com/Aleph-Alpha/workbench/v1/tracer"
	"github.com/Aleph-Alpha/workbench/v1/vault"
	"golang.org/x/sync/singleflight"
)

// Manager owns at most one live database.Handle. It is safe for concurrent use.
type Manager struct {
	cfg    Config
	driver database.Driver
	vault  vault.Vault
	log    logger.Logger
	owner  string

	observer observability.Observer
	tracer   *tracer.Tracer

	mu           sync.Mutex
	state        State
	cc           database.ConnectionContext
	handle       database.Handle
	connectSeq   uint64
	connectToken *race.Token
	opToken      *race.Token
	releasing    chan struct{}

	// opMu serialises every use of handle, including Close.
	opMu sync.Mutex

	events  *pubsub.Broker[StateEvent]
	probes  singleflight.Group
	monitor *monitor
}

// NewManager returns a disconnected manager. owner labels logs and metrics,
// typically with the tab id. v may be nil, in which case connects use an
// empty password.
func NewManager(cfg Config, driver database.Driver, v vault.Vault, log logger.Logger, owner string) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:    cfg,
		driver: driver,
		vault:  v,
		log:    log,
		owner:  owner,
		events: pubsub.NewBroker[StateEvent](cfg.EventBuffer),
	}
	if cfg.HealthCheckInterval > 0 {
		m.monitor = startMonitor(m, cfg.HealthCheckInterval)
	}
	return m
}

// WithObserver sets the observer and returns m for chaining.
func (m *Manager) WithObserver(o observability.Observer) *Manager {
	m.observer = o
	return m
}

// WithTracer sets the tracer and returns m for chaining.
func (m *Manager) WithTracer(t *tracer.Tracer) *Manager {
	m.tracer = t
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Context returns the connection context of the current or last attempt.
func (m *Manager) Context() (database.ConnectionContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cc, m.cc.ID != ""
}

// Subscribe returns a channel of state events that is closed when ctx is
// done or the manager shuts down.
func (m *Manager) Subscribe(ctx context.Context) <-chan StateEvent {
	return m.events.Subscribe(ctx)
}

// Connect opens a handle for cc. Reconnecting the context that is already
// connected is a no-op.
func (m *Manager) Connect(ctx context.Context, cc database.ConnectionContext) (err error) {
	if err := cc.Validate(); err != nil {
		return err
	}

	ctx, span := m.tracer.StartSpan(ctx, "connection.connect")
	defer span.End()
	m.tracer.SetAttributes(span, map[string]interface{}{
		"db.connection_id": cc.ID,
		"db.system":        cc.Driver,
		"db.name":          cc.Database,
		"server.address":   cc.Address(),
		"workbench.owner":  m.owner,
	})

	m.mu.Lock()
	switch m.state {
	case StateShutDown:
		m.mu.Unlock()
		return ErrShutDown
	case StateConnected:
		same := m.cc.ID == cc.ID
		m.mu.Unlock()
		if same {
			return nil
		}
		return ErrAlreadyConnected
	case StateConnecting:
		if m.cc.ID != cc.ID {
			m.mu.Unlock()
			return ErrAlreadyConnected
		}
	}

	m.connectSeq++
	seq := m.connectSeq
	if m.connectToken != nil {
		m.connectToken.Cancel()
	}
	attempt := race.NewToken(ctx)
	defer attempt.Cancel()
	m.connectToken = attempt
	m.cc = cc
	releasing := m.releasing
	m.setStateLocked(StateConnecting, nil)
	m.mu.Unlock()

	start := time.Now()
	defer func() {
		m.tracer.RecordErrorOnSpan(span, err)
		m.observe("connect", cc.ID, time.Since(start), err)
	}()

	// wait for a previous handle to be closed so at most one is live
	if releasing != nil {
		select {
		case <-releasing:
		case <-attempt.Context().Done():
		}
	}

	password := m.password(cc.ID)
	h, connErr := race.RunOwned(attempt.Context(), m.cfg.ConnectTimeout, func(ctx context.Context) (database.Handle, error) {
		return m.driver.Connect(ctx, cc, password)
	}, m.closeOrphan)

	m.mu.Lock()
	if seq != m.connectSeq {
		m.mu.Unlock()
		if h != nil {
			m.closeOrphan(h)
		}
		m.log.DebugWithContext(ctx, "connect superseded", nil, m.fields(cc))
		return database.NewConnectionError(database.KindCancelled, ErrSuperseded)
	}
	m.connectToken = nil

	if connErr != nil {
		ce := database.ClassifyError(connErr)
		if ce.Kind == database.KindDatabaseNotFound && ce.Database == "" {
			ce.Database = cc.Database
		}
		m.setStateLocked(StateDisconnected, ce)
		m.mu.Unlock()
		m.log.WarnWithContext(ctx, "connect failed", ce, m.fields(cc, map[string]interface{}{"kind": ce.Kind.String()}))
		return ce
	}

	m.handle = h
	m.setStateLocked(StateConnected, nil)
	m.mu.Unlock()

	m.log.InfoWithContext(ctx, "connected", nil, m.fields(cc, map[string]interface{}{
		"elapsed_ms": time.Since(start).Milliseconds(),
	}))
	return nil
}

// WithConnection runs fn against the live handle. Calls are serialised;
// Disconnect and Shutdown cancel the context passed to fn.
func (m *Manager) WithConnection(ctx context.Context, fn func(ctx context.Context, h database.Handle) error) error {
	if err := m.checkConnected(); err != nil {
		return err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.state != StateConnected || m.handle == nil {
		state := m.state
		m.mu.Unlock()
		if state == StateShutDown {
			return ErrShutDown
		}
		return ErrNotConnected
	}
	h := m.handle
	op := race.NewToken(ctx)
	m.opToken = op
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.opToken = nil
		m.mu.Unlock()
		op.Cancel()
	}()

	return fn(op.Context(), h)
}

// Do runs fn through m.WithConnection and returns its value.
func Do[T any](ctx context.Context, m *Manager, fn func(ctx context.Context, h database.Handle) (T, error)) (T, error) {
	var out T
	err := m.WithConnection(ctx, func(ctx context.Context, h database.Handle) error {
		v, err := fn(ctx, h)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Disconnect cancels any in-flight connect or operation and closes the
// handle. It is idempotent.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateShutDown {
		m.mu.Unlock()
		return ErrShutDown
	}
	if m.state == StateDisconnected && m.connectToken == nil {
		m.mu.Unlock()
		return nil
	}

	m.connectSeq++
	seq := m.connectSeq
	m.cancelInFlightLocked()
	h := m.handle
	m.handle = nil

	if h == nil {
		m.setStateLocked(StateDisconnected, nil)
		m.mu.Unlock()
		return nil
	}

	released := make(chan struct{})
	m.releasing = released
	m.setStateLocked(StateDisconnecting, nil)
	cc := m.cc
	m.mu.Unlock()

	start := time.Now()
	err := m.closeHandle(ctx, h)
	close(released)

	m.mu.Lock()
	if m.releasing == released {
		m.releasing = nil
	}
	if seq == m.connectSeq && m.state == StateDisconnecting {
		m.setStateLocked(StateDisconnected, nil)
	}
	m.mu.Unlock()

	m.observe("disconnect", cc.ID, time.Since(start), err)
	if err != nil {
		m.log.Warn("closing handle failed", err, m.fields(cc))
		return err
	}
	m.log.Info("disconnected", nil, m.fields(cc))
	return nil
}

// Shutdown releases the handle, the health monitor and all subscribers.
// The manager cannot be used afterwards. Shutdown is idempotent.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateShutDown {
		m.mu.Unlock()
		return nil
	}
	m.connectSeq++
	m.cancelInFlightLocked()
	h := m.handle
	m.handle = nil
	releasing := m.releasing
	m.setStateLocked(StateShutDown, nil)
	cc := m.cc
	m.mu.Unlock()

	if m.monitor != nil {
		m.monitor.stop()
	}

	var err error
	if h != nil {
		err = m.closeHandle(ctx, h)
	}
	if releasing != nil {
		select {
		case <-releasing:
		case <-ctx.Done():
		}
	}
	m.events.Close()

	if err != nil {
		m.log.Warn("closing handle on shutdown failed", err, m.fields(cc))
		return err
	}
	m.log.Debug("connection manager shut down", nil, m.fields(cc))
	return nil
}

// TestConnection opens a throwaway handle for cc, pings it and closes it.
// Manager state and the live handle are never touched. Concurrent probes of
// the same context id share one attempt.
func (m *Manager) TestConnection(ctx context.Context, cc database.ConnectionContext) error {
	if m.State() == StateShutDown {
		return ErrShutDown
	}
	if err := cc.Validate(); err != nil {
		return err
	}

	_, err, shared := m.probes.Do(cc.ID, func() (interface{}, error) {
		return nil, m.probe(ctx, cc)
	})
	if shared {
		m.log.Debug("connection probe shared", nil, m.fields(cc))
	}
	return err
}

func (m *Manager) probe(ctx context.Context, cc database.ConnectionContext) (err error) {
	ctx, span := m.tracer.StartSpan(ctx, "connection.test")
	defer span.End()
	start := time.Now()
	defer func() {
		m.tracer.RecordErrorOnSpan(span, err)
		m.observe("test_connection", cc.ID, time.Since(start), err)
	}()

	password := m.password(cc.ID)
	h, err := race.RunOwned(ctx, m.cfg.ConnectTimeout, func(ctx context.Context) (database.Handle, error) {
		return m.driver.Connect(ctx, cc, password)
	}, m.closeOrphan)
	if err != nil {
		return database.ClassifyError(err)
	}
	defer m.closeOrphan(h)

	if err := race.Do(ctx, m.cfg.HealthCheckTimeout, h.Ping); err != nil {
		return database.ClassifyError(err)
	}
	return nil
}

// dropConnection releases the handle after a failed health check, unless a
// newer request owns the manager by now.
func (m *Manager) dropConnection(seq uint64, cause error) {
	m.mu.Lock()
	if seq != m.connectSeq || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.connectSeq++
	h := m.handle
	m.handle = nil
	released := make(chan struct{})
	m.releasing = released
	ce := database.ClassifyError(cause)
	m.setStateLocked(StateDisconnected, ce)
	cc := m.cc
	m.mu.Unlock()

	m.log.Warn("health check failed, connection released", ce, m.fields(cc))
	if h != nil {
		_ = m.closeHandle(context.Background(), h)
	}
	close(released)

	m.mu.Lock()
	if m.releasing == released {
		m.releasing = nil
	}
	m.mu.Unlock()
}

func (m *Manager) checkConnected() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateConnected:
		return nil
	case StateShutDown:
		return ErrShutDown
	default:
		return ErrNotConnected
	}
}

func (m *Manager) cancelInFlightLocked() {
	if m.connectToken != nil {
		m.connectToken.Cancel()
		m.connectToken = nil
	}
	if m.opToken != nil {
		m.opToken.Cancel()
	}
}

// closeHandle waits for the in-flight operation to return, then closes h.
func (m *Manager) closeHandle(ctx context.Context, h database.Handle) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return race.Do(context.WithoutCancel(ctx), m.cfg.CloseTimeout, h.Close)
}

// closeOrphan closes a handle that never became the live one.
func (m *Manager) closeOrphan(h database.Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CloseTimeout)
	defer cancel()
	if err := h.Close(ctx); err != nil {
		m.log.Debug("closing orphaned handle failed", err, map[string]interface{}{"owner": m.owner})
	}
}

func (m *Manager) password(id string) string {
	if m.vault == nil {
		return ""
	}
	secret, err := m.vault.Get(id)
	switch {
	case err == nil:
		return secret
	case vault.IsNotFound(err):
		m.log.Debug("no stored password", nil, map[string]interface{}{"connection_id": id})
	default:
		m.log.Warn("reading password from vault failed, continuing without one", err,
			map[string]interface{}{"connection_id": id})
	}
	return ""
}

func (m *Manager) setStateLocked(to State, cause error) {
	from := m.state
	m.state = to
	ev := StateEvent{From: from, To: to, ContextID: m.cc.ID, Err: cause, At: time.Now()}
	if dropped := m.events.Publish(ev); dropped > 0 {
		m.log.Debug("state event dropped for slow subscribers", nil, map[string]interface{}{
			"owner":   m.owner,
			"to":      to.String(),
			"dropped": dropped,
		})
	}
}

func (m *Manager) fields(cc database.ConnectionContext, extra ...map[string]interface{}) map[string]interface{} {
	f := map[string]interface{}{
		"owner":         m.owner,
		"connection_id": cc.ID,
		"driver":        cc.Driver,
		"address":       cc.Address(),
		"database":      cc.Database,
	}
	for _, e := range extra {
		for k, v := range e {
			f[k] = v
		}
	}
	return f
}

func (m *Manager) observe(operation, resource string, d time.Duration, err error) {
	if m.observer == nil {
		return
	}
	status := ""
	if err != nil {
		switch {
		case errors.Is(err, database.ErrConnectionCancelled):
			status = "cancelled"
		case errors.Is(err, database.ErrConnectionTimeout):
			status = "timeout"
		}
	}
	m.observer.ObserveOperation(observability.OperationContext{
		Component:   "connection",
		Operation:   operation,
		Resource:    resource,
		SubResource: m.owner,
		Duration:    d,
		Error:       err,
		Status:      status,
	})
}
