// Package dbtest provides an in-memory database.Driver for tests of the
// connection, query and tab layers. It counts live handles so tests can
// assert that every handle opened is closed exactly once, and it can hold
// connects and queries at a gate to exercise cancellation and timeouts.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

// ErrClosedHandle is returned by any call on a handle after Close.
var ErrClosedHandle = errors.New("dbtest: handle is closed")

var selectPattern = regexp.MustCompile(`(?is)^\s*select\s+.+?\s+from\s+([^\s;]+)(?:\s+limit\s+(\d+))?(?:\s+offset\s+(\d+))?`)

// Table is the content of one in-memory table.
type Table struct {
	Columns    []string
	PrimaryKey []string
	Rows       [][]any
}

// Statement is a recorded Query or Exec call.
type Statement struct {
	SQL  string
	Args []any
}

// Driver is an in-memory database.Driver.
type Driver struct {
	name    string
	dialect database.Dialect

	mu          sync.Mutex
	tables      map[string]*Table
	connectErr  error
	connectGate chan struct{}
	queryGate   chan struct{}
	closeGate   chan struct{}
	queryErr    error
	execErr     error
	pingErr     error
	pkErr       error
	queries     []Statement
	execs       []Statement

	opened       atomic.Int64
	live         atomic.Int64
	doubleCloses atomic.Int64
}

var _ database.Driver = (*Driver)(nil)

// New returns an empty driver registered under name.
func New(name string, dialect database.Dialect) *Driver {
	return &Driver{
		name:    name,
		dialect: dialect,
		tables:  make(map[string]*Table),
	}
}

// AddTable creates or replaces a table.
func (d *Driver) AddTable(ref database.TableRef, columns, primaryKey []string, rows ...[]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[ref.ID()] = &Table{Columns: columns, PrimaryKey: primaryKey, Rows: rows}
}

// SetConnectError makes subsequent connects fail with err.
func (d *Driver) SetConnectError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectErr = err
}

// SetQueryError makes subsequent queries fail with err.
func (d *Driver) SetQueryError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queryErr = err
}

// SetExecError makes subsequent Exec calls fail with err.
func (d *Driver) SetExecError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.execErr = err
}

// SetPingError makes subsequent pings fail with err.
func (d *Driver) SetPingError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pingErr = err
}

// SetPrimaryKeyError makes metadata lookups fail with err.
func (d *Driver) SetPrimaryKeyError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pkErr = err
}

// HoldConnects blocks every Connect until the returned release func is
// called or the connect context is done.
func (d *Driver) HoldConnects() (release func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	gate := make(chan struct{})
	d.connectGate = gate
	return onceClose(gate)
}

// HoldQueries blocks every Query until released or cancelled.
func (d *Driver) HoldQueries() (release func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	gate := make(chan struct{})
	d.queryGate = gate
	return onceClose(gate)
}

// HoldCloses blocks every handle Close until released or cancelled.
func (d *Driver) HoldCloses() (release func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	gate := make(chan struct{})
	d.closeGate = gate
	return onceClose(gate)
}

// Opened is the number of handles ever returned by Connect.
func (d *Driver) Opened() int64 { return d.opened.Load() }

// Live is the number of handles opened and not yet closed.
func (d *Driver) Live() int64 { return d.live.Load() }

// DoubleCloses counts Close calls on already closed handles.
func (d *Driver) DoubleCloses() int64 { return d.doubleCloses.Load() }

// Queries returns the recorded Query calls.
func (d *Driver) Queries() []Statement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Statement(nil), d.queries...)
}

// Execs returns the recorded Exec calls.
func (d *Driver) Execs() []Statement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Statement(nil), d.execs...)
}

// Name implements database.Driver.
func (d *Driver) Name() string { return d.name }

// Connect implements database.Driver.
func (d *Driver) Connect(ctx context.Context, cc database.ConnectionContext, password string) (database.Handle, error) {
	d.mu.Lock()
	gate, connectErr := d.connectGate, d.connectErr
	d.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	if connectErr != nil {
		return nil, connectErr
	}

	d.opened.Add(1)
	d.live.Add(1)
	return &handle{driver: d}, nil
}

func (d *Driver) lookup(name string) (*Table, bool) {
	ref := database.ParseTableRef(name)
	if t, ok := d.tables[ref.ID()]; ok {
		return t, true
	}
	if ref.Schema == "" {
		t, ok := d.tables["public."+ref.Table]
		return t, ok
	}
	return nil, false
}

type handle struct {
	driver *Driver
	closed atomic.Bool
}

func (h *handle) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if h.closed.Load() {
		return nil, ErrClosedHandle
	}
	d := h.driver
	d.mu.Lock()
	d.queries = append(d.queries, Statement{SQL: sql, Args: args})
	gate, queryErr := d.queryGate, d.queryErr
	d.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	if queryErr != nil {
		return nil, queryErr
	}

	m := selectPattern.FindStringSubmatch(sql)
	if m == nil {
		return &rows{}, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.lookup(m[1])
	if !ok {
		return nil, fmt.Errorf("relation %s does not exist", m[1])
	}

	data := t.Rows
	if m[3] != "" {
		offset, _ := strconv.Atoi(m[3])
		if offset >= len(data) {
			data = nil
		} else {
			data = data[offset:]
		}
	}
	if m[2] != "" {
		limit, _ := strconv.Atoi(m[2])
		if limit < len(data) {
			data = data[:limit]
		}
	}

	copied := make([][]any, len(data))
	for i, r := range data {
		copied[i] = append([]any(nil), r...)
	}
	return &rows{columns: append([]string(nil), t.Columns...), data: copied, pos: -1}, nil
}

func (h *handle) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if h.closed.Load() {
		return 0, ErrClosedHandle
	}
	d := h.driver
	d.mu.Lock()
	d.execs = append(d.execs, Statement{SQL: sql, Args: args})
	gate, execErr := d.queryGate, d.execErr
	d.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return 0, err
	}
	if execErr != nil {
		return 0, execErr
	}
	return 1, nil
}

func (h *handle) Ping(ctx context.Context) error {
	if h.closed.Load() {
		return ErrClosedHandle
	}
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()
	return h.driver.pingErr
}

func (h *handle) Close(ctx context.Context) error {
	h.driver.mu.Lock()
	gate := h.driver.closeGate
	h.driver.mu.Unlock()
	if gate != nil {
		if err := wait(ctx, gate); err != nil {
			return err
		}
	}
	if !h.closed.CompareAndSwap(false, true) {
		h.driver.doubleCloses.Add(1)
		return ErrClosedHandle
	}
	h.driver.live.Add(-1)
	return nil
}

func (h *handle) Dialect() database.Dialect {
	return h.driver.dialect
}

// PrimaryKey implements database.MetadataProvider.
func (h *handle) PrimaryKey(ctx context.Context, ref database.TableRef) ([]string, error) {
	if h.closed.Load() {
		return nil, ErrClosedHandle
	}
	d := h.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pkErr != nil {
		return nil, d.pkErr
	}
	t, ok := d.lookup(ref.ID())
	if !ok {
		return nil, fmt.Errorf("relation %s does not exist", ref.ID())
	}
	return append([]string(nil), t.PrimaryKey...), nil
}

type rows struct {
	columns []string
	data    [][]any
	pos     int
}

func (r *rows) Columns() []string { return r.columns }

func (r *rows) Next() bool {
	if r.pos+1 >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *rows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.data) {
		return nil, errors.New("dbtest: no current row")
	}
	return r.data[r.pos], nil
}

func (r *rows) Err() error { return nil }

func (r *rows) Close() {}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return ctx.Err()
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func onceClose(ch chan struct{}) func() {
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}
