package query

import (
	"context"
	"sync"
	"time"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/observability"
	"github.com/Aleph-Alpha/workbench/v1/race"
	"github.com/Aleph-Alpha/workbench/v1/results"
	"github.com/Aleph-Alpha/workbench/v1/tracer"
)

// Connection is the part of connection.Manager the engine uses.
type Connection interface {
	WithConnection(ctx context.Context, fn func(ctx context.Context, h database.Handle) error) error
}

// Liveness reports whether the owning tab may still be mutated.
type Liveness func() bool

// Engine executes requests for one tab. It is safe for concurrent use;
// only the most recent request may apply its result.
type Engine struct {
	cfg   Config
	conn  Connection
	cache *results.Cache
	log   logger.Logger
	owner string
	alive Liveness

	observer observability.Observer
	tracer   *tracer.Tracer

	mu             sync.Mutex
	token          uint64
	cancelledToken uint64
	inFlight       *race.Token
	executing      bool
}

// NewEngine returns an engine over conn. owner labels logs and metrics.
func NewEngine(cfg Config, conn Connection, log logger.Logger, owner string) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:   cfg,
		conn:  conn,
		cache: results.NewCache(cfg.MaxCachedResults),
		log:   log,
		owner: owner,
	}
}

// WithObserver sets the observer and returns e for chaining.
func (e *Engine) WithObserver(o observability.Observer) *Engine {
	e.observer = o
	return e
}

// WithTracer sets the tracer and returns e for chaining.
func (e *Engine) WithTracer(t *tracer.Tracer) *Engine {
	e.tracer = t
	return e
}

// WithLiveness installs the check run before any result is applied.
func (e *Engine) WithLiveness(alive Liveness) *Engine {
	e.alive = alive
	return e
}

// Cache returns the result cache of the tab.
func (e *Engine) Cache() *results.Cache {
	return e.cache
}

// Connection returns the connection the engine runs on.
func (e *Engine) Connection() Connection {
	return e.conn
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// IsExecuting reports whether a request is in flight.
func (e *Engine) IsExecuting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executing
}

// Token returns the current execution token.
func (e *Engine) Token() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// Execute runs req. It supersedes any request still in flight.
func (e *Engine) Execute(ctx context.Context, req Request) Outcome {
	if req.IsBrowse() && !req.Force {
		if out, ok := e.fromCache(req); ok {
			return out
		}
	}

	e.mu.Lock()
	e.token++
	seq := e.token
	e.cancelInFlightLocked()
	tok := race.NewToken(ctx)
	e.inFlight = tok
	e.executing = true
	e.mu.Unlock()
	defer tok.Cancel()
	stop := tok.OnCancel(func() { e.abandon(tok) })
	defer stop()

	opCtx, span := e.tracer.StartSpan(tok.Context(), "query.execute")
	defer span.End()
	e.tracer.SetAttributes(span, map[string]interface{}{
		"workbench.owner":     e.owner,
		"workbench.operation": req.operation(),
		"workbench.identity":  req.Identity(),
		"workbench.token":     seq,
	})

	start := time.Now()
	f, err := race.Run(opCtx, e.cfg.Timeout, func(ctx context.Context) (fetched, error) {
		var f fetched
		err := e.conn.WithConnection(ctx, func(ctx context.Context, h database.Handle) error {
			var err error
			f, err = e.fetch(ctx, h, req)
			return err
		})
		return f, err
	})
	elapsed := time.Since(start)

	out := e.settle(opCtx, seq, req, f, err, elapsed)
	if out.Err != nil {
		e.tracer.RecordErrorOnSpan(span, out.Err)
	}
	e.observe(req, out)
	return out
}

// settle decides the outcome and applies it to the cache while holding the
// engine lock, so Cancel and newer requests cannot interleave.
func (e *Engine) settle(ctx context.Context, seq uint64, req Request, f fetched, err error, elapsed time.Duration) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if seq != e.token || !e.isAlive() {
		byUser := seq == e.cancelledToken && e.isAlive()
		e.log.DebugWithContext(ctx, "discarding result of superseded request", nil, e.fields(req, map[string]interface{}{
			"token":         seq,
			"current_token": e.token,
			"by_user":       byUser,
		}))
		return Outcome{
			Elapsed: elapsed,
			Err:     &QueryError{Kind: KindCancelled, Superseded: !byUser, Cause: err},
		}
	}

	e.executing = false
	e.inFlight = nil

	switch {
	case err == nil:
		snap := f.snapshot(req)
		version := e.cache.Replace(snap)
		e.cache.ForgetTable(f.written)
		out := outcomeFromSnapshot(snap)
		out.Version = version
		out.Elapsed = elapsed
		out.RowsAffected = f.rowsAffected
		out.Truncated = f.truncated
		out.QueryType = f.queryType
		e.log.DebugWithContext(ctx, "query succeeded", nil, e.fields(req, map[string]interface{}{
			"rows":       len(out.Rows),
			"elapsed_ms": elapsed.Milliseconds(),
			"version":    uint64(version),
		}))
		return out

	case race.IsTimeout(err):
		e.log.WarnWithContext(ctx, "query timed out", err, e.fields(req, map[string]interface{}{"timeout": e.cfg.Timeout.String()}))
		return Outcome{Elapsed: elapsed, Err: &QueryError{Kind: KindTimeout, Cause: err}}

	case race.IsCancelled(err):
		return Outcome{Elapsed: elapsed, Err: &QueryError{Kind: KindCancelled, Cause: err}}

	default:
		e.cache.Invalidate()
		e.log.InfoWithContext(ctx, "query failed", err, e.fields(req))
		return Outcome{Elapsed: elapsed, Err: &QueryError{Kind: KindQueryFailed, Message: err.Error(), Cause: err}}
	}
}

// Cancel aborts the request in flight and clears the current result. The
// cancelled Execute reports a KindCancelled error that is not superseded.
func (e *Engine) Cancel() results.Version {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.executing {
		e.cancelledToken = e.token
	}
	e.token++
	e.cancelInFlightLocked()
	e.executing = false
	v := e.cache.Clear()

	e.log.Debug("query cancelled", nil, map[string]interface{}{"owner": e.owner, "version": uint64(v)})
	return v
}

// SelectTable makes the cached result of ref current, or clears the current
// result when ref has never been loaded. Any request in flight is superseded.
// It reports whether a cached result is now current.
func (e *Engine) SelectTable(ref database.TableRef) (Outcome, bool) {
	id := results.BrowseIdentity(ref)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.supersedeLocked()

	if cur, ok := e.cache.Current(); ok && results.ShouldUseCachedResults(cur.HasResults(), cur.ID, id) {
		out := outcomeFromSnapshot(cur)
		out.FromCache = true
		return out, true
	}
	if snap, ok := e.cache.Activate(id); ok {
		out := outcomeFromSnapshot(snap)
		out.FromCache = true
		return out, true
	}
	e.cache.Clear()
	return Outcome{}, false
}

// Current returns the current result as an outcome.
func (e *Engine) Current() (Outcome, bool) {
	snap, ok := e.cache.Current()
	if !ok {
		return Outcome{}, false
	}
	out := outcomeFromSnapshot(snap)
	out.FromCache = true
	return out, true
}

func (e *Engine) fromCache(req Request) (Outcome, bool) {
	id := req.Identity()
	page := req.Page
	size := e.pageSize(req)

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok := e.cache.Lookup(id)
	if !ok || snap.Pagination.Page != page || snap.Pagination.PageSize != size {
		return Outcome{}, false
	}

	e.supersedeLocked()
	if cur, ok := e.cache.Current(); !ok || !results.ShouldUseCachedResults(cur.HasResults(), cur.ID, id) {
		if snap, ok = e.cache.Activate(id); !ok {
			return Outcome{}, false
		}
	} else {
		snap = cur
	}

	out := outcomeFromSnapshot(snap)
	out.FromCache = true
	e.log.Debug("serving browse from cache", nil, e.fields(req))
	return out, true
}

func (e *Engine) supersedeLocked() {
	e.token++
	e.cancelInFlightLocked()
	e.executing = false
}

func (e *Engine) cancelInFlightLocked() {
	if e.inFlight != nil {
		e.inFlight.Cancel()
		e.inFlight = nil
	}
}

// abandon runs when the caller's context ends a request before it settled.
func (e *Engine) abandon(tok *race.Token) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight != tok {
		return
	}
	e.inFlight = nil
	e.executing = false
	e.log.Debug("query abandoned by caller", nil, map[string]interface{}{"owner": e.owner, "token": e.token})
}

func (e *Engine) isAlive() bool {
	return e.alive == nil || e.alive()
}

func (e *Engine) pageSize(req Request) int {
	if req.PageSize > 0 {
		return req.PageSize
	}
	return e.cfg.PageSize
}

func (e *Engine) fields(req Request, extra ...map[string]interface{}) map[string]interface{} {
	f := map[string]interface{}{
		"owner":     e.owner,
		"operation": req.operation(),
		"identity":  req.Identity(),
	}
	for _, m := range extra {
		for k, v := range m {
			f[k] = v
		}
	}
	return f
}

func (e *Engine) observe(req Request, out Outcome) {
	if e.observer == nil {
		return
	}
	op := observability.OperationContext{
		Component:   "query",
		Operation:   req.operation(),
		Resource:    req.Identity(),
		SubResource: e.owner,
		Duration:    out.Elapsed,
		Size:        int64(len(out.Rows)),
	}
	if out.Err != nil {
		op.Error = out.Err
		switch {
		case out.Err.Superseded:
			op.Status = "superseded"
		case out.Err.Kind != KindQueryFailed:
			op.Status = out.Err.Kind.String()
		}
	}
	if out.RowsAffected > 0 {
		op.Size = out.RowsAffected
	}
	e.observer.ObserveOperation(op)
}
