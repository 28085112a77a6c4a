package mutation

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/observability"
	"github.com/Aleph-Alpha/workbench/v1/query"
	"github.com/Aleph-Alpha/workbench/v1/race"
	"github.com/Aleph-Alpha/workbench/v1/results"
	"github.com/Aleph-Alpha/workbench/v1/tracer"
)

// Target is what an Editor needs from a tab's query engine.
type Target interface {
	Cache() *results.Cache
	Connection() query.Connection
	Config() query.Config
}

var _ Target = (*query.Engine)(nil)

// Editor edits and deletes rows of the current result of one tab.
type Editor struct {
	target Target
	guard  *Guard
	log    logger.Logger

	observer observability.Observer
	tracer   *tracer.Tracer
}

// NewEditor returns an editor for the current result of target.
func NewEditor(target Target, log logger.Logger) *Editor {
	return &Editor{
		target: target,
		guard:  NewGuard(target.Cache()),
		log:    log,
	}
}

// WithObserver sets the observer and returns ed for chaining.
func (ed *Editor) WithObserver(o observability.Observer) *Editor {
	ed.observer = o
	return ed
}

// WithTracer sets the tracer and returns ed for chaining.
func (ed *Editor) WithTracer(t *tracer.Tracer) *Editor {
	ed.tracer = t
	return ed
}

// UpdateCell sets column of the row at index to value, locally first and
// then on the server.
func (ed *Editor) UpdateCell(ctx context.Context, row int, column string, value any) (err error) {
	ctx, span := ed.tracer.StartSpan(ctx, "mutation.update_cell")
	defer span.End()
	start := time.Now()
	var table string
	defer func() {
		ed.tracer.RecordErrorOnSpan(span, err)
		ed.observe("update_cell", table, time.Since(start), 1, err)
	}()

	ticket, snap, err := ed.begin()
	if err != nil {
		return err
	}
	table = snap.Table.ID()
	if row < 0 || row >= len(snap.Rows) {
		return newError(KindNoRowsSelected, fmt.Errorf("row %d out of range", row))
	}
	col := slices.Index(snap.Columns, column)
	if col < 0 {
		return newError(KindUpdateFailed, fmt.Errorf("unknown column %q", column))
	}
	keys, err := keyValues(snap, snap.Rows[row])
	if err != nil {
		return err
	}

	original := snap.Rows
	cache := ed.target.Cache()
	if !cache.Mutate(ticket.Start(), func(s *results.Snapshot) { s.Rows[row][col] = value }) {
		return newError(KindUpdateFailed, ErrResultChanged)
	}

	affected, err := ed.exec(ctx, func(d database.Dialect) (string, []any) {
		return d.UpdateCellQuery(snap.Table, column, snap.PrimaryKey), append([]any{value}, keys...)
	})
	if err == nil && affected == 0 {
		err = ErrRowNotFound
	}
	if err != nil {
		rerr := newError(KindUpdateFailed, err)
		rerr.RolledBack = ticket.Rollback(func() bool { return cache.Restore(ticket.Start(), original) })
		ed.log.Warn("cell update failed", err, map[string]interface{}{
			"table":       table,
			"column":      column,
			"rolled_back": rerr.RolledBack,
		})
		return rerr
	}
	return nil
}

// DeleteRows deletes the rows at the given indexes, locally first and then
// on the server one statement per row. It returns the number of rows the
// server deleted. On failure rows not deleted on the server are restored.
func (ed *Editor) DeleteRows(ctx context.Context, rowIndexes []int) (deleted int64, err error) {
	ctx, span := ed.tracer.StartSpan(ctx, "mutation.delete_rows")
	defer span.End()
	start := time.Now()
	var table string
	defer func() {
		ed.tracer.RecordErrorOnSpan(span, err)
		ed.observe("delete_rows", table, time.Since(start), deleted, err)
	}()

	ticket, snap, err := ed.begin()
	if err != nil {
		return 0, err
	}
	table = snap.Table.ID()

	idx := slices.Clone(rowIndexes)
	slices.Sort(idx)
	idx = slices.Compact(idx)
	if len(idx) == 0 {
		return 0, newError(KindNoRowsSelected, nil)
	}
	if idx[0] < 0 || idx[len(idx)-1] >= len(snap.Rows) {
		return 0, newError(KindNoRowsSelected, fmt.Errorf("row index out of range"))
	}

	keys := make([][]any, len(idx))
	for i, r := range idx {
		if keys[i], err = keyValues(snap, snap.Rows[r]); err != nil {
			return 0, err
		}
	}

	original := snap.Rows
	cache := ed.target.Cache()
	if !cache.Mutate(ticket.Start(), func(s *results.Snapshot) { s.Rows = removeRows(s.Rows, idx) }) {
		return 0, newError(KindDeleteFailed, ErrResultChanged)
	}

	done := 0
	runErr := ed.target.Connection().WithConnection(ctx, func(ctx context.Context, h database.Handle) error {
		sql := h.Dialect().DeleteRowQuery(snap.Table, snap.PrimaryKey)
		for _, k := range keys {
			n, err := race.Run(ctx, ed.target.Config().Timeout, func(ctx context.Context) (int64, error) {
				return h.Exec(ctx, sql, k...)
			})
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrRowNotFound
			}
			deleted += n
			done++
		}
		return nil
	})
	if runErr == nil {
		return deleted, nil
	}

	rerr := newError(KindDeleteFailed, runErr)
	remaining := removeRows(original, idx[:done])
	rerr.RolledBack = ticket.Rollback(func() bool { return cache.Restore(ticket.Start(), remaining) })
	ed.log.Warn("row delete failed", runErr, map[string]interface{}{
		"table":       table,
		"deleted":     deleted,
		"requested":   len(idx),
		"rolled_back": rerr.RolledBack,
	})
	return deleted, rerr
}

// begin validates the current result and captures its version.
func (ed *Editor) begin() (Ticket, results.Snapshot, error) {
	ticket := ed.guard.Begin()
	snap, ok := ed.target.Cache().Current()
	switch {
	case !ok || snap.Table.IsZero():
		return ticket, snap, newError(KindNoTableSelected, nil)
	case snap.Version != ticket.Start():
		return ticket, snap, newError(KindUpdateFailed, ErrResultChanged)
	case snap.MetadataErr != nil:
		return ticket, snap, newError(KindMetadataFetchFailed, snap.MetadataErr)
	case len(snap.PrimaryKey) == 0:
		return ticket, snap, newError(KindNoPrimaryKey, nil)
	}
	return ticket, snap, nil
}

func (ed *Editor) exec(ctx context.Context, build func(d database.Dialect) (string, []any)) (int64, error) {
	var affected int64
	err := ed.target.Connection().WithConnection(ctx, func(ctx context.Context, h database.Handle) error {
		sql, args := build(h.Dialect())
		n, err := race.Run(ctx, ed.target.Config().Timeout, func(ctx context.Context) (int64, error) {
			return h.Exec(ctx, sql, args...)
		})
		affected = n
		return err
	})
	return affected, err
}

func (ed *Editor) observe(operation, table string, d time.Duration, size int64, err error) {
	if ed.observer == nil {
		return
	}
	ed.observer.ObserveOperation(observability.OperationContext{
		Component: "mutation",
		Operation: operation,
		Resource:  table,
		Duration:  d,
		Error:     err,
		Size:      size,
	})
}

// keyValues picks the primary key values of row in key order.
func keyValues(snap results.Snapshot, row []any) ([]any, error) {
	keys := make([]any, len(snap.PrimaryKey))
	for i, pk := range snap.PrimaryKey {
		col := slices.Index(snap.Columns, pk)
		if col < 0 || col >= len(row) {
			return nil, newError(KindNoPrimaryKey, fmt.Errorf("key column %q not in result", pk))
		}
		keys[i] = row[col]
	}
	return keys, nil
}

// removeRows returns rows without the sorted indexes idx.
func removeRows(rows [][]any, idx []int) [][]any {
	out := make([][]any, 0, len(rows))
	next := 0
	for i, r := range rows {
		if next < len(idx) && idx[next] == i {
			next++
			continue
		}
		out = append(out, r)
	}
	return out
}
