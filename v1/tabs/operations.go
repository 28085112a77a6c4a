package tabs

import (
	"context"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/query"
)

// RunQuery executes req on the tab's engine. A request with neither text
// nor a table runs the tab's saved query text.
func (s *Synchronizer) RunQuery(ctx context.Context, id string, req query.Request) (query.Outcome, error) {
	t, err := s.resolve(id)
	if err != nil {
		return query.Outcome{}, err
	}
	if !req.IsBrowse() && req.Text == "" {
		s.mu.Lock()
		req.Text = t.ctx.QueryText
		s.mu.Unlock()
	}

	out := t.engine.Execute(ctx, req)

	s.mu.Lock()
	if t.pendingDeletion.Load() {
		s.mu.Unlock()
		s.log.Debug("tab closed while query was running", nil, map[string]interface{}{"tab_id": id})
		return out, nil
	}
	if out.Err != nil && out.Err.Superseded {
		s.mu.Unlock()
		return out, nil
	}
	if req.IsBrowse() && out.Success {
		ref := *req.Browse
		t.ctx.SelectedTable = &ref
	} else if !req.IsBrowse() {
		t.ctx.QueryText = req.Text
	}
	s.mirrorLocked(t)
	updated := s.touchLocked(t)
	s.mu.Unlock()

	s.publish(Event{Type: EventUpdated, Tab: updated})
	return out, nil
}

// CancelQuery aborts the tab's running query and clears its result.
func (s *Synchronizer) CancelQuery(id string) error {
	t, err := s.resolve(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if t.pendingDeletion.Load() {
		s.mu.Unlock()
		return ErrTabPendingDeletion
	}
	t.engine.Cancel()
	s.mirrorLocked(t)
	updated := t.ctx
	s.mu.Unlock()

	s.publish(Event{Type: EventUpdated, Tab: updated})
	return nil
}

// SelectTable selects ref in the tab and shows its cached result when one
// exists. It reports whether a cached result is shown; otherwise the caller
// browses the table.
func (s *Synchronizer) SelectTable(id string, ref database.TableRef) (query.Outcome, bool, error) {
	t, err := s.resolve(id)
	if err != nil {
		return query.Outcome{}, false, err
	}

	s.mu.Lock()
	if t.pendingDeletion.Load() {
		s.mu.Unlock()
		return query.Outcome{}, false, ErrTabPendingDeletion
	}
	out, cached := t.engine.SelectTable(ref)
	t.ctx.SelectedTable = &ref
	s.mirrorLocked(t)
	updated := s.touchLocked(t)
	s.mu.Unlock()

	s.publish(Event{Type: EventUpdated, Tab: updated})
	return out, cached, nil
}

// Connect connects the tab to cc.
func (s *Synchronizer) Connect(ctx context.Context, id string, cc database.ConnectionContext) error {
	t, err := s.resolve(id)
	if err != nil {
		return err
	}

	err = t.manager.Connect(ctx, cc)

	s.mu.Lock()
	if t.pendingDeletion.Load() || err != nil {
		s.mu.Unlock()
		s.reportGauges()
		return err
	}
	t.ctx.ConnectionContextID = cc.ID
	t.ctx.DatabaseName = cc.Database
	updated := s.touchLocked(t)
	s.mu.Unlock()

	s.reportGauges()
	s.publish(Event{Type: EventUpdated, Tab: updated})
	return nil
}

// Disconnect releases the tab's connection. The tab keeps its connection
// id so it can reconnect.
func (s *Synchronizer) Disconnect(ctx context.Context, id string) error {
	t, err := s.resolve(id)
	if err != nil {
		return err
	}
	err = t.manager.Disconnect(ctx)
	s.reportGauges()
	return err
}

// TestConnection probes cc without touching the tab's connection.
func (s *Synchronizer) TestConnection(ctx context.Context, id string, cc database.ConnectionContext) error {
	t, err := s.resolve(id)
	if err != nil {
		return err
	}
	return t.manager.TestConnection(ctx, cc)
}

// ConnectionState returns the state of the tab's connection manager.
func (s *Synchronizer) ConnectionState(id string) (string, error) {
	t, err := s.resolve(id)
	if err != nil {
		return "", err
	}
	return t.manager.State().String(), nil
}

// UpdateCell edits one cell of the tab's current result.
func (s *Synchronizer) UpdateCell(ctx context.Context, id string, row int, column string, value any) error {
	t, err := s.resolve(id)
	if err != nil {
		return err
	}
	err = t.editor.UpdateCell(ctx, row, column, value)
	s.afterEdit(t)
	return err
}

// DeleteRows deletes rows of the tab's current result.
func (s *Synchronizer) DeleteRows(ctx context.Context, id string, rows []int) (int64, error) {
	t, err := s.resolve(id)
	if err != nil {
		return 0, err
	}
	n, err := t.editor.DeleteRows(ctx, rows)
	s.afterEdit(t)
	return n, err
}

func (s *Synchronizer) afterEdit(t *Tab) {
	s.mu.Lock()
	if t.pendingDeletion.Load() {
		s.mu.Unlock()
		return
	}
	s.mirrorLocked(t)
	updated := t.ctx
	s.mu.Unlock()
	s.publish(Event{Type: EventUpdated, Tab: updated})
}

// mirrorLocked copies the engine's current result into the tab context,
// keeping rows and columns consistent.
func (s *Synchronizer) mirrorLocked(t *Tab) {
	if cur, ok := t.engine.Cache().Current(); ok {
		t.ctx.CachedColumns = cur.Columns
		t.ctx.CachedRows = cur.Rows
		return
	}
	t.ctx.CachedColumns = nil
	t.ctx.CachedRows = nil
}
