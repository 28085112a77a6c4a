package tabs

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Restore rebuilds the tabs from the record store, in order, and activates
// the persisted active tab or else the most recently used one. With nothing
// persisted a fresh tab is created.
func (s *Synchronizer) Restore(ctx context.Context) ([]TabContext, error) {
	records, err := s.deps.Store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("tabs: loading tabs: %w", err)
	}
	slices.SortStableFunc(records, func(a, b TabRecord) int { return a.Order - b.Order })

	s.mu.Lock()
	if s.shutDown {
		s.mu.Unlock()
		return nil, ErrShutDown
	}
	if len(s.tabs) > 0 {
		s.mu.Unlock()
		return nil, ErrAlreadyRestored
	}

	var active *Tab
	for _, r := range records {
		t := s.buildTab(r.context())
		s.tabs = append(s.tabs, t)
		_ = s.deps.Store.Upsert(ctx, t.ctx.record())
		if r.IsActive && active == nil {
			active = t
		}
	}
	if active == nil {
		active = s.mostRecentLocked()
	}
	events := make([]Event, 0, len(s.tabs)+1)
	if active == nil {
		active = s.newTabLocked(nil)
	}
	for _, t := range s.tabs {
		events = append(events, Event{Type: EventCreated, Tab: t.ctx})
	}
	events = append(events, s.activateLocked(active)...)
	s.reportOpenTabsLocked()
	restored := make([]TabContext, len(s.tabs))
	for i, t := range s.tabs {
		restored[i] = t.ctx
	}
	s.mu.Unlock()

	s.publish(events...)
	s.log.Info("tabs restored", nil, map[string]interface{}{
		"tabs":   len(restored),
		"active": active.ctx.ID,
	})
	return restored, s.Flush(ctx)
}

// Flush writes buffered tab changes to the record store.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if err := s.deps.Store.Save(ctx); err != nil {
		return fmt.Errorf("tabs: flushing: %w", err)
	}
	return nil
}

// Start runs the checkpoint loop until Shutdown.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loopCancel != nil || s.shutDown {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.loopCancel = cancel
	s.loopDone = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.cfg.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Flush(ctx); err != nil && ctx.Err() == nil {
					s.log.Error("checkpoint failed", err, nil)
				}
			}
		}
	}(s.loopDone)
}

// Shutdown stops the checkpoint loop, shuts down every tab's connection
// concurrently and performs a final flush. Tabs stay in memory so the final
// flush records them for the next Restore.
func (s *Synchronizer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutDown {
		s.mu.Unlock()
		return nil
	}
	s.shutDown = true
	cancel, done := s.loopCancel, s.loopDone
	tabs := slices.Clone(s.tabs)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ShutdownConcurrency)
	for _, t := range tabs {
		g.Go(func() error {
			t.engine.Cancel()
			return t.manager.Shutdown(gctx)
		})
	}
	teardownErr := g.Wait()
	if teardownErr != nil {
		s.log.Warn("tab teardown failed", teardownErr, nil)
	}

	flushErr := s.Flush(ctx)
	s.events.Close()
	s.reportGauges()
	s.log.Info("tabs shut down", nil, map[string]interface{}{"tabs": len(tabs)})

	if flushErr != nil {
		return flushErr
	}
	return teardownErr
}
