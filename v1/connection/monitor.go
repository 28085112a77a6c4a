package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/race"
)

// monitor periodically pings the live handle of a manager.
type monitor struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func startMonitor(m *Manager, interval time.Duration) *monitor {
	ctx, cancel := context.WithCancel(context.Background())
	mon := &monitor{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(mon.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.healthCheck(ctx)
			}
		}
	}()
	return mon
}

func (mon *monitor) stop() {
	mon.stopOnce.Do(mon.cancel)
	<-mon.done
}

func (m *Manager) healthCheck(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	seq := m.connectSeq
	m.mu.Unlock()

	err := m.WithConnection(ctx, func(ctx context.Context, h database.Handle) error {
		return race.Do(ctx, m.cfg.HealthCheckTimeout, h.Ping)
	})
	if err == nil || errors.Is(err, ErrNotConnected) || errors.Is(err, ErrShutDown) || ctx.Err() != nil {
		return
	}
	m.dropConnection(seq, err)
}
