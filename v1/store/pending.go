package store

import "sync"

type change[T Record] struct {
	id      string
	rec     T
	deleted bool
	seq     uint64
}

// pending is the ordered set of buffered changes shared by both backends.
// A later change to the same id replaces the earlier one.
type pending[T Record] struct {
	mu      sync.Mutex
	seq     uint64
	order   []string
	changes map[string]change[T]
}

func newPending[T Record]() *pending[T] {
	return &pending[T]{changes: make(map[string]change[T])}
}

func (p *pending[T]) upsert(rec T) {
	p.put(change[T]{id: rec.RecordID(), rec: rec})
}

func (p *pending[T]) remove(id string) {
	p.put(change[T]{id: id, deleted: true})
}

func (p *pending[T]) put(c change[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	c.seq = p.seq
	if _, ok := p.changes[c.id]; !ok {
		p.order = append(p.order, c.id)
	}
	p.changes[c.id] = c
}

// snapshot returns the buffered changes in first-touched order without
// clearing them.
func (p *pending[T]) snapshot() []change[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]change[T], 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.changes[id])
	}
	return out
}

// commit drops the changes of a successful snapshot. An id changed again
// after the snapshot was taken stays buffered.
func (p *pending[T]) commit(saved []change[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range saved {
		if cur, ok := p.changes[c.id]; ok && cur.seq == c.seq {
			delete(p.changes, c.id)
		}
	}
	kept := p.order[:0]
	for _, id := range p.order {
		if _, ok := p.changes[id]; ok {
			kept = append(kept, id)
		}
	}
	p.order = kept
}

func (p *pending[T]) empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order) == 0
}

// apply overlays changes on persisted records, keeping the persisted order
// and appending new records.
func apply[T Record](persisted []T, changes []change[T]) []T {
	if len(changes) == 0 {
		return persisted
	}

	byID := make(map[string]change[T], len(changes))
	for _, c := range changes {
		byID[c.id] = c
	}

	out := make([]T, 0, len(persisted)+len(changes))
	seen := make(map[string]struct{}, len(persisted))
	for _, rec := range persisted {
		id := rec.RecordID()
		seen[id] = struct{}{}
		c, ok := byID[id]
		switch {
		case !ok:
			out = append(out, rec)
		case !c.deleted:
			out = append(out, c.rec)
		}
	}
	for _, c := range changes {
		if _, ok := seen[c.id]; !ok && !c.deleted {
			out = append(out, c.rec)
		}
	}
	return out
}
