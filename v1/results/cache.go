package results

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

// DefaultMaxEntries bounds the number of cached snapshots per tab.
const DefaultMaxEntries = 8

// Version identifies a generation of the current result.
type Version uint64

// Snapshot is one result set. Rows are shared with the cache and must be
// treated as read-only; use Cache.Mutate to change them.
type Snapshot struct {
	ID         string
	Columns    []string
	Rows       [][]any
	Pagination Pagination
	FetchedAt  time.Time

	// Table is set when the rows map onto a single table.
	Table database.TableRef

	// PrimaryKey is empty when the table has none or metadata failed.
	PrimaryKey []string

	// MetadataErr is set when the primary key lookup failed.
	MetadataErr error

	// Version is the cache version this snapshot became current at.
	Version Version
}

// HasResults reports whether columns are present. Rows and columns are
// always set or cleared together.
func (s Snapshot) HasResults() bool {
	return s.Columns != nil
}

// Editable reports whether rows can be addressed by primary key.
func (s Snapshot) Editable() bool {
	return !s.Table.IsZero() && len(s.PrimaryKey) > 0 && s.MetadataErr == nil
}

// Cache is the result cache of one tab. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	maxEntries int
	version    Version
	current    *Snapshot
	previous   *Snapshot
	lru        *list.List
	entries    map[string]*list.Element
}

// NewCache returns an empty cache holding up to maxEntries snapshots;
// maxEntries <= 0 selects DefaultMaxEntries.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		lru:        list.New(),
		entries:    make(map[string]*list.Element),
	}
}

// Current returns the current result.
func (c *Cache) Current() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Snapshot{}, false
	}
	return *c.current, true
}

// Previous returns the result that was current before the last
// replacement, invalidation or clear.
func (c *Cache) Previous() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.previous == nil {
		return Snapshot{}, false
	}
	return *c.previous, true
}

// Version returns the current generation.
func (c *Cache) Version() Version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Replace makes s the current result, stores it under s.ID and bumps the
// version. Rows and columns are normalised so both are non-nil.
func (c *Cache) Replace(s Snapshot) Version {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.Columns == nil {
		s.Columns = []string{}
	}
	if s.Rows == nil {
		s.Rows = [][]any{}
	}
	if s.FetchedAt.IsZero() {
		s.FetchedAt = time.Now()
	}
	c.version++
	s.Version = c.version

	snap := &s
	c.setCurrent(snap)
	c.store(snap)
	return c.version
}

// Invalidate drops the current result after a failed query. The version is
// unchanged and the dropped result stays reachable through Previous.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCurrent(nil)
}

// Clear drops the current result and bumps the version.
func (c *Cache) Clear() Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCurrent(nil)
	c.version++
	return c.version
}

// Lookup returns the cached snapshot for id.
func (c *Cache) Lookup(id string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	el, ok := c.entries[id]
	if !ok {
		return Snapshot{}, false
	}
	return *el.Value.(*Snapshot), true
}

// Activate makes the cached snapshot for id current and bumps the version.
// It reports false, changing nothing, when id is not cached.
func (c *Cache) Activate(id string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[id]
	if !ok {
		return Snapshot{}, false
	}
	c.lru.MoveToFront(el)

	c.version++
	snap := *el.Value.(*Snapshot)
	snap.Version = c.version
	el.Value = &snap
	c.setCurrent(&snap)
	return snap, true
}

// ForgetTable drops every cached snapshot whose rows come from ref, except
// the current result. An unqualified ref matches the table in any schema.
func (c *Cache) ForgetTable(ref database.TableRef) {
	if ref.IsZero() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		s := el.Value.(*Snapshot)
		isCurrent := c.current != nil && c.current.ID == s.ID
		if !isCurrent && sameTable(s.Table, ref) {
			c.lru.Remove(el)
			delete(c.entries, s.ID)
		}
		el = next
	}
}

func sameTable(cached, written database.TableRef) bool {
	if cached.IsZero() || !strings.EqualFold(cached.Table, written.Table) {
		return false
	}
	return cached.Schema == "" || written.Schema == "" || strings.EqualFold(cached.Schema, written.Schema)
}

// Mutate runs fn on a copy of the current result and installs the copy,
// provided the version still equals expected. The version is not bumped.
// It reports whether fn ran.
func (c *Cache) Mutate(expected Version, fn func(s *Snapshot)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.version != expected {
		return false
	}

	snap := *c.current
	snap.Rows = cloneRows(snap.Rows)
	fn(&snap)
	snap.Version = c.version

	c.current = &snap
	c.store(&snap)
	return true
}

// Restore puts rows back into the current result iff the version still
// equals expected. Used to roll back optimistic edits.
func (c *Cache) Restore(expected Version, rows [][]any) bool {
	return c.Mutate(expected, func(s *Snapshot) {
		s.Rows = cloneRows(rows)
	})
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

func (c *Cache) setCurrent(s *Snapshot) {
	if c.current != nil {
		c.previous = c.current
	}
	c.current = s
}

func (c *Cache) store(s *Snapshot) {
	if s.ID == "" {
		return
	}
	if el, ok := c.entries[s.ID]; ok {
		el.Value = s
		c.lru.MoveToFront(el)
		return
	}
	c.entries[s.ID] = c.lru.PushFront(s)
	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*Snapshot).ID)
	}
}

func cloneRows(rows [][]any) [][]any {
	if rows == nil {
		return nil
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
