package tabs

import (
	"time"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

// TabContext is the state of one open tab. Values handed out by the
// Synchronizer are copies; CachedRows is shared and must not be modified.
type TabContext struct {
	ID                  string
	ConnectionContextID string
	DatabaseName        string
	QueryText           string
	SelectedTable       *database.TableRef

	// CachedRows and CachedColumns mirror the current result. Both are
	// nil or both are set.
	CachedRows    [][]any
	CachedColumns []string

	IsActive        bool
	Order           int
	CreatedAt       time.Time
	LastAccessedAt  time.Time
	PendingDeletion bool
}

// HasResults reports whether a result is mirrored.
func (t TabContext) HasResults() bool {
	return t.CachedColumns != nil
}

func (t TabContext) record() TabRecord {
	r := TabRecord{
		ID:                  t.ID,
		ConnectionContextID: t.ConnectionContextID,
		DatabaseName:        t.DatabaseName,
		QueryText:           t.QueryText,
		IsActive:            t.IsActive,
		Order:               t.Order,
		CreatedAt:           t.CreatedAt,
		LastAccessedAt:      t.LastAccessedAt,
	}
	if t.SelectedTable != nil {
		r.SelectedSchema = t.SelectedTable.Schema
		r.SelectedTable = t.SelectedTable.Table
	}
	return r
}

// TabRecord is the persisted checkpoint of a tab. Cached rows are not
// persisted.
type TabRecord struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:36"`
	ConnectionContextID string    `json:"connection_context_id,omitempty"`
	DatabaseName        string    `json:"database_name,omitempty"`
	QueryText           string    `json:"query_text,omitempty"`
	SelectedSchema      string    `json:"selected_schema,omitempty"`
	SelectedTable       string    `json:"selected_table,omitempty"`
	IsActive            bool      `json:"is_active"`
	Order               int       `json:"order" gorm:"column:tab_order"`
	CreatedAt           time.Time `json:"created_at"`
	LastAccessedAt      time.Time `json:"last_accessed_at"`
}

// RecordID implements store.Record.
func (r TabRecord) RecordID() string {
	return r.ID
}

// TableName sets the gorm table.
func (TabRecord) TableName() string {
	return "workbench_tabs"
}

func (r TabRecord) context() TabContext {
	t := TabContext{
		ID:                  r.ID,
		ConnectionContextID: r.ConnectionContextID,
		DatabaseName:        r.DatabaseName,
		QueryText:           r.QueryText,
		Order:               r.Order,
		CreatedAt:           r.CreatedAt,
		LastAccessedAt:      r.LastAccessedAt,
	}
	if r.SelectedTable != "" {
		t.SelectedTable = &database.TableRef{Schema: r.SelectedSchema, Table: r.SelectedTable}
	}
	return t
}

// EventType names what happened to a tab.
type EventType int

const (
	EventCreated EventType = iota
	EventUpdated
	EventDeleted
	EventActivated
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	case EventActivated:
		return "activated"
	default:
		return "unknown"
	}
}

// Event is published after every in-memory change.
type Event struct {
	Type EventType
	Tab  TabContext
}

// Update carries the fields UpdateTab changes. Nil fields are left alone.
type Update struct {
	QueryText    *string
	DatabaseName *string

	// SelectedTable replaces the selection; ClearSelection removes it.
	SelectedTable  *database.TableRef
	ClearSelection bool
}
