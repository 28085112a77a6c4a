package mutation

import (
	"errors"
)

// Sentinels matched by a *RowOperationError of the corresponding Kind.
var (
	ErrNoTableSelected     = errors.New("no table selected")
	ErrNoRowsSelected      = errors.New("no rows selected")
	ErrNoPrimaryKey        = errors.New("table has no primary key")
	ErrMetadataFetchFailed = errors.New("table metadata unavailable")
	ErrDeleteFailed        = errors.New("delete failed")
	ErrUpdateFailed        = errors.New("update failed")

	// ErrResultChanged is the cause when the result was replaced before
	// the edit could be applied.
	ErrResultChanged = errors.New("result changed")

	// ErrRowNotFound is the cause when the server matched no row by key.
	ErrRowNotFound = errors.New("row no longer exists")
)

// Kind classifies a failed row operation.
type Kind int

const (
	KindNoTableSelected Kind = iota
	KindNoRowsSelected
	KindNoPrimaryKey
	KindMetadataFetchFailed
	KindDeleteFailed
	KindUpdateFailed
)

func (k Kind) String() string {
	switch k {
	case KindNoTableSelected:
		return "no_table_selected"
	case KindNoRowsSelected:
		return "no_rows_selected"
	case KindNoPrimaryKey:
		return "no_primary_key"
	case KindMetadataFetchFailed:
		return "metadata_fetch_failed"
	case KindDeleteFailed:
		return "delete_failed"
	default:
		return "update_failed"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNoTableSelected:
		return ErrNoTableSelected
	case KindNoRowsSelected:
		return ErrNoRowsSelected
	case KindNoPrimaryKey:
		return ErrNoPrimaryKey
	case KindMetadataFetchFailed:
		return ErrMetadataFetchFailed
	case KindDeleteFailed:
		return ErrDeleteFailed
	default:
		return ErrUpdateFailed
	}
}

// RowOperationError is the typed failure of an edit or delete.
type RowOperationError struct {
	Kind  Kind
	Cause error

	// RolledBack reports whether the optimistic local change was undone.
	RolledBack bool
}

func newError(kind Kind, cause error) *RowOperationError {
	return &RowOperationError{Kind: kind, Cause: cause}
}

func (e *RowOperationError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RowOperationError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel belonging to e.Kind.
func (e *RowOperationError) Is(target error) bool {
	return target == e.Kind.sentinel()
}
