package query

import (
	"errors"
)

// Sentinels matched by a *QueryError of the corresponding Kind.
var (
	ErrQueryTimeout   = errors.New("query timed out")
	ErrQueryFailed    = errors.New("query failed")
	ErrQueryCancelled = errors.New("query cancelled")
)

// Kind classifies a failed request.
type Kind int

const (
	KindQueryFailed Kind = iota
	KindTimeout
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "query_failed"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrQueryTimeout
	case KindCancelled:
		return ErrQueryCancelled
	default:
		return ErrQueryFailed
	}
}

// QueryError is the typed failure of a request.
type QueryError struct {
	Kind Kind

	// Message is the server or driver message for KindQueryFailed.
	Message string

	// Superseded marks a cancellation caused by a newer action rather than
	// by the user. It needs no notification.
	Superseded bool

	Cause error
}

func (e *QueryError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Superseded {
		msg += " (superseded)"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel belonging to e.Kind.
func (e *QueryError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Notify reports whether the error should be shown to the user.
func (e *QueryError) Notify() bool {
	return e != nil && !e.Superseded
}
