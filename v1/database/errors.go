package database

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Aleph-Alpha/workbench/v1/race"
)

// Common connection errors. A *ConnectionError matches the sentinel of its
// Kind with errors.Is.
var (
	ErrAuthenticationFailed     = errors.New("authentication failed")
	ErrDatabaseNotFound         = errors.New("database not found")
	ErrNetworkUnreachable       = errors.New("network unreachable")
	ErrConnectionTimeout        = errors.New("connection timed out")
	ErrConnectionCancelled      = errors.New("connection cancelled")
	ErrConnectionUnknown        = errors.New("connection failed")
	ErrInvalidConnectionContext = errors.New("invalid connection context")
	ErrUnknownDriver            = errors.New("unknown driver")
)

// ErrorKind classifies a failed connection attempt.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthenticationFailed
	KindDatabaseNotFound
	KindNetworkUnreachable
	KindTimeout
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindDatabaseNotFound:
		return "database_not_found"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAuthenticationFailed:
		return ErrAuthenticationFailed
	case KindDatabaseNotFound:
		return ErrDatabaseNotFound
	case KindNetworkUnreachable:
		return ErrNetworkUnreachable
	case KindTimeout:
		return ErrConnectionTimeout
	case KindCancelled:
		return ErrConnectionCancelled
	default:
		return ErrConnectionUnknown
	}
}

// ConnectionError is the typed failure of a connect attempt.
type ConnectionError struct {
	Kind ErrorKind

	// Database is set for KindDatabaseNotFound.
	Database string

	// Cause is the underlying driver or network error, if any.
	Cause error
}

// NewConnectionError builds a ConnectionError of the given kind.
func NewConnectionError(kind ErrorKind, cause error) *ConnectionError {
	return &ConnectionError{Kind: kind, Cause: cause}
}

func (e *ConnectionError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Kind == KindDatabaseNotFound && e.Database != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Database)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel belonging to e.Kind.
func (e *ConnectionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// ConnectionErrorKind returns the kind of err when it is a *ConnectionError,
// and KindUnknown otherwise.
func ConnectionErrorKind(err error) ErrorKind {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// ClassifyError maps errors common to every driver onto a ConnectionError:
// race and context timeouts and cancellations, and net.Error values.
// Drivers call it after checking their own native error codes.
func ClassifyError(err error) *ConnectionError {
	if err == nil {
		return nil
	}

	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, race.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return NewConnectionError(KindTimeout, err)
	case errors.Is(err, race.ErrCancelled), errors.Is(err, context.Canceled):
		return NewConnectionError(KindCancelled, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewConnectionError(KindTimeout, err)
		}
		return NewConnectionError(KindNetworkUnreachable, err)
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return NewConnectionError(KindNetworkUnreachable, err)
	}

	return NewConnectionError(KindUnknown, err)
}
