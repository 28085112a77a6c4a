package race

import "errors"

var (
	// ErrTimeout is returned by Run when the timer fires before the operation completes.
	ErrTimeout = errors.New("race: operation timed out")

	// ErrCancelled is returned by Run when the parent context is cancelled first.
	ErrCancelled = errors.New("race: operation cancelled")
)

// IsTimeout reports whether err is, or wraps, ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCancelled reports whether err is, or wraps, ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
