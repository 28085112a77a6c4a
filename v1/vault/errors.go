package vault

import "errors"

var (
	// ErrNotFound is returned when no secret is stored for an id.
	ErrNotFound = errors.New("vault: secret not found")

	// ErrEmptyID is returned for operations without a connection id.
	ErrEmptyID = errors.New("vault: empty id")
)

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
