package store

import "errors"

var (
	// ErrCorrupt is returned when the file backend cannot decode its document.
	ErrCorrupt = errors.New("store: corrupt document")

	// ErrUnsupportedBackend is returned by New for unknown backends.
	ErrUnsupportedBackend = errors.New("store: unsupported backend")

	// ErrInvalidConfig is returned when a backend is missing required settings.
	ErrInvalidConfig = errors.New("store: invalid config")
)
