package connection

import "errors"

var (
	// ErrNotConnected is returned by WithConnection unless the manager is Connected.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrAlreadyConnected is returned by Connect while another context is
	// connecting or connected. Disconnect first.
	ErrAlreadyConnected = errors.New("connection: already connected to a different context")

	// ErrShutDown is returned by every call after Shutdown.
	ErrShutDown = errors.New("connection: manager is shut down")

	// ErrSuperseded is the cause of a KindCancelled connection error when a
	// newer request took over.
	ErrSuperseded = errors.New("connection: superseded by a newer request")
)
