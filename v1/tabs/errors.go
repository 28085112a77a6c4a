package tabs

import "errors"

var (
	// ErrTabNotFound is returned for ids that are not open.
	ErrTabNotFound = errors.New("tabs: tab not found")

	// ErrTabPendingDeletion is returned for tabs that are being closed.
	ErrTabPendingDeletion = errors.New("tabs: tab is being closed")

	// ErrAlreadyRestored is returned by Restore once tabs exist.
	ErrAlreadyRestored = errors.New("tabs: tabs already restored")

	// ErrShutDown is returned after Shutdown.
	ErrShutDown = errors.New("tabs: synchronizer is shut down")
)
