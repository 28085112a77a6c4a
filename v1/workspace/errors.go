package workspace

import "errors"

// ErrUnknownConnection is returned when no saved connection matches.
var ErrUnknownConnection = errors.New("workspace: unknown connection")
