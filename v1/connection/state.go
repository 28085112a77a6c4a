package connection

import "time"

// State is the lifecycle state of a Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateShutDown:
		return "shut_down"
	default:
		return "unknown"
	}
}

// StateEvent is published on every state transition.
type StateEvent struct {
	From      State
	To        State
	ContextID string

	// Err is set when the transition was caused by a failure.
	Err error
	At  time.Time
}
