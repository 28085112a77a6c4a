// Package pubsub fans typed events out to in-process subscribers.
//
// A Broker never blocks its publisher: every subscriber owns a buffered
// channel and an event that does not fit is dropped for that subscriber
// only. Publish reports how many deliveries were dropped so callers can log
// slow consumers.
//
//	b := pubsub.NewBroker[StateEvent](16)
//	events := b.Subscribe(ctx) // closed when ctx ends or b closes
//	b.Publish(StateEvent{From: StateConnecting, To: StateConnected})
package pubsub
