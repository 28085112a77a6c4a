// Package connection owns the single live database handle of a workspace tab.
//
// A Manager moves through Disconnected, Connecting, Connected and
// Disconnecting, and ends in ShutDown once Shutdown is called. The handle is
// never returned to callers; it is only reachable inside WithConnection,
// which serialises its use:
//
//	rows, err := connection.Do(ctx, mgr, func(ctx context.Context, h database.Handle) ([]string, error) {
//		r, err := h.Query(ctx, "SELECT name FROM users")
//		...
//	})
//
// # Superseded connects
//
// Every Connect takes a connect token. A newer Connect for the same
// context, a Disconnect or a Shutdown invalidates the token of an attempt
// still in flight; that attempt closes the handle it may have opened and
// returns a *database.ConnectionError of kind KindCancelled without touching
// the state owned by the newer request. The last writer always wins.
//
// # Disconnect and Shutdown
//
// Disconnect releases the handle but keeps the event broker and the health
// monitor so a later Connect is cheap. Shutdown releases everything, closes
// all subscriber channels and cannot be undone.
//
// # Health monitoring
//
// With Config.HealthCheckInterval set, a background goroutine pings the live
// handle. A failed ping releases the handle and publishes a StateEvent that
// carries the error.
package connection
