// Package race runs blocking operations against a timer and carries the
// cancellation tokens the connection and query layers pass through their
// call chains.
//
// Every driver call in the workbench goes through Run, so timeout and
// cancellation semantics are the same for connecting, querying, pinging
// and row mutations:
//
//	rows, err := race.Run(ctx, 15*time.Second, func(ctx context.Context) ([]Row, error) {
//	    return handle.Query(ctx, sql)
//	})
//	if errors.Is(err, race.ErrTimeout) {
//	    // offer retry
//	}
//
// The operation receives a context that is cancelled as soon as the race is
// decided, so a driver that honours its context abandons the call instead of
// running on in the background.
package race
