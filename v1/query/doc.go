// Package query runs SQL and table-browse requests for one tab.
//
// An Engine races every request against a timeout, serialises its own
// request lifecycle with an execution token and stamps successful results
// with a results.Version. A result that arrives after a newer Execute, a
// Cancel or a table switch, or after the tab was closed, is discarded
// without touching the cache.
//
// Execute never returns an error; failures are reported in the Outcome as a
// *QueryError whose Kind tells timeouts, cancellations and query failures
// apart. A superseded cancellation has Superseded set and is not meant to be
// shown to the user.
package query
