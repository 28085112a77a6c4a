// Package tabs keeps the open workspace tabs in memory and checkpoints them
// to a store.RecordStore.
//
// Every tab owns a connection.Manager, a query.Engine with its result cache
// and a mutation.Editor. Different tabs never share locks; a slow query in
// one tab does not hold up another.
//
// # Write-through
//
// Mutations change memory first, publish an Event and buffer a write in
// the record store. Flushing follows a fixed policy:
//
//   - CreateTab, CloseTab, SwitchToTab and Restore save immediately.
//   - UpdateTab, SelectTable and the results of RunQuery, Connect and
//     row edits are saved by the checkpoint loop every FlushInterval, or by
//     an explicit Flush.
//   - Shutdown performs a final Flush.
//
// Persisted records are a checkpoint for restarts. They are read by Restore
// only and never drive in-memory decisions.
//
// # Closing tabs mid-operation
//
// CloseTab marks the tab pending deletion before anything else. Work that
// resumes after I/O (a query, a connect, an edit) checks the mark and
// leaves the tab untouched when it is set.
package tabs
