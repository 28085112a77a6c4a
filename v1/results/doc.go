// Package results holds the per-tab result cache: the current result set,
// the previous one kept for inspection after a failure, and a small LRU of
// snapshots keyed by the table or query that produced them so switching
// back to an already loaded table does not flicker or re-query.
//
// Every replacement of the current result bumps a monotonically increasing
// Version. Optimistic row edits capture the version before they start and
// only roll back through Restore when the version is unchanged.
package results
