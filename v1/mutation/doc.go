// Package mutation applies row edits and deletes optimistically.
//
// An edit is applied to the cached result first and then sent to the
// server by primary key. If the server rejects it, the local change is
// rolled back only when the result version captured at the start still
// matches: a newer query may have replaced the rows in the meantime, and
// restoring the old ones would corrupt an unrelated result.
package mutation
