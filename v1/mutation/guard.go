package mutation

import "github.com/Aleph-Alpha/workbench/v1/results"

// IsSafeToRollback reports whether a rollback captured at versionAtStart
// may still be applied.
func IsSafeToRollback(versionAtStart, currentVersion results.Version) bool {
	return versionAtStart == currentVersion
}

// VersionSource exposes the current result version; *results.Cache is one.
type VersionSource interface {
	Version() results.Version
}

// Guard hands out tickets bound to the version of a result.
type Guard struct {
	src VersionSource
}

// NewGuard returns a guard over src.
func NewGuard(src VersionSource) *Guard {
	return &Guard{src: src}
}

// Begin captures the current version.
func (g *Guard) Begin() Ticket {
	return Ticket{guard: g, start: g.src.Version()}
}

// Ticket remembers the version an operation started from.
type Ticket struct {
	guard *Guard
	start results.Version
}

// Start returns the captured version.
func (t Ticket) Start() results.Version {
	return t.start
}

// Rollback runs fn iff the version is unchanged. It reports whether the
// rollback was applied, which is false when fn itself finds the result
// replaced in the meantime.
func (t Ticket) Rollback(fn func() bool) bool {
	if !IsSafeToRollback(t.start, t.guard.src.Version()) {
		return false
	}
	return fn()
}
