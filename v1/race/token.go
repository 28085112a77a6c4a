package race

import (
	"context"
	"errors"
)

// errTokenCancelled is the context cause recorded by Token.Cancel.
var errTokenCancelled = errors.New("token cancelled")

// Token is an explicit cancellation token. It is handed down a call chain
// instead of relying on implicit unwinding; holders check Cancelled at every
// resume point and may register cleanup with OnCancel.
//
// A Token is safe for concurrent use. The zero value is not usable; create
// tokens with NewToken.
type Token struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewToken returns a token that is cancelled when Cancel is called or when
// parent is done.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancelCause(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Context returns the context that is done once the token is cancelled.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Cancel cancels the token. Calling it more than once has no further effect.
func (t *Token) Cancel() {
	t.cancel(errTokenCancelled)
}

// Cancelled reports whether the token or its parent has been cancelled.
func (t *Token) Cancelled() bool {
	return t.ctx.Err() != nil
}

// OnCancel arranges for f to run in its own goroutine once the token is
// cancelled. The returned stop func unregisters f and reports whether it did
// so before f was started.
func (t *Token) OnCancel(f func()) (stop func() bool) {
	return context.AfterFunc(t.ctx, f)
}
