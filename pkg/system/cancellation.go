package system

import (
	"context"
	"sync"
)

// Cancellation is the single process-wide shutdown signal. All background
// loops derive from its context and stop cooperatively when it fires.
type Cancellation struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewCancellation creates an unsignalled cancellation source.
func NewCancellation() *Cancellation {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cancellation{ctx: ctx, cancel: cancel}
}

// Context returns the context signalled at shutdown.
func (c *Cancellation) Context() context.Context {
	return c.ctx
}

// Done returns the channel closed at shutdown.
func (c *Cancellation) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsCancelled reports whether shutdown has been signalled.
func (c *Cancellation) IsCancelled() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Cancel signals shutdown. Safe to call more than once.
func (c *Cancellation) Cancel() {
	c.once.Do(c.cancel)
}
