package diagnostics

import (
	"sync/atomic"
)

// OperationsPerSecondCounter counts operations in the current second and
// remembers the rate observed in the previous one. Increment is lock-free.
type OperationsPerSecondCounter struct {
	uid     string
	current atomic.Int64
	rate    atomic.Int64
}

// Uid returns the counter's identifier.
func (c *OperationsPerSecondCounter) Uid() string {
	return c.uid
}

// Increment adds one operation to the current second.
func (c *OperationsPerSecondCounter) Increment() {
	c.current.Add(1)
}

// Count returns the number of operations counted in the current second so
// far.
func (c *OperationsPerSecondCounter) Count() int64 {
	return c.current.Load()
}

// Rate returns the last observed operations-per-second rate.
func (c *OperationsPerSecondCounter) Rate() int64 {
	return c.rate.Load()
}

// reset snapshots the current count into the rate and starts a new second.
func (c *OperationsPerSecondCounter) reset() int64 {
	n := c.current.Swap(0)
	c.rate.Store(n)
	return n
}
