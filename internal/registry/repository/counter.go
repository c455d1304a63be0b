package repository

import "sync/atomic"

// IdentifierCounter mints the numeric suffix of verification IDs. It only
// moves forward during normal operation; Reset exists for restore.
type IdentifierCounter struct {
	n atomic.Uint64
}

// NewIdentifierCounter returns a counter whose first Next call yields 1.
func NewIdentifierCounter() *IdentifierCounter {
	return &IdentifierCounter{}
}

// Next increments the counter and returns the new value.
func (c *IdentifierCounter) Next() uint64 {
	return c.n.Add(1)
}

// Value returns the last value handed out by Next.
func (c *IdentifierCounter) Value() uint64 {
	return c.n.Load()
}

// Reset sets the counter to a previously persisted value.
func (c *IdentifierCounter) Reset(v uint64) {
	c.n.Store(v)
}
