package persistence

import "context"

// Backend stores and retrieves the most recent snapshot.
type Backend interface {
	// Save durably stores snap, superseding any earlier snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the most recently saved snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (*Snapshot, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// NoopBackend discards snapshots. The registry then lives only as long as
// the process.
type NoopBackend struct{}

// NewNoopBackend returns a Backend that never persists anything.
func NewNoopBackend() *NoopBackend { return &NoopBackend{} }

// Save implements Backend.
func (NoopBackend) Save(context.Context, *Snapshot) error { return nil }

// Load implements Backend.
func (NoopBackend) Load(context.Context) (*Snapshot, error) { return nil, ErrNoSnapshot }

// Name implements Backend.
func (NoopBackend) Name() string { return "none" }
