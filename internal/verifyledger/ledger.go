package verifyledger

import (
	"context"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
)

// Ledger is the interface for the append-only verification log.
type Ledger interface {
	// Append adds a new entry chained to the previous one.
	Append(ctx context.Context, productID string, result model.VerificationResult) (*Entry, error)

	// QueryRange returns every entry with start <= Result.Timestamp <= end,
	// in insertion order. start > end yields an empty slice.
	QueryRange(ctx context.Context, start, end int64) ([]Entry, error)

	// Get returns the entry at the given zero-based index.
	Get(ctx context.Context, index int) (*Entry, error)

	// Len returns the total number of entries.
	Len(ctx context.Context) (int, error)

	// Verify walks the entire chain and checks hash consistency.
	Verify(ctx context.Context) error

	// Root returns the hash of the most recent entry, or GenesisHash when empty.
	Root(ctx context.Context) (string, error)
}
