package verifyledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
)

// MemoryLedger is an in-memory, thread-safe Ledger implementation. Durability
// across restarts comes from the persistence package, which snapshots Entries
// and feeds them back through Replace.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []Entry
}

// New creates an empty MemoryLedger.
func New() *MemoryLedger {
	return &MemoryLedger{}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, productID string, result model.VerificationResult) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash := GenesisHash
	if n := len(l.entries); n > 0 {
		prevHash = l.entries[n-1].Hash
	}

	entry := Entry{
		Index:     len(l.entries),
		ProductID: productID,
		Result:    result,
		PrevHash:  prevHash,
	}
	entry.Hash = hashEntry(&entry)
	l.entries = append(l.entries, entry)
	return &entry, nil
}

// QueryRange implements Ledger.
func (l *MemoryLedger) QueryRange(_ context.Context, start, end int64) ([]Entry, error) {
	out := []Entry{}
	if start > end {
		return out, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.Result.Timestamp >= start && e.Result.Timestamp <= end {
			out = append(out, e)
		}
	}
	return out, nil
}

// Get implements Ledger.
func (l *MemoryLedger) Get(_ context.Context, index int) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	e := l.entries[index]
	return &e, nil
}

// Len implements Ledger.
func (l *MemoryLedger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Verify implements Ledger.
func (l *MemoryLedger) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return VerifyEntries(l.entries)
}

// Root implements Ledger.
func (l *MemoryLedger) Root(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return GenesisHash, nil
	}
	return l.entries[len(l.entries)-1].Hash, nil
}

// Entries returns a copy of every entry in insertion order.
func (l *MemoryLedger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Replace swaps the ledger contents for entries after checking the chain.
// On error the ledger is unchanged.
func (l *MemoryLedger) Replace(entries []Entry) error {
	if err := VerifyEntries(entries); err != nil {
		return err
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = cp
	return nil
}

// VerifyEntries checks that entries form an intact chain rooted at
// GenesisHash with contiguous indexes.
func VerifyEntries(entries []Entry) error {
	prevHash := GenesisHash
	for i := range entries {
		curr := &entries[i]
		if curr.Index != i {
			return fmt.Errorf("entry at position %d has index %d", i, curr.Index)
		}
		if curr.PrevHash != prevHash {
			return fmt.Errorf("hash chain broken at index %d", curr.Index)
		}
		if curr.Hash != hashEntry(curr) {
			return fmt.Errorf("entry %d has invalid hash", curr.Index)
		}
		prevHash = curr.Hash
	}
	return nil
}
