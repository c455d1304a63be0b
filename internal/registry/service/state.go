package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/persistence"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/repository"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/verifyledger"
)

// State owns the registry's mutable state: the product store, the
// verification ID counter, and the verification ledger.
//
// Writers (register, add event, verify, import) hold mu exclusively so each
// operation applies in full before the next begins. Readers share it.
type State struct {
	mu       sync.RWMutex
	products *repository.ProductStore
	counter  *repository.IdentifierCounter
	ledger   *verifyledger.MemoryLedger
}

// NewState creates empty registry state.
func NewState() *State {
	return &State{
		products: repository.NewProductStore(),
		counter:  repository.NewIdentifierCounter(),
		ledger:   verifyledger.New(),
	}
}

// Ledger exposes the verification ledger for read-only handlers.
func (s *State) Ledger() verifyledger.Ledger {
	return s.ledger
}

// ProductCount returns the number of registered products.
func (s *State) ProductCount() int {
	return s.products.Len()
}

// Export captures a consistent snapshot of all state.
func (s *State) Export() *persistence.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &persistence.Snapshot{
		Version:  persistence.FormatVersion,
		TakenAt:  time.Now().UTC(),
		Products: s.products.Entries(),
		Counter:  s.counter.Value(),
		Ledger:   s.ledger.Entries(),
	}
}

// Import replaces all state with the contents of snap. The snapshot is
// validated before anything is touched.
func (s *State) Import(snap *persistence.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.products.Replace(snap.Products); err != nil {
		return fmt.Errorf("restore products: %w", err)
	}
	if err := s.ledger.Replace(snap.Ledger); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	s.counter.Reset(snap.Counter)
	return nil
}
