package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
)

var (
	// ErrProductNotFound is returned when an operation references an unknown product ID.
	ErrProductNotFound = errors.New("product not found")

	// ErrDuplicateProduct is returned when registering a product ID that already exists.
	ErrDuplicateProduct = errors.New("product already registered")
)

// ProductEntry pairs a product ID with its record. It is the persisted form
// of the store.
type ProductEntry struct {
	ProductID string         `json:"product_id" cbor:"1,keyasint"`
	Product   *model.Product `json:"product"    cbor:"2,keyasint"`
}

// ProductStore is an in-memory, thread-safe map of product ID to Product.
//
// Stored values are never mutated in place. Update replaces the stored record
// with a modified copy, and every read hands out a deep copy.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]*model.Product
	order    []string // registration order, used by List and Entries
}

// NewProductStore creates an empty ProductStore.
func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]*model.Product)}
}

// Create stores a new product. It fails with ErrDuplicateProduct if the ID is
// already present, leaving the store untouched.
func (s *ProductStore) Create(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ProductID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ProductID)
	}
	s.products[p.ProductID] = p.Clone()
	s.order = append(s.order, p.ProductID)
	return nil
}

// Get returns a copy of the product with the given ID.
func (s *ProductStore) Get(_ context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p.Clone(), nil
}

// Update applies fn to a copy of the stored product and, if fn succeeds,
// replaces the stored record with that copy. The updated record is returned.
func (s *ProductStore) Update(_ context.Context, id string, fn func(p *model.Product) error) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.products[id] = next
	return next.Clone(), nil
}

// List returns products in registration order.
func (s *ProductStore) List(_ context.Context, limit, offset int) ([]*model.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.order) {
		return nil, nil
	}
	ids := s.order[offset:]
	if limit < len(ids) {
		ids = ids[:limit]
	}

	products := make([]*model.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, s.products[id].Clone())
	}
	return products, nil
}

// Len returns the number of registered products.
func (s *ProductStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Entries returns every product in registration order.
func (s *ProductStore) Entries() []ProductEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]ProductEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, ProductEntry{ProductID: id, Product: s.products[id].Clone()})
	}
	return entries
}

// Replace discards the current contents and rebuilds the store from entries.
// Entries are validated first; on error the store is unchanged.
func (s *ProductStore) Replace(entries []ProductEntry) error {
	products := make(map[string]*model.Product, len(entries))
	order := make([]string, 0, len(entries))
	for i, e := range entries {
		if e.Product == nil {
			return fmt.Errorf("entry %d (%s): missing product record", i, e.ProductID)
		}
		if e.ProductID != e.Product.ProductID {
			return fmt.Errorf("entry %d: key %q does not match product ID %q", i, e.ProductID, e.Product.ProductID)
		}
		if _, dup := products[e.ProductID]; dup {
			return fmt.Errorf("entry %d: %w: %s", i, ErrDuplicateProduct, e.ProductID)
		}
		products[e.ProductID] = e.Product.Clone()
		order = append(order, e.ProductID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.order = order
	return nil
}
