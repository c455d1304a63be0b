package persistence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/repository"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/verifyledger"
)

// FormatVersion identifies the layout of Snapshot. Bump it when fields change
// meaning.
const FormatVersion = 1

// ErrNoSnapshot is returned by Backend.Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot available")

// Snapshot is the complete persisted state of the registry: every product in
// registration order, the verification ID counter, and the verification ledger.
type Snapshot struct {
	Version  int                       `json:"version"  cbor:"1,keyasint"`
	TakenAt  time.Time                 `json:"taken_at" cbor:"2,keyasint"`
	Products []repository.ProductEntry `json:"products" cbor:"3,keyasint"`
	Counter  uint64                    `json:"counter"  cbor:"4,keyasint"`
	Ledger   []verifyledger.Entry      `json:"ledger"   cbor:"5,keyasint"`
}

// Validate checks the snapshot's internal consistency. A snapshot that passes
// Validate can be restored without partial effects.
func (s *Snapshot) Validate() error {
	if s.Version != FormatVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}

	seen := make(map[string]struct{}, len(s.Products))
	verifications := 0
	for i, e := range s.Products {
		if e.Product == nil {
			return fmt.Errorf("product entry %d (%s): missing record", i, e.ProductID)
		}
		if e.ProductID != e.Product.ProductID {
			return fmt.Errorf("product entry %d: key %q does not match product ID %q", i, e.ProductID, e.Product.ProductID)
		}
		if _, dup := seen[e.ProductID]; dup {
			return fmt.Errorf("product entry %d: duplicate product ID %q", i, e.ProductID)
		}
		seen[e.ProductID] = struct{}{}

		for _, v := range e.Product.Verifications {
			n, err := counterSuffix(v.VerificationID)
			if err != nil {
				return fmt.Errorf("product %s: %w", e.ProductID, err)
			}
			if n > s.Counter {
				return fmt.Errorf("product %s: verification %s is ahead of counter %d", e.ProductID, v.VerificationID, s.Counter)
			}
		}
		verifications += len(e.Product.Verifications)
	}

	if len(s.Ledger) != verifications {
		return fmt.Errorf("ledger holds %d entries but products hold %d verifications", len(s.Ledger), verifications)
	}
	byProduct := make(map[string][]model.VerificationResult, len(s.Products))
	for _, le := range s.Ledger {
		if _, ok := seen[le.ProductID]; !ok {
			return fmt.Errorf("ledger entry %d references unknown product %q", le.Index, le.ProductID)
		}
		byProduct[le.ProductID] = append(byProduct[le.ProductID], le.Result)
	}
	// Each product's verifications are exactly its ledger entries, in order.
	for _, e := range s.Products {
		logged := byProduct[e.ProductID]
		if len(logged) != len(e.Product.Verifications) {
			return fmt.Errorf("product %s: holds %d verifications but the ledger has %d", e.ProductID, len(e.Product.Verifications), len(logged))
		}
		for i, v := range e.Product.Verifications {
			if v != logged[i] {
				return fmt.Errorf("product %s: verification %d (%s) does not match its ledger entry (%s)", e.ProductID, i, v.VerificationID, logged[i].VerificationID)
			}
		}
	}
	if err := verifyledger.VerifyEntries(s.Ledger); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}

// counterSuffix extracts the counter value from a "ver-<timestamp>-<n>" ID.
func counterSuffix(verificationID string) (uint64, error) {
	i := strings.LastIndexByte(verificationID, '-')
	if !strings.HasPrefix(verificationID, "ver-") || i < len("ver-") {
		return 0, fmt.Errorf("malformed verification ID %q", verificationID)
	}
	n, err := strconv.ParseUint(verificationID[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed verification ID %q: %w", verificationID, err)
	}
	return n, nil
}
