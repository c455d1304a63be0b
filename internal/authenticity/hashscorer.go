package authenticity

import (
	"context"
	"fmt"
	"hash/fnv"
)

// HashFunc maps an image hash string to a stable 32-bit value.
type HashFunc func(s string) uint32

// HashScorer is the default Scorer. It applies
//
//	score = (70 + (h mod 100) mod 30) / 100
//
// to the 32-bit hash of the input, so the same image hash always yields the
// same assessment.
type HashScorer struct {
	hash HashFunc
}

// NewHashScorer returns a HashScorer using fn. A nil fn selects DJB2.
func NewHashScorer(fn HashFunc) *HashScorer {
	if fn == nil {
		fn = DJB2
	}
	return &HashScorer{hash: fn}
}

// Score implements Scorer.
func (s *HashScorer) Score(_ context.Context, imageHash string) (*Assessment, error) {
	h := s.hash(imageHash)
	modulo := h % 100
	score := float64(70+modulo%30) / 100.0
	return &Assessment{
		ConfidenceScore: score,
		IsAuthentic:     score > AuthenticThreshold,
	}, nil
}

// DJB2 is the 32-bit string hash used by previously issued verification
// histories: x = 5381, then x = x*33 + c for each Unicode code point, with
// wrapping arithmetic.
func DJB2(s string) uint32 {
	var x uint32 = 5381
	for _, c := range s {
		x = (x << 5) + x + uint32(c)
	}
	return x
}

// FNV32a hashes the UTF-8 bytes of s with 32-bit FNV-1a.
func FNV32a(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// ParseHashFunc returns the HashFunc registered under name.
func ParseHashFunc(name string) (HashFunc, error) {
	switch name {
	case "", "djb2":
		return DJB2, nil
	case "fnv32a":
		return FNV32a, nil
	default:
		return nil, fmt.Errorf("unknown scoring hash: %q", name)
	}
}
