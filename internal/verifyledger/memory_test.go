package verifyledger_test

import (
	"context"
	"testing"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/verifyledger"
)

var ctx = context.Background()

func result(ts int64, id string) model.VerificationResult {
	return model.VerificationResult{
		Timestamp:       ts,
		Location:        "Warehouse C",
		IsAuthentic:     true,
		ConfidenceScore: 0.85,
		VerificationID:  id,
	}
}

func TestNew_empty(t *testing.T) {
	l := verifyledger.New()

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected empty ledger, got %d entries", n)
	}

	root, err := l.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != verifyledger.GenesisHash {
		t.Errorf("Root() on empty ledger: got %q, want GenesisHash", root)
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() on empty ledger should pass: %v", err)
	}
}

func TestAppend_chainsCorrectly(t *testing.T) {
	l := verifyledger.New()

	e1, err := l.Append(ctx, "P1", result(1020, "ver-1020-1"))
	if err != nil {
		t.Fatal(err)
	}
	e2, err := l.Append(ctx, "P2", result(1030, "ver-1030-2"))
	if err != nil {
		t.Fatal(err)
	}

	if e1.PrevHash != verifyledger.GenesisHash {
		t.Errorf("first entry should chain from genesis, got %q", e1.PrevHash)
	}
	if e2.PrevHash != e1.Hash {
		t.Errorf("chain broken: e2.PrevHash=%q, want e1.Hash=%q", e2.PrevHash, e1.Hash)
	}
	if e2.Index != 1 {
		t.Errorf("expected index 1, got %d", e2.Index)
	}

	root, _ := l.Root(ctx)
	if root != e2.Hash {
		t.Errorf("Root(): got %q, want %q", root, e2.Hash)
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() failed on valid chain: %v", err)
	}
}

func TestQueryRange_inclusiveAndOrdered(t *testing.T) {
	l := verifyledger.New()
	_, _ = l.Append(ctx, "P1", result(1020, "ver-1020-1"))
	_, _ = l.Append(ctx, "P2", result(900, "ver-900-2"))
	_, _ = l.Append(ctx, "P1", result(1000, "ver-1000-3"))
	_, _ = l.Append(ctx, "P3", result(1050, "ver-1050-4"))

	got, err := l.QueryRange(ctx, 1000, 1020)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ver-1020-1", "ver-1000-3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].Result.VerificationID != id {
			t.Errorf("entry %d: got %q, want %q", i, got[i].Result.VerificationID, id)
		}
	}
}

func TestQueryRange_emptyRanges(t *testing.T) {
	l := verifyledger.New()
	_, _ = l.Append(ctx, "P1", result(1020, "ver-1020-1"))

	for _, tc := range []struct {
		name       string
		start, end int64
	}{
		{"inverted", 1020, 1019},
		{"before", 0, 999},
		{"after", 1021, 5000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.QueryRange(ctx, tc.start, tc.end)
			if err != nil {
				t.Fatal(err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil slice, got %v", got)
			}
		})
	}
}

func TestGet_outOfRange(t *testing.T) {
	l := verifyledger.New()
	if _, err := l.Get(ctx, 0); err == nil {
		t.Error("expected error for index 0 on empty ledger")
	}
}

func TestReplace_roundTrip(t *testing.T) {
	src := verifyledger.New()
	_, _ = src.Append(ctx, "P1", result(1, "ver-1-1"))
	_, _ = src.Append(ctx, "P1", result(2, "ver-2-2"))

	dst := verifyledger.New()
	if err := dst.Replace(src.Entries()); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	srcRoot, _ := src.Root(ctx)
	dstRoot, _ := dst.Root(ctx)
	if srcRoot != dstRoot {
		t.Errorf("root mismatch after replace: %q vs %q", srcRoot, dstRoot)
	}

	// Appending after a restore continues the chain.
	e, err := dst.Append(ctx, "P2", result(3, "ver-3-3"))
	if err != nil {
		t.Fatal(err)
	}
	if e.Index != 2 || e.PrevHash != srcRoot {
		t.Errorf("unexpected continuation entry: %+v", e)
	}
}

func TestReplace_rejectsTamperedChain(t *testing.T) {
	src := verifyledger.New()
	_, _ = src.Append(ctx, "P1", result(1, "ver-1-1"))
	_, _ = src.Append(ctx, "P1", result(2, "ver-2-2"))

	entries := src.Entries()
	entries[0].Result.ConfidenceScore = 0.99

	dst := verifyledger.New()
	_, _ = dst.Append(ctx, "keep", result(5, "ver-5-1"))
	if err := dst.Replace(entries); err == nil {
		t.Fatal("expected Replace to reject a tampered chain")
	}
	if n, _ := dst.Len(ctx); n != 1 {
		t.Errorf("ledger should be unchanged after failed Replace, got %d entries", n)
	}
}
