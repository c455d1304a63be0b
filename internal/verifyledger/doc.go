// Package verifyledger implements the global, append-only log of verification
// results used for time-range queries.
//
// Entries are kept in insertion order. Each entry records the SHA-256 of its
// predecessor, starting from GenesisHash, so tampering with a restored ledger
// is detectable via Verify.
package verifyledger
