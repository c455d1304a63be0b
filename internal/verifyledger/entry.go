package verifyledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
)

// GenesisHash is the PrevHash of the first entry in every ledger and the
// Root of an empty one.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one (productID, result) pair in the ledger.
type Entry struct {
	Index     int                      `json:"index"      cbor:"1,keyasint"`
	ProductID string                   `json:"product_id" cbor:"2,keyasint"`
	Result    model.VerificationResult `json:"result"     cbor:"3,keyasint"`
	PrevHash  string                   `json:"prev_hash"  cbor:"4,keyasint"`
	Hash      string                   `json:"hash"       cbor:"5,keyasint"`
}

// hashEntry computes a deterministic SHA-256 hash over an entry's fields.
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%d|%s|%t|%s|%s|%s",
		e.Index, e.ProductID,
		e.Result.Timestamp, e.Result.Location, e.Result.IsAuthentic,
		strconv.FormatFloat(e.Result.ConfidenceScore, 'g', -1, 64),
		e.Result.VerificationID, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}
