// Package authenticity derives the confidence score attached to every
// verification. The score is a deterministic placeholder computed from the
// submitted image hash; no image analysis takes place.
package authenticity

import "context"

// AuthenticThreshold is the score a verification must exceed to be reported
// as authentic.
const AuthenticThreshold = 0.70

// Assessment is the output of a scoring run.
type Assessment struct {
	// ConfidenceScore is always within [0.70, 0.99].
	ConfidenceScore float64 `json:"confidence_score"`

	// IsAuthentic is true iff ConfidenceScore > AuthenticThreshold.
	IsAuthentic bool `json:"is_authentic"`
}

// Scorer assesses an image hash submitted for verification.
type Scorer interface {
	Score(ctx context.Context, imageHash string) (*Assessment, error)
}
