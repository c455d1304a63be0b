package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/authenticity"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
	"github.com/jmerrifield20/ProvenanceRegistry/internal/verifyledger"
	"go.uber.org/zap"
)

// VerificationService runs authenticity checks and answers history queries.
type VerificationService struct {
	state  *State
	scorer authenticity.Scorer
	logger *zap.Logger
}

// NewVerificationService creates a new VerificationService.
// A nil scorer selects the default DJB2 hash scorer.
func NewVerificationService(state *State, scorer authenticity.Scorer, logger *zap.Logger) *VerificationService {
	if scorer == nil {
		scorer = authenticity.NewHashScorer(nil)
	}
	return &VerificationService{state: state, scorer: scorer, logger: logger}
}

// Verify scores imageHash, mints a verification ID, and records the result on
// the product and in the ledger. It fails with repository.ErrProductNotFound if
// the product is unknown, in which case no ID is consumed.
func (s *VerificationService) Verify(ctx context.Context, productID string, req *model.VerifyRequest) (*model.VerificationResult, error) {
	assessment, err := s.scorer.Score(ctx, req.ImageHash)
	if err != nil {
		return nil, fmt.Errorf("score image hash: %w", err)
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, err := s.state.products.Get(ctx, productID); err != nil {
		return nil, err
	}

	n := s.state.counter.Next()
	result := model.VerificationResult{
		Timestamp:       req.Timestamp,
		Location:        req.Location,
		IsAuthentic:     assessment.IsAuthentic,
		ConfidenceScore: assessment.ConfidenceScore,
		VerificationID:  verificationID(req.Timestamp, n),
	}

	if _, err := s.state.products.Update(ctx, productID, func(p *model.Product) error {
		p.Verifications = append(p.Verifications, result)
		return nil
	}); err != nil {
		return nil, err
	}
	if _, err := s.state.ledger.Append(ctx, productID, result); err != nil {
		return nil, fmt.Errorf("append verification ledger: %w", err)
	}

	s.logger.Info("product verified",
		zap.String("product_id", productID),
		zap.String("verification_id", result.VerificationID),
		zap.Float64("confidence_score", result.ConfidenceScore),
		zap.Bool("is_authentic", result.IsAuthentic),
	)
	return &result, nil
}

// Logs returns every verification with start <= timestamp <= end across all
// products, in the order they were recorded.
func (s *VerificationService) Logs(ctx context.Context, start, end int64) ([]verifyledger.Entry, error) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.ledger.QueryRange(ctx, start, end)
}

func verificationID(timestamp int64, n uint64) string {
	return "ver-" + strconv.FormatInt(timestamp, 10) + "-" + strconv.FormatUint(n, 10)
}
