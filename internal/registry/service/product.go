package service

import (
	"context"
	"strings"

	"github.com/jmerrifield20/ProvenanceRegistry/internal/registry/model"
	"go.uber.org/zap"
)

// ProductService contains business logic for product registration and the
// supply-chain event log.
type ProductService struct {
	state  *State
	logger *zap.Logger
}

// NewProductService creates a new ProductService over state.
func NewProductService(state *State, logger *zap.Logger) *ProductService {
	return &ProductService{state: state, logger: logger}
}

// Register creates a product with empty event and verification logs.
// It fails with repository.ErrDuplicateProduct if the ID is taken.
func (s *ProductService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Product, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, &model.ErrValidation{Msg: "product_id is required"}
	}

	product := &model.Product{
		ProductID:             req.ProductID,
		ProductType:           req.ProductType,
		Producer:              req.Producer,
		RegistrationTimestamp: req.Timestamp,
		RegistrationLocation:  req.Location,
		Events:                []model.SupplyChainEvent{},
		Verifications:         []model.VerificationResult{},
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if err := s.state.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product registered",
		zap.String("product_id", product.ProductID),
		zap.String("producer", product.Producer),
	)
	return product.Clone(), nil
}

// Get returns the current record for a product.
func (s *ProductService) Get(ctx context.Context, productID string) (*model.Product, error) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.products.Get(ctx, productID)
}

// List returns products in registration order.
func (s *ProductService) List(ctx context.Context, limit, offset int) ([]*model.Product, error) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.products.List(ctx, limit, offset)
}

// AddEvent appends a supply-chain event to a product and returns it.
// It fails with repository.ErrProductNotFound if the product is unknown.
func (s *ProductService) AddEvent(ctx context.Context, productID string, req *model.AddEventRequest) (*model.SupplyChainEvent, error) {
	event := model.SupplyChainEvent{
		EventType: req.EventType,
		Timestamp: req.Timestamp,
		Location:  req.Location,
		Handler:   req.Handler,
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	_, err := s.state.products.Update(ctx, productID, func(p *model.Product) error {
		p.Events = append(p.Events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("supply chain event appended",
		zap.String("product_id", productID),
		zap.String("event_type", event.EventType),
		zap.Int64("timestamp", event.Timestamp),
	)
	return &event, nil
}
