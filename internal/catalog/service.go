package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Service implements catalog use cases. Write paths assume the caller was
// already authorized by the handler layer.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
}

// NewService constructs the catalog service.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo}
}

// Create adds a product to a store's catalog.
func (s *Service) Create(ctx context.Context, storeID uuid.UUID, req CreateProductRequest) (*Product, error) {
	product := Product{
		ID:          uuid.New(),
		StoreID:     storeID,
		SKU:         normalizeSKU(req.SKU),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		PriceCents:  req.PriceCents,
		Currency:    strings.ToUpper(req.Currency),
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created",
		slog.String("product_id", product.ID.String()),
		slog.String("store_id", storeID.String()),
		slog.String("sku", product.SKU))
	return &product, nil
}

// Get fetches one product within a store.
func (s *Service) Get(ctx context.Context, storeID, id uuid.UUID) (*Product, error) {
	return s.repo.Get(ctx, storeID, id)
}

// List returns a page of a store's products.
func (s *Service) List(ctx context.Context, storeID uuid.UUID, activeOnly bool, limit, offset int) ([]Product, error) {
	return s.repo.List(ctx, storeID, activeOnly, limit, offset)
}

// Update rewrites the mutable fields of a product.
func (s *Service) Update(ctx context.Context, storeID, id uuid.UUID, req UpdateProductRequest) (*Product, error) {
	current, err := s.repo.Get(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	current.SKU = normalizeSKU(req.SKU)
	current.Name = strings.TrimSpace(req.Name)
	current.Description = strings.TrimSpace(req.Description)
	current.PriceCents = req.PriceCents
	current.Currency = strings.ToUpper(req.Currency)
	current.IsActive = req.IsActive

	if err := s.repo.Update(ctx, *current); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return current, nil
}

// Deactivate removes a product from sale without deleting its history.
func (s *Service) Deactivate(ctx context.Context, storeID, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, storeID, id); err != nil {
		return err
	}
	s.logger.Info("product deactivated",
		slog.String("product_id", id.String()),
		slog.String("store_id", storeID.String()))
	return nil
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
