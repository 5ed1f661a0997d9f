package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborline/internal/shared"
)

type memRepo struct {
	products map[uuid.UUID]*Product
}

func newMemRepo() *memRepo {
	return &memRepo{products: make(map[uuid.UUID]*Product)}
}

func (m *memRepo) skuTaken(storeID uuid.UUID, sku string, exclude uuid.UUID) bool {
	for _, p := range m.products {
		if p.StoreID == storeID && p.SKU == sku && p.ID != exclude {
			return true
		}
	}
	return false
}

func (m *memRepo) Create(ctx context.Context, p Product) error {
	if m.skuTaken(p.StoreID, p.SKU, p.ID) {
		return ErrDuplicateSKU
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = &p
	return nil
}

func (m *memRepo) Get(ctx context.Context, storeID, id uuid.UUID) (*Product, error) {
	p, ok := m.products[id]
	if !ok || p.StoreID != storeID {
		return nil, shared.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memRepo) List(ctx context.Context, storeID uuid.UUID, activeOnly bool, limit, offset int) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if p.StoreID != storeID {
			continue
		}
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memRepo) Update(ctx context.Context, p Product) error {
	stored, ok := m.products[p.ID]
	if !ok || stored.StoreID != p.StoreID {
		return shared.ErrNotFound
	}
	if m.skuTaken(p.StoreID, p.SKU, p.ID) {
		return ErrDuplicateSKU
	}
	p.UpdatedAt = time.Now()
	m.products[p.ID] = &p
	return nil
}

func (m *memRepo) Deactivate(ctx context.Context, storeID, id uuid.UUID) error {
	p, ok := m.products[id]
	if !ok || p.StoreID != storeID || !p.IsActive {
		return shared.ErrNotFound
	}
	p.IsActive = false
	return nil
}

var _ RepositoryPort = (*memRepo)(nil)

func TestCreateNormalizesInput(t *testing.T) {
	repo := newMemRepo()
	service := NewService(nil, repo)
	storeID := uuid.New()

	product, err := service.Create(context.Background(), storeID, CreateProductRequest{
		SKU:      "  tee-blk-m ",
		Name:     " Black Tee (M) ",
		Currency: "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "TEE-BLK-M", product.SKU)
	assert.Equal(t, "Black Tee (M)", product.Name)
	assert.Equal(t, "USD", product.Currency)
	assert.True(t, product.IsActive)
}

func TestCreateDuplicateSKU(t *testing.T) {
	repo := newMemRepo()
	service := NewService(nil, repo)
	storeID := uuid.New()

	_, err := service.Create(context.Background(), storeID, CreateProductRequest{SKU: "TEE-1", Name: "Tee", Currency: "USD"})
	require.NoError(t, err)

	_, err = service.Create(context.Background(), storeID, CreateProductRequest{SKU: "tee-1", Name: "Other", Currency: "USD"})
	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestSKUUniquePerStoreNotGlobal(t *testing.T) {
	repo := newMemRepo()
	service := NewService(nil, repo)

	_, err := service.Create(context.Background(), uuid.New(), CreateProductRequest{SKU: "TEE-1", Name: "Tee", Currency: "USD"})
	require.NoError(t, err)
	_, err = service.Create(context.Background(), uuid.New(), CreateProductRequest{SKU: "TEE-1", Name: "Tee", Currency: "USD"})
	assert.NoError(t, err, "same sku in a different store must be allowed")
}

func TestGetScopedToStore(t *testing.T) {
	repo := newMemRepo()
	service := NewService(nil, repo)
	storeID := uuid.New()

	product, err := service.Create(context.Background(), storeID, CreateProductRequest{SKU: "TEE-1", Name: "Tee", Currency: "USD"})
	require.NoError(t, err)

	_, err = service.Get(context.Background(), uuid.New(), product.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "a product must not leak across stores")
}

func TestUpdateAndDeactivate(t *testing.T) {
	repo := newMemRepo()
	service := NewService(nil, repo)
	storeID := uuid.New()

	product, err := service.Create(context.Background(), storeID, CreateProductRequest{SKU: "TEE-1", Name: "Tee", Currency: "USD", PriceCents: 1500})
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), storeID, product.ID, UpdateProductRequest{
		SKU: "TEE-1", Name: "Tee v2", Currency: "USD", PriceCents: 1800, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tee v2", updated.Name)
	assert.Equal(t, int64(1800), updated.PriceCents)

	require.NoError(t, service.Deactivate(context.Background(), storeID, product.ID))
	stored, err := service.Get(context.Background(), storeID, product.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	err = service.Deactivate(context.Background(), storeID, product.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "double deactivate reports not found")
}
