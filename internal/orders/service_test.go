package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborline/internal/authz"
	"github.com/harborline/harborline/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	orders map[uuid.UUID]*Order
	items  map[uuid.UUID][]OrderItem

	// casObserver runs inside UpdateStatus before the write applies, to
	// simulate a concurrent transition winning the race.
	casObserver func()
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orders: make(map[uuid.UUID]*Order),
		items:  make(map[uuid.UUID][]OrderItem),
	}
}

func (m *mockRepository) Create(ctx context.Context, order Order, items []OrderItem) error {
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	m.orders[order.ID] = &order
	m.items[order.ID] = items
	return nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, filters ListFilters) ([]Order, int64, error) {
	var out []Order
	for _, order := range m.orders {
		if order.StoreID != filters.StoreID {
			continue
		}
		if filters.Status != nil && order.Status != *filters.Status {
			continue
		}
		out = append(out, *order)
	}
	return out, int64(len(out)), nil
}

func (m *mockRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Order, error) {
	var out []Order
	for _, order := range m.orders {
		if order.CustomerID == customerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (bool, error) {
	if m.casObserver != nil {
		m.casObserver()
	}
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	if to == StatusCancelled {
		now := time.Now()
		order.CancelledAt = &now
		order.CancelReason = reason
	}
	return true, nil
}

func (m *mockRepository) ListStuck(ctx context.Context, status Status, cutoff time.Time, limit int) ([]Order, error) {
	var out []Order
	for _, order := range m.orders {
		if order.Status == status && order.UpdatedAt.Before(cutoff) {
			out = append(out, *order)
		}
	}
	return out, nil
}

var _ RepositoryPort = (*mockRepository)(nil)

type rolesByPrincipal map[uuid.UUID][]authz.Role

func (r rolesByPrincipal) RolesOf(ctx context.Context, principalID uuid.UUID) ([]authz.Role, error) {
	return r[principalID], nil
}

type fixture struct {
	repo    *mockRepository
	service *Service
	manager uuid.UUID
	support uuid.UUID
	nobody  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepository()
	manager := uuid.New()
	support := uuid.New()
	nobody := uuid.New()
	engine := authz.NewEngine(rolesByPrincipal{
		manager: {authz.RoleManager},
		support: {authz.RoleSupport},
	}, nil)
	return &fixture{
		repo:    repo,
		service: NewService(repo, engine, nil),
		manager: manager,
		support: support,
		nobody:  nobody,
	}
}

func (f *fixture) seedOrder(t *testing.T, status Status) *Order {
	t.Helper()
	order := Order{
		ID:         uuid.New(),
		Number:     "HL-250101-TEST",
		StoreID:    uuid.New(),
		CustomerID: uuid.New(),
		Status:     status,
		Currency:   "USD",
		TotalCents: 12900,
		UpdatedAt:  time.Now(),
	}
	f.repo.orders[order.ID] = &order
	return &order
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateDraftComputesTotals(t *testing.T) {
	f := newFixture(t)
	customer := uuid.New()
	order, err := f.service.CreateDraft(context.Background(), customer, CreateOrderRequest{
		StoreID:  uuid.New(),
		Currency: "usd",
		TaxCents: 250,
		Items: []CreateOrderItemReq{
			{ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 1500},
			{ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 700},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, order.Status)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, int64(3700), order.SubtotalCents)
	assert.Equal(t, int64(3950), order.TotalCents)
	assert.Equal(t, customer, order.CustomerID)
	assert.NotEmpty(t, order.Number)
	require.Len(t, f.repo.items[order.ID], 2)
	assert.Equal(t, order.ID, f.repo.items[order.ID][0].OrderID)
}

func TestTransitionHappyPath(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, StatusPacking)

	updated, err := f.service.Transition(context.Background(), f.manager, order.ID, StatusShipped, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, updated.Status)
}

func TestTransitionRequiresPermissionBeforeMachine(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, StatusPacking)

	// support holds order.read but not order.write
	_, err := f.service.Transition(context.Background(), f.support, order.ID, StatusShipped, nil)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	stored, getErr := f.repo.Get(context.Background(), order.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPacking, stored.Status, "denied transition must not mutate status")
}

func TestTransitionNoRoles(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, StatusDraft)

	_, err := f.service.Transition(context.Background(), f.nobody, order.ID, StatusCancelled, nil)
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestTransitionRejectsMissingEdge(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, StatusShipped)

	_, err := f.service.Transition(context.Background(), f.manager, order.ID, StatusCancelled, nil)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusShipped, invalid.From)
	assert.Equal(t, StatusCancelled, invalid.To)

	stored, getErr := f.repo.Get(context.Background(), order.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusShipped, stored.Status)
}

func TestTransitionRetryFailsAfterApply(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, StatusPacking)

	_, err := f.service.Transition(context.Background(), f.manager, order.ID, StatusShipped, nil)
	require.NoError(t, err)

	// Retrying the identical transition must fail, never silently apply twice.
	_, err = f.service.Transition(context.Background(), f.manager, order.ID, StatusShipped, nil)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusShipped, invalid.From)
}

func TestTransitionLosesRace(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, StatusPendingPayment)

	// A concurrent cancellation lands between this caller's read and write.
	f.repo.casObserver = func() {
		f.repo.casObserver = nil
		stored := f.repo.orders[order.ID]
		stored.Status = StatusCancelled
	}

	_, err := f.service.Transition(context.Background(), f.manager, order.ID, StatusPaid, nil)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusCancelled, invalid.From, "error must name the current state, not the stale read")
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Transition(context.Background(), f.manager, uuid.New(), StatusPaid, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetForPrincipalVisibility(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, StatusPaid)

	// Owner sees it.
	got, err := f.service.GetForPrincipal(context.Background(), order.CustomerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// Staff with order.read sees it.
	got, err = f.service.GetForPrincipal(context.Background(), f.support, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// A stranger gets a not-visible error, indistinguishable from not-found
	// at the handler layer.
	_, err = f.service.GetForPrincipal(context.Background(), f.nobody, order.ID)
	assert.True(t, IsNotVisible(err))
}

func TestExpireStalePending(t *testing.T) {
	f := newFixture(t)
	stale := f.seedOrder(t, StatusPendingPayment)
	stale.UpdatedAt = time.Now().Add(-48 * time.Hour)
	fresh := f.seedOrder(t, StatusPendingPayment)
	paid := f.seedOrder(t, StatusPaid)
	paid.UpdatedAt = time.Now().Add(-48 * time.Hour)

	expired, err := f.service.ExpireStalePending(context.Background(), 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	assert.Equal(t, StatusCancelled, f.repo.orders[stale.ID].Status)
	require.NotNil(t, f.repo.orders[stale.ID].CancelReason)
	assert.Equal(t, StatusPendingPayment, f.repo.orders[fresh.ID].Status)
	assert.Equal(t, StatusPaid, f.repo.orders[paid.ID].Status)
}

func TestOrderResponseFormatsTotal(t *testing.T) {
	res := NewOrderResponse(Order{Currency: "USD", TotalCents: 1234567})
	assert.Equal(t, "USD 12,345.67", res.TotalDisplay)
}
