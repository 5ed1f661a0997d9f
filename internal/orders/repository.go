package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilters narrows admin order listings.
type ListFilters struct {
	StoreID uuid.UUID
	Status  *Status
	Limit   int
	Offset  int
}

// RepositoryPort defines data access methods for orders.
type RepositoryPort interface {
	// Create persists the order and its lines atomically.
	Create(ctx context.Context, order Order, items []OrderItem) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filters ListFilters) ([]Order, int64, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Order, error)

	// UpdateStatus applies a transition as a single conditional write: the
	// row changes only if its status still equals from. The boolean reports
	// whether the write applied; false means the expected state was gone by
	// write time.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (bool, error)

	// ListStuck returns orders sitting in status since before the cutoff.
	ListStuck(ctx context.Context, status Status, cutoff time.Time, limit int) ([]Order, error)
}
