package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable item scoped to a store. SKU is unique per store, not
// globally.
type Product struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
