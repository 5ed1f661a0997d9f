// Package orders owns the order aggregate and its lifecycle state machine.
// Status is the only audit-sensitive mutable field in the domain and changes
// exclusively through the machine; no other update path may touch it.
package orders

import (
	"time"

	"github.com/google/uuid"
)

// Order is the mutable commerce aggregate. Monetary amounts are integer minor
// units (cents) in the order's currency.
type Order struct {
	ID            uuid.UUID  `json:"id"`
	Number        string     `json:"number"`
	StoreID       uuid.UUID  `json:"store_id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	Status        Status     `json:"status"`
	Currency      string     `json:"currency"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TaxCents      int64      `json:"tax_cents"`
	TotalCents    int64      `json:"total_cents"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelReason  *string    `json:"cancel_reason,omitempty"`
}

// OrderItem is an order line captured at draft time. Lines are immutable
// after creation; corrections happen through cancellation.
type OrderItem struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}
