package orders

import (
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CreateOrderRequest opens a draft order.
type CreateOrderRequest struct {
	StoreID  uuid.UUID            `json:"store_id" validate:"required"`
	Currency string               `json:"currency" validate:"required,len=3,alpha"`
	TaxCents int64                `json:"tax_cents" validate:"gte=0"`
	Notes    *string              `json:"notes,omitempty"`
	Items    []CreateOrderItemReq `json:"items" validate:"required,min=1,dive"`
}

// CreateOrderItemReq is one priced line of a draft order.
type CreateOrderItemReq struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents int64     `json:"unit_price_cents" validate:"required,gt=0"`
}

// TransitionRequest asks for a lifecycle move.
type TransitionRequest struct {
	Status string  `json:"status" validate:"required"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// OrderResponse wraps an order with a formatted total for display.
type OrderResponse struct {
	Order
	TotalDisplay string `json:"total_display"`
}

var displayPrinter = message.NewPrinter(language.English)

// NewOrderResponse builds the API shape for an order.
func NewOrderResponse(order Order) OrderResponse {
	return OrderResponse{
		Order:        order,
		TotalDisplay: displayPrinter.Sprintf("%s %.2f", order.Currency, float64(order.TotalCents)/100),
	}
}

func newOrderResponses(list []Order) []OrderResponse {
	out := make([]OrderResponse, len(list))
	for i, order := range list {
		out[i] = NewOrderResponse(order)
	}
	return out
}
