package catalog

import "time"

// CreateProductRequest carries a new product.
type CreateProductRequest struct {
	SKU         string `json:"sku" validate:"required,min=2,max=64"`
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
	Currency    string `json:"currency" validate:"required,len=3,alpha"`
}

// UpdateProductRequest carries a full rewrite of a product's mutable fields.
type UpdateProductRequest struct {
	SKU         string `json:"sku" validate:"required,min=2,max=64"`
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
	Currency    string `json:"currency" validate:"required,len=3,alpha"`
	IsActive    bool   `json:"is_active"`
}

// ProductResponse is the wire form of a product.
type ProductResponse struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProductResponse converts a domain product to its wire form.
func NewProductResponse(p Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		StoreID:     p.StoreID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Currency:    p.Currency,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newProductResponses(list []Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, NewProductResponse(p))
	}
	return out
}
