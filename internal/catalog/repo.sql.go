package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborline/harborline/internal/shared"
)

// ErrDuplicateSKU is returned when a create or update collides with an
// existing SKU in the same store.
var ErrDuplicateSKU = errors.New("catalog: sku already exists in store")

const uniqueViolation = "23505"

// RepositoryPort defines persistence operations for the catalog.
type RepositoryPort interface {
	Create(ctx context.Context, p Product) error
	Get(ctx context.Context, storeID, id uuid.UUID) (*Product, error)
	List(ctx context.Context, storeID uuid.UUID, activeOnly bool, limit, offset int) ([]Product, error)
	Update(ctx context.Context, p Product) error
	Deactivate(ctx context.Context, storeID, id uuid.UUID) error
}

// Repository implements RepositoryPort using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a product. A unique violation on (store_id, sku) maps to
// ErrDuplicateSKU.
func (r *Repository) Create(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, store_id, sku, name, description, price_cents, currency, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		p.ID, p.StoreID, p.SKU, p.Name, p.Description, p.PriceCents, p.Currency, p.IsActive)
	return mapUniqueViolation(err)
}

// Get fetches a product within a store.
func (r *Repository) Get(ctx context.Context, storeID, id uuid.UUID) (*Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, store_id, sku, name, description, price_cents, currency, is_active, created_at, updated_at
		 FROM products WHERE store_id = $1 AND id = $2`, storeID, id)
	return scanProduct(row)
}

// List returns a page of products for a store.
func (r *Repository) List(ctx context.Context, storeID uuid.UUID, activeOnly bool, limit, offset int) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, store_id, sku, name, description, price_cents, currency, is_active, created_at, updated_at
		 FROM products
		 WHERE store_id = $1 AND ($2 = false OR is_active)
		 ORDER BY sku
		 LIMIT $3 OFFSET $4`, storeID, activeOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of a product.
func (r *Repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET sku = $3, name = $4, description = $5, price_cents = $6, currency = $7, is_active = $8, updated_at = now()
		 WHERE store_id = $1 AND id = $2`,
		p.StoreID, p.ID, p.SKU, p.Name, p.Description, p.PriceCents, p.Currency, p.IsActive)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate soft-removes a product from sale.
func (r *Repository) Deactivate(ctx context.Context, storeID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET is_active = false, updated_at = now()
		 WHERE store_id = $1 AND id = $2 AND is_active`, storeID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateSKU
	}
	return err
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.StoreID, &p.SKU, &p.Name, &p.Description,
		&p.PriceCents, &p.Currency, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ RepositoryPort = (*Repository)(nil)
