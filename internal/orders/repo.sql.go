package orders

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/harborline/harborline/internal/platform/db"
	"github.com/harborline/harborline/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, number, store_id, customer_id, status, currency,
	subtotal_cents, tax_cents, total_cents, notes, created_at, updated_at,
	cancelled_at, cancel_reason`

// Create inserts the order and its lines in one transaction.
func (r *Repository) Create(ctx context.Context, order Order, items []OrderItem) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO orders (id, number, store_id, customer_id, status, currency,
				subtotal_cents, tax_cents, total_cents, notes, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`,
			order.ID, order.Number, order.StoreID, order.CustomerID, string(order.Status),
			order.Currency, order.SubtotalCents, order.TaxCents, order.TotalCents, order.Notes)
		if err != nil {
			return err
		}
		for _, item := range items {
			_, err := tx.Exec(ctx,
				`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price_cents)
				 VALUES ($1, $2, $3, $4, $5)`,
				item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPriceCents)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Get fetches an order by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// List returns a page of orders plus the unpaged total. Page and count run
// concurrently against the pool.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Order, int64, error) {
	where := ` WHERE store_id = $1`
	args := []any{filters.StoreID}
	if filters.Status != nil {
		where += ` AND status = $2`
		args = append(args, string(*filters.Status))
	}
	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		out   []Order
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := `SELECT ` + orderColumns + ` FROM orders` + where +
			` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(max(filters.Offset, 0))
		rows, err := r.pool.Query(gctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			order, err := scanOrder(rows)
			if err != nil {
				return err
			}
			out = append(out, *order)
		}
		return rows.Err()
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByCustomer returns a customer's own orders, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	return out, rows.Err()
}

// UpdateStatus performs the compare-and-swap transition write. The status
// column is only touched here; the WHERE clause carries the expected source
// state so two racing transitions cannot both apply off a stale read.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET status = $3,
		     updated_at = now(),
		     cancelled_at = CASE WHEN $3 = 'cancelled' THEN now() ELSE cancelled_at END,
		     cancel_reason = CASE WHEN $3 = 'cancelled' THEN $4 ELSE cancel_reason END
		 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListStuck returns orders parked in a status since before the cutoff.
func (r *Repository) ListStuck(ctx context.Context, status Status, cutoff time.Time, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = $1 AND updated_at < $2
		 ORDER BY updated_at ASC LIMIT $3`, string(status), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.Number, &o.StoreID, &o.CustomerID, &status, &o.Currency,
		&o.SubtotalCents, &o.TaxCents, &o.TotalCents, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
		&o.CancelledAt, &o.CancelReason); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

var _ RepositoryPort = (*Repository)(nil)
