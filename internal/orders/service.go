package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/authz"
)

// Service applies order business rules. Status changes go through Transition
// only; the authorization check runs before the order is even read so an
// unauthorized caller learns nothing about the aggregate.
type Service struct {
	repo   RepositoryPort
	engine *authz.Engine
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, engine *authz.Engine, logger *slog.Logger) *Service {
	return &Service{repo: repo, engine: engine, logger: logger}
}

// CreateDraft opens a new order in draft for the calling customer. Pricing
// is the storefront collaborator's concern; this core records the amounts it
// is handed.
func (s *Service) CreateDraft(ctx context.Context, customerID uuid.UUID, req CreateOrderRequest) (*Order, error) {
	orderID := uuid.New()
	var subtotal int64
	items := make([]OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		subtotal += int64(item.Quantity) * item.UnitPriceCents
		items = append(items, OrderItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	order := Order{
		ID:            orderID,
		Number:        newOrderNumber(),
		StoreID:       req.StoreID,
		CustomerID:    customerID,
		Status:        StatusDraft,
		Currency:      strings.ToUpper(req.Currency),
		SubtotalCents: subtotal,
		TaxCents:      req.TaxCents,
		TotalCents:    subtotal + req.TaxCents,
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, order, items); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return s.repo.Get(ctx, order.ID)
}

// Transition moves an order along the lifecycle graph on behalf of a
// principal. The permission gate runs first; the machine validates the edge;
// the repository applies it as a conditional write. A retry of an
// already-applied transition fails with InvalidTransitionError because the
// source state no longer matches.
func (s *Service) Transition(ctx context.Context, principalID uuid.UUID, orderID uuid.UUID, to Status, reason *string) (*Order, error) {
	if err := s.engine.RequirePermission(ctx, principalID, authz.ResourceOrder, authz.ActionWrite); err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, to) {
		return nil, &InvalidTransitionError{From: order.Status, To: to}
	}

	applied, err := s.repo.UpdateStatus(ctx, orderID, order.Status, to, reason)
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	if !applied {
		// Lost the race: someone else moved the order first. Report against
		// the current state rather than the stale read.
		current, err := s.repo.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{From: current.Status, To: to}
	}

	if s.logger != nil {
		s.logger.Info("order transitioned",
			slog.String("order", orderID.String()),
			slog.String("from", string(order.Status)),
			slog.String("to", string(to)),
			slog.String("principal", principalID.String()),
		)
	}
	return s.repo.Get(ctx, orderID)
}

// GetForPrincipal returns an order the principal may see: the owning
// customer, or staff holding order.read. Everyone else gets not-found, not
// forbidden, so order IDs cannot be probed.
func (s *Service) GetForPrincipal(ctx context.Context, principalID, orderID uuid.UUID) (*Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID == principalID {
		return order, nil
	}
	if s.engine.HasPermission(ctx, principalID, authz.ResourceOrder, authz.ActionRead) {
		return order, nil
	}
	return nil, &notOwnedError{}
}

// Get fetches an order without a visibility check. Only for call sites
// already behind a staff permission gate.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.repo.Get(ctx, orderID)
}

// ListMine returns the calling customer's orders.
func (s *Service) ListMine(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Order, error) {
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

// List returns a filtered admin page of orders.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Order, int64, error) {
	return s.repo.List(ctx, filters)
}

// ExpireStalePending cancels pending_payment orders untouched since the
// cutoff. Invoked by the background worker under its own identity, not an
// end-user principal; each cancellation still goes through the machine and
// the conditional write, so an order paid mid-scan is left alone.
func (s *Service) ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.repo.ListStuck(ctx, StatusPendingPayment, cutoff, limit)
	if err != nil {
		return 0, err
	}
	reason := "payment window elapsed"
	expired := 0
	for _, order := range stale {
		if !CanTransition(order.Status, StatusCancelled) {
			continue
		}
		applied, err := s.repo.UpdateStatus(ctx, order.ID, order.Status, StatusCancelled, &reason)
		if err != nil {
			return expired, err
		}
		if applied {
			expired++
		}
	}
	return expired, nil
}

// notOwnedError hides an order from principals with no claim to it.
type notOwnedError struct{}

func (*notOwnedError) Error() string { return "orders: not visible to principal" }

// IsNotVisible reports whether err means the principal may not see the order.
func IsNotVisible(err error) bool {
	_, ok := err.(*notOwnedError)
	return ok
}

func newOrderNumber() string {
	id := uuid.New()
	return fmt.Sprintf("HL-%s-%X", time.Now().UTC().Format("060102"), id[:4])
}
