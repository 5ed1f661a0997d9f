package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	// ErrForbidden indicates the principal is authenticated but lacks the
	// required capability.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrIdentityUnavailable indicates the identity store could not be
	// reached. Callers must treat it exactly like ErrForbidden.
	ErrIdentityUnavailable = errors.New("authz: identity unavailable")
)

// RoleResolver returns the roles currently assigned to a principal. A failed
// lookup surfaces ErrIdentityUnavailable; implementations must not cache
// results across requests.
type RoleResolver interface {
	RolesOf(ctx context.Context, principalID uuid.UUID) ([]Role, error)
}

// Engine answers authorization questions by combining the permission
// catalogue with live role resolution. It holds no per-principal state.
type Engine struct {
	resolver RoleResolver
	logger   *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(resolver RoleResolver, logger *slog.Logger) *Engine {
	return &Engine{resolver: resolver, logger: logger}
}

// HasPermission reports whether the principal holds (resource, action)
// through any assigned role. Resolver failures are logged and answered with
// false.
func (e *Engine) HasPermission(ctx context.Context, principalID uuid.UUID, resource Resource, action Action) bool {
	roles, err := e.resolver.RolesOf(ctx, principalID)
	if err != nil {
		e.logDenied(principalID, resource, action, err)
		return false
	}
	for _, role := range roles {
		if IsGranted(role, resource, action) {
			return true
		}
	}
	return false
}

// RequirePermission is HasPermission with require semantics: it returns
// ErrForbidden (or ErrIdentityUnavailable) instead of a boolean so call sites
// can short-circuit before any side effect. Privileged mutations call this
// first, before reads that would expose privileged data.
func (e *Engine) RequirePermission(ctx context.Context, principalID uuid.UUID, resource Resource, action Action) error {
	roles, err := e.resolver.RolesOf(ctx, principalID)
	if err != nil {
		e.logDenied(principalID, resource, action, err)
		return fmt.Errorf("%w: resolving roles for %s.%s: %v", ErrIdentityUnavailable, resource, action, err)
	}
	for _, role := range roles {
		if IsGranted(role, resource, action) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrForbidden, resource, action)
}

// IsStaff reports whether the principal holds any staff role. The error is
// non-nil only when the resolver failed; callers deny in that case.
func (e *Engine) IsStaff(ctx context.Context, principalID uuid.UUID) (bool, error) {
	roles, err := e.resolver.RolesOf(ctx, principalID)
	if err != nil {
		e.logDenied(principalID, "", "", err)
		return false, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	for _, role := range roles {
		if role.IsStaff() {
			return true, nil
		}
	}
	return false, nil
}

// RequireStaff fails with ErrForbidden unless the principal holds a staff
// role.
func (e *Engine) RequireStaff(ctx context.Context, principalID uuid.UUID) error {
	staff, err := e.IsStaff(ctx, principalID)
	if err != nil {
		return err
	}
	if !staff {
		return fmt.Errorf("%w: staff role required", ErrForbidden)
	}
	return nil
}

// RequireAdmin fails with ErrForbidden unless the principal holds the admin
// role.
func (e *Engine) RequireAdmin(ctx context.Context, principalID uuid.UUID) error {
	roles, err := e.resolver.RolesOf(ctx, principalID)
	if err != nil {
		e.logDenied(principalID, "", "", err)
		return fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	for _, role := range roles {
		if role == RoleAdmin {
			return nil
		}
	}
	return fmt.Errorf("%w: admin role required", ErrForbidden)
}

// logDenied records a fail-closed denial. The cause field separates resolver
// outages from plain permission misses so operators can tell probing from
// infrastructure degradation; the caller-visible behavior is identical.
func (e *Engine) logDenied(principalID uuid.UUID, resource Resource, action Action, err error) {
	if e.logger == nil {
		return
	}
	e.logger.Warn("authorization denied closed",
		slog.String("principal", principalID.String()),
		slog.String("resource", string(resource)),
		slog.String("action", string(action)),
		slog.String("cause", "identity_unavailable"),
		slog.Any("error", err),
	)
}
