package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/authz"
)

// RepositoryPort defines data access methods for identity.
type RepositoryPort interface {
	RolesOf(ctx context.Context, principalID uuid.UUID) ([]authz.Role, error)
	ListAssignments(ctx context.Context, principalID uuid.UUID) ([]RoleAssignment, error)
	Grant(ctx context.Context, principalID uuid.UUID, role authz.Role) error
	Revoke(ctx context.Context, principalID uuid.UUID, role authz.Role) error
	GetPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error)
}

// SessionRevoker tears down every live session a principal holds. Role
// changes go through it so a stale staff-verified cookie cannot outlive the
// assignment that justified it.
type SessionRevoker interface {
	RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID) error
}

// Service handles role assignment business logic and implements
// authz.RoleResolver.
type Service struct {
	repo     RepositoryPort
	sessions SessionRevoker
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, sessions SessionRevoker, logger *slog.Logger) *Service {
	return &Service{repo: repo, sessions: sessions, logger: logger}
}

// RolesOf resolves the live role set for a principal. This is the resolver
// the authorization engine calls on every check.
func (s *Service) RolesOf(ctx context.Context, principalID uuid.UUID) ([]authz.Role, error) {
	return s.repo.RolesOf(ctx, principalID)
}

// GetPrincipal fetches a principal by ID.
func (s *Service) GetPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error) {
	return s.repo.GetPrincipal(ctx, id)
}

// ListAssignments returns the assignments of a principal.
func (s *Service) ListAssignments(ctx context.Context, principalID uuid.UUID) ([]RoleAssignment, error) {
	return s.repo.ListAssignments(ctx, principalID)
}

// Grant assigns a role to a principal. Existing sessions are revoked so the
// new capability set is picked up through a fresh verification, never by
// mutating live session state.
func (s *Service) Grant(ctx context.Context, principalID uuid.UUID, role authz.Role) error {
	if !role.Valid() {
		return fmt.Errorf("identity: unknown role %q", role)
	}
	if _, err := s.repo.GetPrincipal(ctx, principalID); err != nil {
		return err
	}
	if err := s.repo.Grant(ctx, principalID, role); err != nil {
		return err
	}
	s.invalidateSessions(ctx, principalID)
	return nil
}

// Revoke removes a role from a principal and invalidates the principal's
// sessions.
func (s *Service) Revoke(ctx context.Context, principalID uuid.UUID, role authz.Role) error {
	if !role.Valid() {
		return fmt.Errorf("identity: unknown role %q", role)
	}
	if err := s.repo.Revoke(ctx, principalID, role); err != nil {
		return err
	}
	s.invalidateSessions(ctx, principalID)
	return nil
}

func (s *Service) invalidateSessions(ctx context.Context, principalID uuid.UUID) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAllForPrincipal(ctx, principalID); err != nil && s.logger != nil {
		s.logger.Warn("revoke sessions after role change",
			slog.String("principal", principalID.String()),
			slog.Any("error", err))
	}
}
