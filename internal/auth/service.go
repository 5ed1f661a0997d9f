package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/harborline/harborline/internal/shared"
)

// SessionStore is the subset of the session manager the auth service needs
// for server-side revocation.
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

// Service implements authentication flows: credential checks, session
// registration, and password rotation.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	sessions SessionStore
}

// NewService constructs the auth service.
func NewService(logger *slog.Logger, repo Repository, sessions SessionStore) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, sessions: sessions}
}

// Authenticate checks credentials and returns the account. Unknown email,
// wrong password, and deactivated account all collapse into
// ErrInvalidCredentials so responses cannot be used to enumerate accounts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Burn comparable time so the miss is not observable.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// RegisterSession records a login session server-side so it can be revoked
// later without the cooperation of the client.
func (s *Service) RegisterSession(ctx context.Context, sessionID string, principalID uuid.UUID, ip, ua string) error {
	expiresAt := time.Now().Add(s.sessions.TTL())
	if err := s.repo.CreateSession(ctx, sessionID, principalID, expiresAt, ip, ua); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

// ForgetSession removes the session registry row after a logout.
func (s *Service) ForgetSession(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}

// RevokeAllForPrincipal destroys every live session of a principal, both the
// Redis records and the registry rows. Role changes call this so stale
// assignments cannot ride out an existing session.
func (s *Service) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID) error {
	ids, err := s.repo.SessionIDsForPrincipal(ctx, principalID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, id := range ids {
		if err := s.sessions.Revoke(ctx, id); err != nil {
			return fmt.Errorf("revoke session %s: %w", id, err)
		}
	}
	if err := s.repo.DeleteSessionsForPrincipal(ctx, principalID); err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	s.logger.Info("sessions revoked",
		slog.String("principal_id", principalID.String()),
		slog.Int("count", len(ids)))
	return nil
}

// ChangePassword verifies the current password and stores a bcrypt hash of
// the new one. The repository clears must_change_password in the same
// statement.
func (s *Service) ChangePassword(ctx context.Context, principalID uuid.UUID, current, next string) error {
	account, err := s.repo.FindByID(ctx, principalID)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, principalID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ReapExpiredSessions removes registry rows whose expiry has passed. The
// Redis records expire on their own; this keeps the registry in step.
func (s *Service) ReapExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, time.Now())
}
