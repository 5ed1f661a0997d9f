package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborline/harborline/internal/authz"
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

// RolesOf returns the roles currently assigned to a principal. Unknown role
// names in storage are skipped rather than failing the whole resolution.
func (r *Repository) RolesOf(ctx context.Context, principalID uuid.UUID) ([]authz.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role FROM role_assignments WHERE principal_id = $1 ORDER BY role`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []authz.Role
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if role, ok := authz.ParseRole(raw); ok {
			roles = append(roles, role)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListAssignments returns the assignment rows for a principal.
func (r *Repository) ListAssignments(ctx context.Context, principalID uuid.UUID) ([]RoleAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT principal_id, role, created_at FROM role_assignments WHERE principal_id = $1 ORDER BY role`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		var raw string
		if err := rows.Scan(&a.PrincipalID, &raw, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Role = authz.Role(raw)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// Grant inserts a role assignment. Inserting an existing pair is a no-op.
func (r *Repository) Grant(ctx context.Context, principalID uuid.UUID, role authz.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_assignments (principal_id, role, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (principal_id, role) DO NOTHING`, principalID, string(role))
	return err
}

// Revoke deletes a role assignment. Rows are hard-deleted; there is no
// soft-delete for assignments.
func (r *Repository) Revoke(ctx context.Context, principalID uuid.UUID, role authz.Role) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM role_assignments WHERE principal_id = $1 AND role = $2`, principalID, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetPrincipal fetches a principal by ID.
func (r *Repository) GetPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error) {
	var p Principal
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, is_active, must_change_password, created_at, updated_at
		 FROM principals WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.IsActive, &p.MustChangePassword, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
