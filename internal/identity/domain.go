// Package identity owns principals and their role assignments. It is the
// authoritative source the authorization engine resolves against; nothing in
// here is cached across requests.
package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/authz"
)

// Principal is an account known to the platform. The commerce core references
// principals by ID only; profile data lives with the storefront modules.
type Principal struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	IsActive           bool      `json:"is_active"`
	MustChangePassword bool      `json:"must_change_password"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RoleAssignment is one (principal, role) edge. The pair is unique; a
// principal holds zero or more roles and their effective permissions are the
// union over all of them.
type RoleAssignment struct {
	PrincipalID uuid.UUID  `json:"principal_id"`
	Role        authz.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
}
