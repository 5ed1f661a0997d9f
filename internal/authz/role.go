// Package authz holds the permission catalogue and the authorization engine.
// The catalogue is the single place that says what each role may do; nothing
// else in the codebase is allowed to hard-code a role check.
package authz

// Role is one of the platform's closed set of roles. Roles are not
// user-extensible; adding one is a code change here plus catalogue entries.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupport  Role = "support"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// StaffRoles are the roles allowed onto the admin surface.
var StaffRoles = []Role{RoleSupport, RoleManager, RoleAdmin}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSupport, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role grants access to the admin surface.
func (r Role) IsStaff() bool {
	switch r {
	case RoleSupport, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ParseRole validates a raw role name. The boolean is false for anything
// outside the closed set.
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	return r, r.Valid()
}
