package authz

// Resource is a protected resource class.
type Resource string

// Action is an operation on a resource.
type Action string

const (
	ResourceOrder      Resource = "order"
	ResourceProduct    Resource = "product"
	ResourceCustomer   Resource = "customer"
	ResourceRole       Resource = "role"
	ResourcePermission Resource = "permission"
)

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Permission is an atomic (resource, action) capability.
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// grants is the permission catalogue: the authoritative table of which roles
// hold which capability. Order matters only for the rendered legend; lookups
// go through the derived index below.
var grants = []struct {
	Permission Permission
	Roles      []Role
}{
	{Permission{ResourceOrder, ActionRead}, []Role{RoleSupport, RoleManager, RoleAdmin}},
	{Permission{ResourceOrder, ActionWrite}, []Role{RoleManager, RoleAdmin}},
	{Permission{ResourceProduct, ActionRead}, []Role{RoleSupport, RoleManager, RoleAdmin}},
	{Permission{ResourceProduct, ActionWrite}, []Role{RoleManager, RoleAdmin}},
	{Permission{ResourceCustomer, ActionRead}, []Role{RoleSupport, RoleManager, RoleAdmin}},
	{Permission{ResourceCustomer, ActionWrite}, []Role{RoleAdmin}},
	{Permission{ResourceRole, ActionRead}, []Role{RoleAdmin}},
	{Permission{ResourceRole, ActionWrite}, []Role{RoleAdmin}},
	{Permission{ResourcePermission, ActionRead}, []Role{RoleSupport, RoleManager, RoleAdmin}},
}

var grantIndex = buildGrantIndex()

func buildGrantIndex() map[Permission]map[Role]struct{} {
	idx := make(map[Permission]map[Role]struct{}, len(grants))
	for _, g := range grants {
		set := make(map[Role]struct{}, len(g.Roles))
		for _, r := range g.Roles {
			set[r] = struct{}{}
		}
		idx[g.Permission] = set
	}
	return idx
}

// IsGranted reports whether role holds (resource, action). Unknown roles,
// resources, and actions resolve to false, never to an error.
func IsGranted(role Role, resource Resource, action Action) bool {
	set, ok := grantIndex[Permission{Resource: resource, Action: action}]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// PermissionsFor returns the permissions granted to a role, in catalogue
// order.
func PermissionsFor(role Role) []Permission {
	perms := make([]Permission, 0, len(grants))
	for _, g := range grants {
		if _, ok := grantIndex[g.Permission][role]; ok {
			perms = append(perms, g.Permission)
		}
	}
	return perms
}

// CatalogueEntry is one row of the rendered capability legend.
type CatalogueEntry struct {
	Permission Permission `json:"permission"`
	Roles      []Role     `json:"roles"`
}

// Catalogue returns the full permission table for read-only display. The
// slices are copies; callers cannot mutate the registry.
func Catalogue() []CatalogueEntry {
	entries := make([]CatalogueEntry, 0, len(grants))
	for _, g := range grants {
		roles := make([]Role, len(g.Roles))
		copy(roles, g.Roles)
		entries = append(entries, CatalogueEntry{Permission: g.Permission, Roles: roles})
	}
	return entries
}
