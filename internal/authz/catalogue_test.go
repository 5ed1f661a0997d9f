package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGrantedUnknownInputs(t *testing.T) {
	assert.False(t, IsGranted(Role("ghost"), ResourceOrder, ActionWrite))
	assert.False(t, IsGranted(RoleAdmin, Resource("warehouse"), ActionWrite))
	assert.False(t, IsGranted(RoleAdmin, ResourceOrder, Action("approve")))
	assert.False(t, IsGranted(Role(""), Resource(""), Action("")))
}

func TestCustomerHoldsNoCataloguePermissions(t *testing.T) {
	assert.Empty(t, PermissionsFor(RoleCustomer))
}

func TestPermissionsForMatchesIsGranted(t *testing.T) {
	for _, role := range []Role{RoleCustomer, RoleSupport, RoleManager, RoleAdmin} {
		granted := make(map[Permission]bool)
		for _, p := range PermissionsFor(role) {
			granted[p] = true
		}
		for _, entry := range Catalogue() {
			p := entry.Permission
			assert.Equal(t, granted[p], IsGranted(role, p.Resource, p.Action),
				"role %s permission %s.%s", role, p.Resource, p.Action)
		}
	}
}

func TestOrderWriteRestrictedToManagerAndAdmin(t *testing.T) {
	assert.False(t, IsGranted(RoleCustomer, ResourceOrder, ActionWrite))
	assert.False(t, IsGranted(RoleSupport, ResourceOrder, ActionWrite))
	assert.True(t, IsGranted(RoleManager, ResourceOrder, ActionWrite))
	assert.True(t, IsGranted(RoleAdmin, ResourceOrder, ActionWrite))
}

func TestCatalogueReturnsCopies(t *testing.T) {
	first := Catalogue()
	first[0].Roles[0] = Role("tampered")
	second := Catalogue()
	assert.NotEqual(t, Role("tampered"), second[0].Roles[0])
}

func TestStaffRoles(t *testing.T) {
	assert.False(t, RoleCustomer.IsStaff())
	assert.True(t, RoleSupport.IsStaff())
	assert.True(t, RoleManager.IsStaff())
	assert.True(t, RoleAdmin.IsStaff())

	_, ok := ParseRole("manager")
	assert.True(t, ok)
	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}
