package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborline/internal/authz"
	"github.com/harborline/harborline/internal/shared"
)

type mockRepo struct {
	principals  map[uuid.UUID]*Principal
	assignments map[uuid.UUID]map[authz.Role]time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		principals:  make(map[uuid.UUID]*Principal),
		assignments: make(map[uuid.UUID]map[authz.Role]time.Time),
	}
}

func (m *mockRepo) RolesOf(ctx context.Context, principalID uuid.UUID) ([]authz.Role, error) {
	var roles []authz.Role
	for role := range m.assignments[principalID] {
		roles = append(roles, role)
	}
	return roles, nil
}

func (m *mockRepo) ListAssignments(ctx context.Context, principalID uuid.UUID) ([]RoleAssignment, error) {
	var out []RoleAssignment
	for role, at := range m.assignments[principalID] {
		out = append(out, RoleAssignment{PrincipalID: principalID, Role: role, CreatedAt: at})
	}
	return out, nil
}

func (m *mockRepo) Grant(ctx context.Context, principalID uuid.UUID, role authz.Role) error {
	if m.assignments[principalID] == nil {
		m.assignments[principalID] = make(map[authz.Role]time.Time)
	}
	m.assignments[principalID][role] = time.Now()
	return nil
}

func (m *mockRepo) Revoke(ctx context.Context, principalID uuid.UUID, role authz.Role) error {
	if _, ok := m.assignments[principalID][role]; !ok {
		return shared.ErrNotFound
	}
	delete(m.assignments[principalID], role)
	return nil
}

func (m *mockRepo) GetPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error) {
	p, ok := m.principals[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

type recordingRevoker struct {
	revoked []uuid.UUID
}

func (r *recordingRevoker) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID) error {
	r.revoked = append(r.revoked, principalID)
	return nil
}

func TestGrantRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	err := svc.Grant(context.Background(), uuid.New(), authz.Role("superuser"))
	assert.Error(t, err)
}

func TestGrantUnknownPrincipal(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	err := svc.Grant(context.Background(), uuid.New(), authz.RoleSupport)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGrantAndRevokeInvalidateSessions(t *testing.T) {
	repo := newMockRepo()
	principal := uuid.New()
	repo.principals[principal] = &Principal{ID: principal, Email: "staff@harborline.test", IsActive: true}
	revoker := &recordingRevoker{}
	svc := NewService(repo, revoker, nil)

	require.NoError(t, svc.Grant(context.Background(), principal, authz.RoleSupport))
	roles, err := svc.RolesOf(context.Background(), principal)
	require.NoError(t, err)
	assert.Equal(t, []authz.Role{authz.RoleSupport}, roles)

	require.NoError(t, svc.Revoke(context.Background(), principal, authz.RoleSupport))
	roles, err = svc.RolesOf(context.Background(), principal)
	require.NoError(t, err)
	assert.Empty(t, roles)

	// Both the grant and the revoke must tear down live sessions.
	assert.Equal(t, []uuid.UUID{principal, principal}, revoker.revoked)
}

func TestRevokeMissingAssignment(t *testing.T) {
	repo := newMockRepo()
	principal := uuid.New()
	repo.principals[principal] = &Principal{ID: principal}
	svc := NewService(repo, nil, nil)

	assert.ErrorIs(t, svc.Revoke(context.Background(), principal, authz.RoleManager), shared.ErrNotFound)
}
