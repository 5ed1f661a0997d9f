package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harborline/harborline/internal/shared"
)

type mockRepo struct {
	accounts map[uuid.UUID]*Account
	sessions map[string]uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		accounts: make(map[uuid.UUID]*Account),
		sessions: make(map[string]uuid.UUID),
	}
}

func (m *mockRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepo) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.MustChangePassword = false
	return nil
}

func (m *mockRepo) CreateSession(ctx context.Context, id string, principalID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = principalID
	return nil
}

func (m *mockRepo) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockRepo) SessionIDsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]string, error) {
	var ids []string
	for id, pid := range m.sessions {
		if pid == principalID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockRepo) DeleteSessionsForPrincipal(ctx context.Context, principalID uuid.UUID) error {
	for id, pid := range m.sessions {
		if pid == principalID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

var _ Repository = (*mockRepo)(nil)

type recordingStore struct {
	revoked []string
}

func (r *recordingStore) Revoke(ctx context.Context, sessionID string) error {
	r.revoked = append(r.revoked, sessionID)
	return nil
}

func (r *recordingStore) TTL() time.Duration { return time.Hour }

func seedAccount(t *testing.T, repo *mockRepo, password string, active bool) *Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	account := &Account{
		ID:           uuid.New(),
		Email:        "ops@example.com",
		PasswordHash: string(hash),
		IsActive:     active,
	}
	repo.accounts[account.ID] = account
	return account
}

func TestAuthenticate(t *testing.T) {
	repo := newMockRepo()
	account := seedAccount(t, repo, "correct horse", true)
	service := NewService(nil, repo, &recordingStore{})

	got, err := service.Authenticate(context.Background(), "ops@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	repo := newMockRepo()
	seedAccount(t, repo, "correct horse", true)
	service := NewService(nil, repo, &recordingStore{})

	_, err := service.Authenticate(context.Background(), "ops@example.com", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = service.Authenticate(context.Background(), "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	repo := newMockRepo()
	seedAccount(t, repo, "correct horse", false)
	service := NewService(nil, repo, &recordingStore{})

	_, err := service.Authenticate(context.Background(), "ops@example.com", "correct horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRevokeAllForPrincipal(t *testing.T) {
	repo := newMockRepo()
	account := seedAccount(t, repo, "correct horse", true)
	other := uuid.New()
	repo.sessions["sess-1"] = account.ID
	repo.sessions["sess-2"] = account.ID
	repo.sessions["sess-3"] = other

	store := &recordingStore{}
	service := NewService(nil, repo, store)

	require.NoError(t, service.RevokeAllForPrincipal(context.Background(), account.ID))

	assert.ElementsMatch(t, []string{"sess-1", "sess-2"}, store.revoked)
	assert.NotContains(t, repo.sessions, "sess-1")
	assert.NotContains(t, repo.sessions, "sess-2")
	assert.Contains(t, repo.sessions, "sess-3", "other principals keep their sessions")
}

func TestChangePassword(t *testing.T) {
	repo := newMockRepo()
	account := seedAccount(t, repo, "correct horse", true)
	repo.accounts[account.ID].MustChangePassword = true
	service := NewService(nil, repo, &recordingStore{})

	err := service.ChangePassword(context.Background(), account.ID, "correct horse", "battery staple 9")
	require.NoError(t, err)

	stored := repo.accounts[account.ID]
	assert.False(t, stored.MustChangePassword)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("battery staple 9")))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	repo := newMockRepo()
	account := seedAccount(t, repo, "correct horse", true)
	service := NewService(nil, repo, &recordingStore{})

	err := service.ChangePassword(context.Background(), account.ID, "guess", "battery staple 9")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(repo.accounts[account.ID].PasswordHash), []byte("correct horse")))
}
