package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

const (
	testVerifyPath   = "/admin/verify"
	testPasswordPath = "/admin/password"
)

func newGuard(t *testing.T) (*Guard, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	guard := &Guard{
		Signer:       NewCookieSigner("cookie-secret", false),
		VerifyPath:   testVerifyPath,
		PasswordPath: testPasswordPath,
	}
	return guard, sessions
}

func authedRequest(t *testing.T, sessions *shared.SessionManager, target string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetPrincipal("5ad2cf6e-9c3b-4a4e-91f5-0d6f9b2c1a33")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	return req, sess
}

func passThrough() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestGuardAnonymousGetsNotFoundMask(t *testing.T) {
	guard, _ := newGuard(t)
	inner, called := passThrough()

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	res := httptest.NewRecorder()
	guard.Middleware(inner).ServeHTTP(res, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusNotFound, res.Code)

	// The masked response must be byte-identical to the router's generic 404.
	plain := httptest.NewRecorder()
	httpx.NotFound(plain)
	assert.Equal(t, plain.Code, res.Code)
	assert.Equal(t, plain.Body.String(), res.Body.String())
	assert.Empty(t, res.Header().Get("Location"))
}

func TestGuardAnonymousSessionWithoutPrincipal(t *testing.T) {
	guard, sessions := newGuard(t)
	inner, called := passThrough()

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	guard.Middleware(inner).ServeHTTP(res, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestGuardUnverifiedRedirectsToReconciler(t *testing.T) {
	guard, sessions := newGuard(t)
	inner, called := passThrough()

	req, _ := authedRequest(t, sessions, "/admin/orders?page=2")
	res := httptest.NewRecorder()
	guard.Middleware(inner).ServeHTTP(res, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusSeeOther, res.Code)

	loc, err := url.Parse(res.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, testVerifyPath, loc.Path)
	assert.Equal(t, "/admin/orders?page=2", loc.Query().Get("next"))
}

func TestGuardUnverifiedPassesVerifyPath(t *testing.T) {
	guard, sessions := newGuard(t)
	inner, called := passThrough()

	req, _ := authedRequest(t, sessions, testVerifyPath+"?next=%2Fadmin%2Forders")
	res := httptest.NewRecorder()
	guard.Middleware(inner).ServeHTTP(res, req)

	assert.True(t, *called, "reconciler path must be exempt from its own redirect")
}

func TestGuardForgedStaffCookieIgnored(t *testing.T) {
	guard, sessions := newGuard(t)
	inner, called := passThrough()

	req, _ := authedRequest(t, sessions, "/admin/orders")
	req.AddCookie(&http.Cookie{Name: StaffVerifiedCookie, Value: "1|0|fabricated"})

	res := httptest.NewRecorder()
	guard.Middleware(inner).ServeHTTP(res, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusSeeOther, res.Code)
}

func TestGuardVerifiedPasses(t *testing.T) {
	guard, sessions := newGuard(t)
	inner, called := passThrough()

	req, sess := authedRequest(t, sessions, "/admin/orders")
	req.AddCookie(guard.Signer.Issue(StaffVerifiedCookie, sess.ID, 0))

	res := httptest.NewRecorder()
	guard.Middleware(inner).ServeHTTP(res, req)

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestGuardMustChangePasswordLockout(t *testing.T) {
	guard, sessions := newGuard(t)

	for _, tc := range []struct {
		target     string
		wantPassed bool
	}{
		{"/admin/orders", false},
		{"/admin/products", false},
		{testPasswordPath, true},
		{testVerifyPath, true},
	} {
		inner, called := passThrough()
		req, sess := authedRequest(t, sessions, tc.target)
		req.AddCookie(guard.Signer.Issue(StaffVerifiedCookie, sess.ID, 0))
		req.AddCookie(guard.Signer.Issue(MustChangePasswordCookie, sess.ID, MustChangePasswordTTL))

		res := httptest.NewRecorder()
		guard.Middleware(inner).ServeHTTP(res, req)

		if tc.wantPassed {
			assert.True(t, *called, "path %s should pass", tc.target)
			continue
		}
		assert.False(t, *called, "path %s should be locked", tc.target)
		assert.Equal(t, http.StatusSeeOther, res.Code)
		assert.Equal(t, testPasswordPath, res.Header().Get("Location"))
	}
}
