// Package gate implements the admin-surface edge: signed authorization-state
// cookies, the route guard that evaluates them without touching storage, and
// the reconciler that re-derives them authoritatively. Non-staff callers are
// answered as if the admin surface does not exist.
package gate

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// StaffVerifiedCookie marks a session whose staff status has been
	// confirmed by the reconciler. Session-scoped: no Max-Age, so it dies
	// with the browser session.
	StaffVerifiedCookie = "hl_staff"
	// MustChangePasswordCookie flags a pending mandatory password rotation.
	// Carries its own absolute expiry independent of the session.
	MustChangePasswordCookie = "hl_pwrotate"

	// MustChangePasswordTTL is the absolute lifetime of the rotation flag.
	MustChangePasswordTTL = 24 * time.Hour
)

// CookieSigner issues and verifies HMAC-signed boolean cookies bound to a
// session ID. A cookie copied onto a different session fails verification,
// and any parse or signature failure reads as "flag not set".
type CookieSigner struct {
	secret []byte
	secure bool
}

// NewCookieSigner constructs a CookieSigner.
func NewCookieSigner(secret string, secure bool) *CookieSigner {
	return &CookieSigner{secret: []byte(secret), secure: secure}
}

// Issue builds a signed cookie for the session. ttl zero means
// session-scoped: no expiry is embedded and no Max-Age is set.
func (s *CookieSigner) Issue(name, sessionID string, ttl time.Duration) *http.Cookie {
	var expires int64
	if ttl > 0 {
		expires = time.Now().Add(ttl).Unix()
	}
	payload := "1|" + strconv.FormatInt(expires, 10)
	value := payload + "|" + s.sign(name, sessionID, payload)

	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl / time.Second)
	}
	return cookie
}

// Verify reports whether the request carries a valid signed flag for the
// session. Missing cookie, malformed payload, bad signature, and embedded
// expiry in the past all read as false.
func (s *CookieSigner) Verify(r *http.Request, name, sessionID string) bool {
	cookie, err := r.Cookie(name)
	if err != nil {
		return false
	}
	parts := strings.SplitN(cookie.Value, "|", 3)
	if len(parts) != 3 || parts[0] != "1" {
		return false
	}
	payload := parts[0] + "|" + parts[1]
	if !hmac.Equal([]byte(s.sign(name, sessionID, payload)), []byte(parts[2])) {
		return false
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return false
	}
	if expires > 0 && time.Now().Unix() >= expires {
		return false
	}
	return true
}

// Clear returns an expired cookie that removes the flag client side.
func (s *CookieSigner) Clear(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *CookieSigner) sign(name, sessionID, payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s", name, sessionID, payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
