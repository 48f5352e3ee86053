package authz

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RoleCookieName is the cookie carrying the cached role grant.
const RoleCookieName = "tg_role"

// CachedGrant is the payload embedded in the role cache cookie. It is an
// optimization over the slow-path lookup, never an authorization source on
// its own: the decision procedure only consults it after confirming an
// active session for the same principal.
type CachedGrant struct {
	PrincipalID uuid.UUID
	Role        RoleCode
	TenantSlug  string
}

// RoleCookie signs and verifies the role cache cookie. The value layout is
// principalID:roleCode:tenantSlug.expiresUnix.signature with an HMAC-SHA256
// signature over everything before it.
type RoleCookie struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewRoleCookie constructs the codec.
func NewRoleCookie(secret string, ttl time.Duration, secure bool) *RoleCookie {
	return &RoleCookie{secret: []byte(secret), ttl: ttl, secure: secure}
}

// Issue writes a fresh cookie for the grant.
func (rc *RoleCookie) Issue(w http.ResponseWriter, grant CachedGrant) {
	expires := time.Now().Add(rc.ttl)
	payload := strings.Join([]string{
		grant.PrincipalID.String(),
		string(grant.Role),
		grant.TenantSlug,
	}, ":") + "." + strconv.FormatInt(expires.Unix(), 10)
	http.SetCookie(w, &http.Cookie{
		Name:     RoleCookieName,
		Value:    payload + "." + rc.sign(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   rc.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// Clear expires the cookie.
func (rc *RoleCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RoleCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   rc.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read decodes and validates the cookie against the live principal. Any
// defect (missing cookie, bad signature, wrong field count, expiry, unknown
// role, or a principal id that does not match the current session) yields
// (zero, false) so the caller falls through to the full lookup. The principal
// check is what stops a stale cookie from leaking the previous account's role
// after an account switch in the same browser.
func (rc *RoleCookie) Read(r *http.Request, livePrincipal uuid.UUID) (CachedGrant, bool) {
	cookie, err := r.Cookie(RoleCookieName)
	if err != nil || cookie.Value == "" {
		return CachedGrant{}, false
	}
	parts := strings.Split(cookie.Value, ".")
	if len(parts) != 3 {
		return CachedGrant{}, false
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(rc.sign(payload))) {
		return CachedGrant{}, false
	}
	fields := strings.Split(parts[0], ":")
	if len(fields) != 3 {
		return CachedGrant{}, false
	}
	principalID, err := uuid.Parse(fields[0])
	if err != nil || principalID != livePrincipal {
		return CachedGrant{}, false
	}
	role := ParseRole(fields[1])
	if role == RoleNone {
		return CachedGrant{}, false
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() >= expires {
		return CachedGrant{}, false
	}
	return CachedGrant{PrincipalID: principalID, Role: role, TenantSlug: fields[2]}, true
}

func (rc *RoleCookie) sign(payload string) string {
	mac := hmac.New(sha256.New, rc.secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
