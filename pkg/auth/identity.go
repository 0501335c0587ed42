package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"chatserv/pkg/config"
)

// SecConfig mirrors the security-related configuration used to drive
// CORS and rate limiting behavior. Kept here so gateway.go and
// limiter.go can share the type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
}

// tokenVerified reports whether the request carries the configured
// shared-secret token.
func tokenVerified(r *http.Request) bool {
	token := config.GetAuthToken()
	if token == "" {
		return false
	}
	hdr := strings.TrimSpace(r.Header.Get("X-Auth-Token"))
	if hdr == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hdr), []byte(token)) == 1
}

// Identity returns the effective caller username. A verified
// X-Auth-Token makes the X-Auth-User header the trusted identity;
// otherwise the self-asserted `user` query parameter is used.
func Identity(r *http.Request) string {
	if tokenVerified(r) {
		if u := strings.TrimSpace(r.Header.Get("X-Auth-User")); u != "" {
			return u
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("user"))
}

// PrivilegedIdentity returns the identity trusted for privileged
// operations. When a token is configured it is the only accepted
// identity source: requests without a verified token resolve to the
// empty caller and fail authorization downstream.
func PrivilegedIdentity(r *http.Request) string {
	if config.GetAuthToken() != "" {
		if tokenVerified(r) {
			return strings.TrimSpace(r.Header.Get("X-Auth-User"))
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("user"))
}
