package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chatserv/pkg/config"
)

func setToken(t *testing.T, token string) {
	t.Helper()
	config.SetRuntime(&config.RuntimeConfig{AuthToken: token})
	t.Cleanup(func() { config.SetRuntime(nil) })
}

func TestIdentityQueryParam(t *testing.T) {
	setToken(t, "")
	r := httptest.NewRequest(http.MethodGet, "/v1/rooms/lobby?user=bob", nil)
	if got := Identity(r); got != "bob" {
		t.Fatalf("expected bob, got %q", got)
	}
}

func TestIdentityTokenOverridesQuery(t *testing.T) {
	setToken(t, "sekrit")
	r := httptest.NewRequest(http.MethodGet, "/v1/rooms/lobby?user=mallory", nil)
	r.Header.Set("X-Auth-Token", "sekrit")
	r.Header.Set("X-Auth-User", "alice")
	if got := Identity(r); got != "alice" {
		t.Fatalf("verified header should win, got %q", got)
	}
}

func TestIdentityBadTokenFallsBack(t *testing.T) {
	setToken(t, "sekrit")
	r := httptest.NewRequest(http.MethodGet, "/v1/rooms/lobby?user=bob", nil)
	r.Header.Set("X-Auth-Token", "wrong")
	r.Header.Set("X-Auth-User", "alice")
	if got := Identity(r); got != "bob" {
		t.Fatalf("unverified header must not be trusted, got %q", got)
	}
}

func TestPrivilegedIdentityRequiresToken(t *testing.T) {
	setToken(t, "sekrit")

	// Query identity is refused for privileged operations once a token
	// is configured.
	r := httptest.NewRequest(http.MethodPost, "/v1/rooms/lobby/moderation?user=alice", nil)
	if got := PrivilegedIdentity(r); got != "" {
		t.Fatalf("expected empty privileged identity, got %q", got)
	}

	r.Header.Set("X-Auth-Token", "sekrit")
	r.Header.Set("X-Auth-User", "alice")
	if got := PrivilegedIdentity(r); got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
}

func TestPrivilegedIdentityWithoutConfiguredToken(t *testing.T) {
	setToken(t, "")
	r := httptest.NewRequest(http.MethodPost, "/v1/rooms/lobby/moderation?user=alice", nil)
	if got := PrivilegedIdentity(r); got != "alice" {
		t.Fatalf("without a token the query identity applies, got %q", got)
	}
}

func TestGatewayRateLimit(t *testing.T) {
	setToken(t, "")
	h := GatewayMiddleware(SecConfig{RPS: 1, Burst: 2})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/v1/rooms/lobby?user=bob", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		statuses = append(statuses, w.Code)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("burst requests should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %v", statuses)
	}

	// A different caller has its own bucket.
	r := httptest.NewRequest(http.MethodGet, "/v1/rooms/lobby?user=carol", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("separate identity should not share the bucket, got %d", w.Code)
	}
}

func TestGatewayHealthBypassesLimit(t *testing.T) {
	setToken(t, "")
	h := GatewayMiddleware(SecConfig{RPS: 1, Burst: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 5; i++ {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("health probe %d was limited: %d", i, w.Code)
		}
	}
}

func TestGatewayCORSPreflight(t *testing.T) {
	setToken(t, "")
	h := GatewayMiddleware(SecConfig{AllowedOrigins: []string{"https://chat.example"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight must not reach the handler")
	}))

	r := httptest.NewRequest(http.MethodOptions, "/v1/rooms/lobby/messages", nil)
	r.Header.Set("Origin", "https://chat.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://chat.example" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}

	// A disallowed origin gets no CORS headers.
	r = httptest.NewRequest(http.MethodOptions, "/v1/rooms/lobby/messages", nil)
	r.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin must get no header, got %q", got)
	}
}
