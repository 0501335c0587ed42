package auth

import (
	"net"
	"net/http"
	"strings"

	"chatserv/pkg/logger"
	"chatserv/pkg/utils"
)

// GatewayMiddleware applies request logging, CORS headers and per-caller
// rate limiting in front of every handler. The presentation client is a
// separately hosted static page, so every response must be callable
// cross-origin.
func GatewayMiddleware(cfg SecConfig) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)

			origin := r.Header.Get("Origin")
			if originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", corsOrigin(origin, cfg.AllowedOrigins))
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-Auth-Token,X-Auth-User,X-Blob-Name,X-Blob-Mime")
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// health probes bypass rate limiting
			if (r.URL.Path == "/healthz" || r.URL.Path == "/readyz") && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			if !limiters.Allow(limitKey(r)) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("rate_limited", "path", r.URL.Path, "remote", r.RemoteAddr)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitKey buckets callers by identity when supplied, else by client ip.
func limitKey(r *http.Request) string {
	if u := Identity(r); u != "" {
		return "user:" + u
	}
	return "ip:" + clientIP(r)
}

// originAllowed defaults to permissive when no origins are configured.
func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// corsOrigin echoes the request origin when one is present, so
// responses stay usable from any allowed static host.
func corsOrigin(origin string, allowed []string) string {
	if origin != "" {
		return origin
	}
	if len(allowed) == 1 && allowed[0] != "*" {
		return allowed[0]
	}
	return "*"
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
