package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/rtlmb/member-sync/internal/worker"
)

// adminAuth guards the admin endpoints with a shared bearer secret.
// A missing or wrong secret is rejected before any handler work runs.
func adminAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if secret == "" || !ok ||
				subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit applies a fixed window per client IP. The limiter fails open,
// so a Redis outage never blocks requests.
func rateLimit(limiter *worker.RateLimiter, prefix string, limit, windowSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), prefix, clientIP(r), limit, windowSeconds) {
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the request's client address. The RealIP middleware has
// already folded X-Forwarded-For / X-Real-IP into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
