package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// StatusRateLimited is the status code written on a 429.
const StatusRateLimited = "RATE_LIMITED"

// KeyFunc extracts the rate limit key from a request. An empty key skips
// rate limiting for that request.
type KeyFunc func(r *http.Request) string

// Middleware returns HTTP middleware that enforces limiter per key. A nil
// limiter disables it. Limiter errors fail open.
func Middleware(limiter Limiter, keyFunc KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ok, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("ratelimit: limiter error, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeRateLimited(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  StatusRateLimited,
		"success": false,
	})
}

// IPKeyFunc keys requests by client IP. With trustProxy the first
// X-Forwarded-For hop is used; otherwise only RemoteAddr, since any client
// can set the header.
func IPKeyFunc(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return "ip:" + ip
				}
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "ip:" + host
	}
}

// APIKeyOrIPKeyFunc keys /apis/v1 requests by their api_key parameter, so a
// partner behind a shared address gets its own bucket, falling back to IP.
func APIKeyOrIPKeyFunc(trustProxy bool) KeyFunc {
	byIP := IPKeyFunc(trustProxy)
	return func(r *http.Request) string {
		if k := r.URL.Query().Get("api_key"); k != "" {
			return "key:" + k
		}
		return byIP(r)
	}
}
