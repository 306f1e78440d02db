package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cartworks/auth/pkg/slogx"
)

// CounterStore is the slice of the shared key-value store the rate limiter
// needs: an atomic increment, a TTL setter, and a TTL reader. Every service
// instance talks to the same store, so the budget is global, not per-replica.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RateLimitConfig defines fixed-window rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed per window.
	RequestsPerWindow int
	// Window is the fixed window duration. The counter key expires at the
	// window boundary, which is the only reset mechanism.
	Window time.Duration
}

// Common rate limit profiles for different endpoint types.
// These can be overridden via environment variables (see init() below).
var (
	// StrictLimit for credential-bearing endpoints (brute force prevention).
	// Override with: RATELIMIT_STRICT_REQUESTS, RATELIMIT_STRICT_WINDOW_SEC
	StrictLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            15 * time.Minute,
	}

	// ModerateLimit for authenticated operations.
	// Override with: RATELIMIT_MODERATE_REQUESTS, RATELIMIT_MODERATE_WINDOW_SEC
	ModerateLimit = RateLimitConfig{
		RequestsPerWindow: 60,
		Window:            15 * time.Minute,
	}

	// LenientLimit for less sensitive operations.
	// Override with: RATELIMIT_LENIENT_REQUESTS, RATELIMIT_LENIENT_WINDOW_SEC
	LenientLimit = RateLimitConfig{
		RequestsPerWindow: 300,
		Window:            15 * time.Minute,
	}
)

func init() {
	// Allow overriding rate limits via environment variables (useful for testing)
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment
// variables following the pattern RATELIMIT_{prefix}_{field}, e.g.
// RATELIMIT_STRICT_REQUESTS and RATELIMIT_STRICT_WINDOW_SEC.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	return config
}

// KeyExtractor is a function that extracts a client-identity key from the
// request for rate limiting purposes (IP address, user ID, etc.)
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserIDKeyExtractor extracts the user ID from the request context.
// Returns empty string if no user ID is found.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromCtx(r.Context())
}

// CompositeKeyExtractor combines multiple key extractors with a separator.
// Example: CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor)
// produces keys like "01J...:192.168.1.1".
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// FixedWindowLimiter counts requests per (client, route) key in the shared
// store. The first hit of a window sets the key TTL; later hits only
// increment. A burst at the end of one window followed by a burst at the
// start of the next can admit up to ~2x the limit; that imprecision is an
// accepted property of the fixed-window approach.
type FixedWindowLimiter struct {
	Store CounterStore
}

// Decision is the outcome of a rate limit check.
type Decision int

const (
	Allowed Decision = iota
	Throttled
)

// Hit records one request against the key and reports whether it is within
// budget. Throttled is returned once the counter strictly exceeds limit.
// retryAfter is the remaining window time, for the Retry-After header.
func (l *FixedWindowLimiter) Hit(ctx context.Context, key string, limit int, window time.Duration) (Decision, time.Duration, error) {
	count, err := l.Store.Incr(ctx, key)
	if err != nil {
		return Allowed, 0, err
	}

	// Fixed-window semantics: TTL is set only for the first hit. Two
	// concurrent first hits may both set it; Expire is idempotent so the
	// race is harmless.
	if count == 1 {
		if err := l.Store.Expire(ctx, key, window); err != nil {
			return Allowed, 0, err
		}
	}

	if count <= int64(limit) {
		return Allowed, 0, nil
	}

	retryAfter, err := l.Store.TTL(ctx, key)
	if err != nil || retryAfter <= 0 {
		retryAfter = window
	}
	return Throttled, retryAfter, nil
}

// RateLimitMiddleware enforces a fixed-window budget per (client, route)
// pair. Keys follow the shared-store layout "ratelimit:<client>:<path>".
//
// When the backing store is unreachable the middleware fails open: the
// request is allowed and the fault is logged. Availability wins over strict
// enforcement here; the budget resumes as soon as the store recovers.
func RateLimitMiddleware(limiter *FixedWindowLimiter, config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			client := keyExtractor(r)
			if client == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			key := "ratelimit:" + client + ":" + r.URL.Path

			decision, retryAfter, err := limiter.Hit(ctx, key, config.RequestsPerWindow, config.Window)
			if err != nil {
				log.Warn("rate limit store unavailable, failing open", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			if decision == Throttled {
				retrySec := max(int(retryAfter.Seconds()), 1)

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySec))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"client", client,
					"endpoint", r.URL.Path,
					"retry_after", retrySec,
				)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": fmt.Sprintf("too many requests, retry in %ds", retrySec),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client IP address only.
func RateLimitByIP(limiter *FixedWindowLimiter, config RateLimitConfig) Middleware {
	return RateLimitMiddleware(limiter, config, IPKeyExtractor)
}

// RateLimitByUser limits by authenticated user ID, falling back to IP when
// no user is authenticated.
func RateLimitByUser(limiter *FixedWindowLimiter, config RateLimitConfig) Middleware {
	return RateLimitMiddleware(limiter, config, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	))
}
