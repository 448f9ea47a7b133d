package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/snapwall/snapwall-backend/api/responses"
	"github.com/snapwall/snapwall-backend/internal/ratelimit"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

// RealIP resolves the client address once and stores it on the context for services and limiters.
func RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxClientIP, ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimit throttles a route per client IP under policy.
func RateLimit(policy ratelimit.Policy, limiter ratelimit.Limiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.Enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := ClientIPFromContext(ctx)
			if ip == "" {
				ip = ClientIP(r)
			}
			if err := policy.Check(ctx, limiter, ip); err != nil {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy": policy.Name,
						"ip":     ip,
					}), "rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the socket address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
