package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/snapwall/snapwall-backend/pkg/config"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Limiter is a fixed-window counter keyed by an opaque scope string.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Policy names one throttled surface.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Policies is the set of surfaces throttled by the API.
type Policies struct {
	Upload Policy
	PIN    Policy
	Like   Policy
	Live   Policy
}

// PoliciesFromConfig maps the configured limits to named policies.
func PoliciesFromConfig(cfg config.RateLimitConfig) Policies {
	return Policies{
		Upload: Policy{Name: "upload", Limit: cfg.UploadLimit, Window: cfg.UploadWindow},
		PIN:    Policy{Name: "pin", Limit: cfg.PINLimit, Window: cfg.PINWindow},
		Like:   Policy{Name: "like", Limit: cfg.LikeLimit, Window: cfg.LikeWindow},
		Live:   Policy{Name: "live", Limit: cfg.LiveLimit, Window: cfg.LiveWindow},
	}
}

// Enabled reports whether the policy throttles anything.
func (p Policy) Enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// Key joins the policy name with the discriminating parts, e.g. "pin:<ip>:<eventId>".
func (p Policy) Key(parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, p.Name)
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, ":")
}

// Check consumes one unit and returns RATE_LIMIT_EXCEEDED when the window is exhausted.
// A nil limiter or a disabled policy always passes.
func (p Policy) Check(ctx context.Context, limiter Limiter, parts ...string) error {
	if limiter == nil || !p.Enabled() {
		return nil
	}
	allowed, err := limiter.Allow(ctx, p.Key(parts...), p.Limit, p.Window)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded").WithDetails(map[string]any{
			"policy":         p.Name,
			"limit":          p.Limit,
			"window_seconds": int(p.Window.Seconds()),
		})
	}
	return nil
}

// New selects the backend. Redis is used when requested and available, memory otherwise.
func New(cfg config.RateLimitConfig, counter Counter, logg *logger.Logger) Limiter {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == BackendRedis && counter != nil {
		return NewRedisLimiter(counter)
	}
	if backend == BackendRedis && logg != nil {
		logg.Warn(context.Background(), "redis rate limit backend requested without redis; using memory")
	}
	return NewMemoryLimiter(MemoryOptions{SweepInterval: cfg.SweepInterval})
}
