package server

import (
	"golang.org/x/time/rate"

	"github.com/Tyrowin/echorelay/internal/config"
)

// newRateLimiter returns a token bucket for one connection, or nil when
// throttling is disabled. A nil limiter allows every message.
func newRateLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	if !cfg.Enabled() {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.PerSecond), cfg.Burst)
}
