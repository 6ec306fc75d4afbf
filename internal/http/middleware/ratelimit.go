package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/config"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/httputil"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging. It keys
// on r.RemoteAddr, which RealIP has already resolved for trusted proxies.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyByIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", auth.ClientIP(r),
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// Limiter names used by the router.
const (
	LimiterLogin    = "login"
	LimiterRecovery = "recovery"
)

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimiterLogin:    noOp,
			LimiterRecovery: noOp,
		}
	}

	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return map[string]func(http.Handler) http.Handler{
		LimiterLogin: RateLimit(RateLimitConfig{
			Requests: cfg.LoginRequestsPerMinute,
			Window:   window,
			Logger:   logger,
		}),
		LimiterRecovery: RateLimit(RateLimitConfig{
			Requests: cfg.RecoveryRequestsPerMinute,
			Window:   window,
			Logger:   logger,
		}),
	}
}
