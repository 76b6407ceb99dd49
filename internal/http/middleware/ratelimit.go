package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tendant/farmgate/internal/config"
	"github.com/tendant/farmgate/internal/httputil"
	"github.com/tendant/farmgate/internal/metrics"
)

// Rate limit groups.
const (
	LimitAuth    = "auth"
	LimitReset   = "reset"
	LimitBadge   = "badge"
	LimitProfile = "profile"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Group    string
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"group", cfg.Group,
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			cfg.Metrics.ObserveRateLimited(cfg.Group)
			httputil.TooManyRequests(w, "rate limit exceeded. please try again later", int(cfg.Window.Seconds()))
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger, m *metrics.Metrics) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimitAuth:    noOp,
			LimitReset:   noOp,
			LimitBadge:   noOp,
			LimitProfile: noOp,
		}
	}

	limiter := func(group string, requests, windowMinutes int) func(http.Handler) http.Handler {
		return RateLimit(RateLimitConfig{
			Group:    group,
			Requests: requests,
			Window:   time.Duration(windowMinutes) * time.Minute,
			Logger:   logger,
			Metrics:  m,
		})
	}

	return map[string]func(http.Handler) http.Handler{
		LimitAuth:    limiter(LimitAuth, cfg.AuthRequestsPerMinute, cfg.AuthWindowMinutes),
		LimitReset:   limiter(LimitReset, cfg.ResetRequestsPerWindow, cfg.ResetWindowMinutes),
		LimitBadge:   limiter(LimitBadge, cfg.BadgeRequestsPerWindow, cfg.BadgeWindowMinutes),
		LimitProfile: limiter(LimitProfile, cfg.ProfileRequestsPerMinute, cfg.ProfileWindowMinutes),
	}
}
