package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/farmgate/internal/config"
	"github.com/tendant/farmgate/internal/http/features/badge"
	"github.com/tendant/farmgate/internal/http/features/login"
	"github.com/tendant/farmgate/internal/http/features/me"
	"github.com/tendant/farmgate/internal/http/features/pages"
	"github.com/tendant/farmgate/internal/http/features/password"
	"github.com/tendant/farmgate/internal/http/features/session"
	"github.com/tendant/farmgate/internal/http/features/signup"
	"github.com/tendant/farmgate/internal/http/middleware"
	"github.com/tendant/farmgate/internal/httputil"
	"github.com/tendant/farmgate/internal/metrics"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	AuthClient      *authclient.Client
	SignupService   *auth.SignupService
	LoginService    *auth.LoginService
	PasswordService *auth.PasswordService
	BadgeService    *auth.BadgeService
	UsersRepo       *repository.UsersRepository
	Guards          login.GuardFunc // login attempt guard per device
	ServeUI         bool
	CookieSecure    bool // Whether to use Secure flag on cookies (should be true for HTTPS)
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
	MetricsConfig   config.MetricsConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	cookies := httputil.DefaultCookieConfig()
	cookies.Secure = cfg.CookieSecure

	// Apply global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recover(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.Device(cookies))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsConfig.Enabled && cfg.Metrics != nil {
		r.Method(http.MethodGet, cfg.MetricsConfig.Path, cfg.Metrics.Handler())
	}

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger, cfg.Metrics)
	requireSession := middleware.RequireSession(cfg.AuthClient, cfg.Logger)

	// JSON endpoints carry small bodies; badge uploads get their own cap.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

		r.Group(func(r chi.Router) {
			r.Use(rateLimiters[middleware.LimitAuth])
			signup.NewHandler(cfg.Logger, cfg.SignupService, cfg.Metrics).RegisterRoutes(r)
			login.NewHandler(cfg.Logger, cfg.LoginService, cfg.Guards, cfg.Metrics, cookies).RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimiters[middleware.LimitReset])
			password.NewHandler(cfg.Logger, cfg.PasswordService, cfg.Metrics).RegisterRoutes(r)
		})

		session.NewHandler(cfg.Logger, cfg.AuthClient, cookies).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Use(rateLimiters[middleware.LimitProfile])
			me.NewHandler(cfg.Logger, cfg.UsersRepo).RegisterRoutes(r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxUploadSize))
		r.Use(requireSession)
		r.Use(middleware.RequireConfirmedEmail())
		r.Use(rateLimiters[middleware.LimitBadge])
		badge.NewHandler(cfg.Logger, cfg.BadgeService, cfg.Metrics).RegisterRoutes(r)
	})

	// Portal pages (if UI is enabled)
	if cfg.ServeUI {
		pagesHandler, err := pages.NewHandler(cfg.Guards, passwordPolicy(cfg.PasswordService))
		if err != nil {
			cfg.Logger.Error("failed to load page templates", "error", err)
		} else {
			pagesHandler.RegisterRoutes(r)
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, auth.LoginPagePath, http.StatusFound)
			})
		}
	}

	return r
}

func passwordPolicy(s *auth.PasswordService) *auth.PasswordPolicy {
	if s == nil {
		return nil
	}
	return s.Policy()
}
