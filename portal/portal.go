// Package portal embeds the farmgate sign-up, login and driver badge
// endpoints in another chi application.
//
// Setup:
//
//  1. Apply migrations/001_portal.sql (or set AutoMigrate)
//  2. Create a Portal and mount its router
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/farm?sslmode=disable")
//
//	p, err := portal.New(ctx, portal.Config{
//	    DB:          db,
//	    AuthURL:     "https://project.example.co",
//	    AuthAnonKey: os.Getenv("AUTH_ANON_KEY"),
//	    AppBaseURL:  "https://portal.example.com",
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/", p.Router())
//	http.ListenAndServe(":8080", r)
//
// Login attempt state defaults to process memory. Pass a Redis or BBolt
// kvstore.Store as GuardStore to share it between replicas or restarts.
package portal

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tendant/farmgate/internal/config"
	httpserver "github.com/tendant/farmgate/internal/http"
	"github.com/tendant/farmgate/internal/http/middleware"
	"github.com/tendant/farmgate/internal/metrics"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/guard"
	"github.com/tendant/farmgate/pkg/kvstore"
	"github.com/tendant/farmgate/pkg/kvstore/memory"
	"github.com/tendant/farmgate/pkg/repository"
)

// defaultGuardStateTTL bounds how long the default in-memory guard store
// keeps a device's attempt state after its last write.
const defaultGuardStateTTL = 24 * time.Hour

// Config holds the configuration for an embedded portal.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// AuthURL is the auth service root URL (required).
	AuthURL string

	// AuthAnonKey is the auth service's public API key (required).
	AuthAnonKey string

	// AppBaseURL is where confirmation and recovery links land
	// (default: http://localhost:8080).
	AppBaseURL string

	// AutoMigrate creates missing tables instead of failing.
	AutoMigrate bool

	// GuardStore holds login attempt state (default: in-memory, entries
	// expire 24h after their last write).
	GuardStore kvstore.Store

	// GuardPolicy sets attempts and lock length. Zero fields take the
	// defaults of 5 attempts and 30s.
	GuardPolicy guard.Policy

	// PasswordPolicy is enforced on sign up and reset (default: 8+ chars with
	// upper, lower, digit and one of @$!%*?&).
	PasswordPolicy *auth.PasswordPolicy

	// ServeUI serves the portal pages alongside the JSON endpoints.
	ServeUI bool

	// CookieSecure sets the Secure flag on auth cookies.
	CookieSecure bool

	// Logger is the structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// Portal is an embeddable farmgate instance.
type Portal struct {
	config     Config
	authClient *authclient.Client
	usersRepo  *repository.UsersRepository
	metrics    *metrics.Metrics
	router     http.Handler
}

// New creates a portal. It returns an error if required tables are missing
// and AutoMigrate is off.
func New(ctx context.Context, cfg Config) (*Portal, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if cfg.AutoMigrate {
		if err := repository.EnsureSchema(ctx, cfg.DB); err != nil {
			return nil, err
		}
	} else if err := repository.ValidateSchema(ctx, cfg.DB); err != nil {
		return nil, err
	}

	m := metrics.New()
	authClient := authclient.New(authclient.Config{
		BaseURL: cfg.AuthURL,
		AnonKey: cfg.AuthAnonKey,
		Observe: m.ObserveAuthCall,
	})
	usersRepo := repository.NewUsersRepository(cfg.DB)
	badgesRepo := repository.NewBadgesRepository(cfg.DB)

	validator := auth.SignupValidator{Policy: cfg.PasswordPolicy}

	p := &Portal{
		config:     cfg,
		authClient: authClient,
		usersRepo:  usersRepo,
		metrics:    m,
	}
	p.router = httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          cfg.Logger,
		Metrics:         m,
		AuthClient:      authClient,
		SignupService:   auth.NewSignupService(cfg.Logger, authClient, usersRepo, validator, cfg.AppBaseURL),
		LoginService:    auth.NewLoginService(cfg.Logger, authClient, usersRepo),
		PasswordService: auth.NewPasswordService(cfg.Logger, authClient, cfg.PasswordPolicy, cfg.AppBaseURL),
		BadgeService:    auth.NewBadgeService(cfg.Logger, badgesRepo, usersRepo),
		UsersRepo:       usersRepo,
		Guards:          p.deviceGuard,
		ServeUI:         cfg.ServeUI,
		CookieSecure:    cfg.CookieSecure,
		Validation: config.ValidationConfig{
			MaxRequestBodySize: 1 << 20,
			MaxUploadSize:      20 << 20,
		},
	})
	return p, nil
}

// Router returns the portal's routes. Mount it at the root of your router:
//
//	r.Mount("/", p.Router())
//
// Routes:
//
//	POST /v1/auth/signup                 - Register a farmer account
//	POST /v1/auth/login                  - Login (guarded per device)
//	GET  /v1/auth/lock                   - Device lock status
//	POST /v1/auth/logout                 - Logout
//	POST /v1/auth/password/reset-request - Email a recovery link
//	POST /v1/auth/password/reset         - Set a new password
//	GET  /v1/me                          - Current user (protected)
//	POST /v1/driver/badge                - Driver badge application (protected)
func (p *Portal) Router() http.Handler {
	return p.router
}

// AuthMiddleware returns middleware that requires a live auth service session.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(p.AuthMiddleware())
//	    r.Get("/lobby", handler)
//	})
func (p *Portal) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.RequireSession(p.authClient, p.config.Logger)
}

// MetricsHandler serves the portal's Prometheus metrics.
func (p *Portal) MetricsHandler() http.Handler {
	return p.metrics.Handler()
}

// Guard returns the login attempt guard for a device identifier, for callers
// that run their own login form.
func (p *Portal) Guard(deviceID string) *guard.Guard {
	return guard.Scoped(p.config.GuardStore, deviceID, p.config.GuardPolicy,
		guard.WithLogger(p.config.Logger),
		guard.WithStoreErrorHook(p.metrics.GuardStoreError),
	)
}

func (p *Portal) deviceGuard(deviceID string) auth.AttemptGuard {
	return p.Guard(deviceID)
}

// User is the signed-in account as seen by the portal.
type User struct {
	ID             string
	Email          string
	EmailConfirmed bool
	FullName       string
	Role           string
}

// GetUser returns the signed-in user. Use after AuthMiddleware:
//
//	user, err := p.GetUser(r)
func (p *Portal) GetUser(r *http.Request) (*User, error) {
	account, ok := middleware.GetUser(r.Context())
	if !ok {
		return nil, errors.New("portal: user not authenticated")
	}

	u := &User{
		ID:             account.ID,
		Email:          account.Email,
		EmailConfirmed: account.EmailConfirmed(),
		FullName:       account.MetadataString("full_name"),
		Role:           account.MetadataString("role"),
	}
	if profile, err := p.usersRepo.GetByEmail(r.Context(), auth.NormalizeEmail(account.Email)); err == nil {
		u.FullName = profile.DisplayName()
		u.Role = string(profile.Role)
	}
	return u, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("portal: DB is required")
	}
	if cfg.AuthURL == "" {
		return errors.New("portal: AuthURL is required")
	}
	if cfg.AuthAnonKey == "" {
		return errors.New("portal: AuthAnonKey is required")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.AppBaseURL == "" {
		cfg.AppBaseURL = "http://localhost:8080"
	}
	if cfg.GuardStore == nil {
		cfg.GuardStore = memory.New(memory.WithTTL(defaultGuardStateTTL))
	}
	if cfg.PasswordPolicy == nil {
		cfg.PasswordPolicy = auth.DefaultPasswordPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}
