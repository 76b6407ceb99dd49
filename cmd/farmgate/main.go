package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.etcd.io/bbolt"

	"github.com/tendant/farmgate/internal/config"
	httpserver "github.com/tendant/farmgate/internal/http"
	"github.com/tendant/farmgate/internal/lib/logger/sl"
	"github.com/tendant/farmgate/internal/metrics"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/guard"
	"github.com/tendant/farmgate/pkg/kvstore"
	boltstore "github.com/tendant/farmgate/pkg/kvstore/bbolt"
	"github.com/tendant/farmgate/pkg/kvstore/memory"
	redisstore "github.com/tendant/farmgate/pkg/kvstore/redis"
	"github.com/tendant/farmgate/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", sl.Err(err))
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if cfg.DBAutoMigrate {
		err = repository.EnsureSchema(schemaCtx, db)
	} else {
		err = repository.ValidateSchema(schemaCtx, db)
	}
	cancelSchema()
	if err != nil {
		logger.Error("database schema not ready", sl.Err(err))
		os.Exit(1)
	}

	m := metrics.New()

	// Guard state store
	store, closeStore, err := openGuardStore(cfg.Guard)
	if err != nil {
		logger.Error("failed to open guard store", slog.String("store", cfg.Guard.Store), sl.Err(err))
		os.Exit(1)
	}
	defer closeStore.Close()
	logger.Info("login guard ready",
		slog.String("store", cfg.Guard.Store),
		slog.Int("max_attempts", cfg.Guard.MaxAttempts),
		slog.Duration("lock_duration", cfg.Guard.LockDuration),
	)

	policy := guard.Policy{MaxAttempts: cfg.Guard.MaxAttempts, LockDuration: cfg.Guard.LockDuration}
	guardLogger := logger.With(slog.String("component", "guard"))
	guards := func(deviceID string) auth.AttemptGuard {
		return guard.Scoped(store, deviceID, policy,
			guard.WithLogger(guardLogger),
			guard.WithStoreErrorHook(m.GuardStoreError),
		)
	}

	// Auth service client
	authClient := authclient.New(authclient.Config{
		BaseURL: cfg.AuthURL,
		AnonKey: cfg.AuthAnonKey,
		Timeout: cfg.AuthTimeout,
		Observe: m.ObserveAuthCall,
	})

	// Initialize repositories
	usersRepo := repository.NewUsersRepository(db)
	badgesRepo := repository.NewBadgesRepository(db)

	// Initialize services
	passwordPolicy := auth.NewPasswordPolicy(cfg.PasswordPolicy)
	validator := auth.SignupValidator{
		Policy:          passwordPolicy,
		StrictEmail:     cfg.Validation.StrictEmailValidation,
		BlockDisposable: cfg.Validation.BlockDisposableEmail,
	}
	signupService := auth.NewSignupService(logger, authClient, usersRepo, validator, cfg.AppBaseURL)
	loginService := auth.NewLoginService(logger, authClient, usersRepo)
	passwordService := auth.NewPasswordService(logger, authClient, passwordPolicy, cfg.AppBaseURL)
	badgeService := auth.NewBadgeService(logger, badgesRepo, usersRepo)

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		Metrics:         m,
		AuthClient:      authClient,
		SignupService:   signupService,
		LoginService:    loginService,
		PasswordService: passwordService,
		BadgeService:    badgeService,
		UsersRepo:       usersRepo,
		Guards:          guards,
		ServeUI:         cfg.ServeUI,
		CookieSecure:    cfg.CookieSecure || cfg.HasHTTPS(),
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
		MetricsConfig:   cfg.Metrics,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", slog.String("addr", addr), slog.String("base_url", cfg.AppBaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", sl.Err(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", sl.Err(err))
	}

	logger.Info("server stopped")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openGuardStore returns the configured guard store and whatever must be
// closed on shutdown.
func openGuardStore(cfg config.GuardConfig) (kvstore.Store, io.Closer, error) {
	switch cfg.Store {
	case config.GuardStoreRedis:
		s := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.StateTTL,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s, nil
	case config.GuardStoreBolt:
		s, err := boltstore.NewFromFile(cfg.BoltPath, &bbolt.Options{Timeout: 2 * time.Second})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return memory.New(memory.WithTTL(cfg.StateTTL)), nopCloser{}, nil
	}
}
