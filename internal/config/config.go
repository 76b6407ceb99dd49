package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Guard store backends.
const (
	GuardStoreMemory = "memory"
	GuardStoreRedis  = "redis"
	GuardStoreBolt   = "bolt"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int
	AppBaseURL string
	ServeUI    bool
	LogLevel   slog.Level

	// Database
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBAutoMigrate bool

	// Auth service
	AuthURL     string
	AuthAnonKey string
	AuthTimeout time.Duration

	// Cookies
	CookieSecure bool

	Guard           GuardConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
	PasswordPolicy  PasswordPolicyConfig
	Metrics         MetricsConfig
}

// GuardConfig configures the login attempt guard and where it keeps state.
type GuardConfig struct {
	MaxAttempts   int
	LockDuration  time.Duration
	Store         string
	StateTTL      time.Duration
	BoltPath      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// RateLimitConfig holds per-IP rate limits for each endpoint group.
type RateLimitConfig struct {
	Enabled                  bool
	AuthRequestsPerMinute    int
	AuthWindowMinutes        int
	ResetRequestsPerWindow   int
	ResetWindowMinutes       int
	BadgeRequestsPerWindow   int
	BadgeWindowMinutes       int
	ProfileRequestsPerMinute int
	ProfileWindowMinutes     int
}

// SecurityHeadersConfig holds response security header values.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// ValidationConfig holds input validation settings.
type ValidationConfig struct {
	StrictEmailValidation bool
	BlockDisposableEmail  bool
	MaxRequestBodySize    int64
	MaxUploadSize         int64
}

// PasswordPolicyConfig holds password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
	SpecialChars     string
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		ServeUI:    getEnvBool("SERVE_UI", true),
		LogLevel:   getEnvLogLevel("LOG_LEVEL", slog.LevelInfo),

		// Database defaults
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnvInt("DB_PORT", 54322),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "postgres"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),

		AuthURL:     strings.TrimRight(getEnv("AUTH_URL", ""), "/"),
		AuthAnonKey: getEnv("AUTH_ANON_KEY", ""),
		AuthTimeout: getEnvDuration("AUTH_TIMEOUT", 10*time.Second),

		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		Guard: GuardConfig{
			MaxAttempts:   getEnvInt("GUARD_MAX_ATTEMPTS", 5),
			LockDuration:  getEnvDuration("GUARD_LOCK_DURATION", 30*time.Second),
			Store:         strings.ToLower(getEnv("GUARD_STORE", GuardStoreMemory)),
			StateTTL:      getEnvDuration("GUARD_STATE_TTL", 24*time.Hour),
			BoltPath:      getEnv("GUARD_BOLT_PATH", "farmgate-guard.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},

		RateLimit: RateLimitConfig{
			Enabled:                  getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequestsPerMinute:    getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 20),
			AuthWindowMinutes:        getEnvInt("RATE_LIMIT_AUTH_WINDOW_MINUTES", 1),
			ResetRequestsPerWindow:   getEnvInt("RATE_LIMIT_RESET_REQUESTS", 5),
			ResetWindowMinutes:       getEnvInt("RATE_LIMIT_RESET_WINDOW_MINUTES", 15),
			BadgeRequestsPerWindow:   getEnvInt("RATE_LIMIT_BADGE_REQUESTS", 5),
			BadgeWindowMinutes:       getEnvInt("RATE_LIMIT_BADGE_WINDOW_MINUTES", 60),
			ProfileRequestsPerMinute: getEnvInt("RATE_LIMIT_PROFILE_REQUESTS", 60),
			ProfileWindowMinutes:     getEnvInt("RATE_LIMIT_PROFILE_WINDOW_MINUTES", 1),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:      getEnv("SECURITY_XSS_PROTECTION", "1; mode=block"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), microphone=(), camera=()"),
		},

		Validation: ValidationConfig{
			StrictEmailValidation: getEnvBool("VALIDATION_STRICT_EMAIL", true),
			BlockDisposableEmail:  getEnvBool("VALIDATION_BLOCK_DISPOSABLE_EMAIL", false),
			MaxRequestBodySize:    getEnvInt64("VALIDATION_MAX_REQUEST_BODY_SIZE", 1<<20),
			MaxUploadSize:         getEnvInt64("VALIDATION_MAX_UPLOAD_SIZE", 20<<20),
		},

		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 8),
			RequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", true),
			RequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", true),
			RequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", true),
			RequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", true),
			SpecialChars:     getEnv("PASSWORD_SPECIAL_CHARS", "@$!%*?&"),
		},

		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	// Validate required fields
	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("AUTH_URL is required")
	}
	if cfg.AuthAnonKey == "" {
		return nil, fmt.Errorf("AUTH_ANON_KEY is required")
	}

	switch cfg.Guard.Store {
	case GuardStoreMemory, GuardStoreRedis, GuardStoreBolt:
	default:
		return nil, fmt.Errorf("GUARD_STORE must be one of memory, redis, bolt (got %q)", cfg.Guard.Store)
	}

	// Stored state must outlive the lock it records.
	if cfg.Guard.StateTTL > 0 && cfg.Guard.StateTTL < cfg.Guard.LockDuration {
		return nil, fmt.Errorf("GUARD_STATE_TTL (%s) must not be shorter than GUARD_LOCK_DURATION (%s)",
			cfg.Guard.StateTTL, cfg.Guard.LockDuration)
	}

	return cfg, nil
}

// HasHTTPS reports whether the public base URL is served over TLS.
func (c *Config) HasHTTPS() bool {
	return strings.HasPrefix(c.AppBaseURL, "https://")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvLogLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return defaultValue
}
