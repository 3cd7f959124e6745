package config

import (
	"fmt"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppPort     string `envconfig:"APP_PORT" default:"8080"`
	Version     string `envconfig:"APP_VERSION" default:"dev"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"` // postgres | memory
	DatabaseURL string `envconfig:"DATABASE_URL"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	JWTTTL        time.Duration `envconfig:"JWT_TTL" default:"24h"`
	AllowedOrigin string        `envconfig:"ALLOWED_ORIGIN"`

	// user ids allowed on /admin routes, comma separated in env
	AdminUserIDs []int64 `envconfig:"ADMIN_USER_IDS"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	APIRateLimit     int           `envconfig:"API_RATE_LIMIT" default:"60"`
	APIRateWindow    time.Duration `envconfig:"API_RATE_WINDOW" default:"1m"`
	ChargeRateLimit  int           `envconfig:"CHARGE_RATE_LIMIT" default:"30"`
	ChargeRateWindow time.Duration `envconfig:"CHARGE_RATE_WINDOW" default:"1m"`

	// Engine
	StorageRetryAttempts int           `envconfig:"STORAGE_RETRY_ATTEMPTS" default:"3"`
	StorageRetryBackoff  time.Duration `envconfig:"STORAGE_RETRY_BACKOFF" default:"25ms"`
	SignupBonusCredits   int64         `envconfig:"SIGNUP_BONUS_CREDITS" default:"0"`
	ReversalPolicy       string        `envconfig:"REVERSAL_POLICY" default:"auto"` // auto | manual
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if _, err := domain.ParseReversalPolicy(cfg.ReversalPolicy); err != nil {
		return nil, fmt.Errorf("REVERSAL_POLICY: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for binaries: it exits on invalid configuration.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}
	return cfg
}

// IsAdmin reports whether userID is in ADMIN_USER_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
