// Package config defines environment configuration structs and loaders.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

// ErrInvalidConfig is returned by Validate when a value cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

type AppConfig struct {
	ClientEnvConfig
	RetryEnvConfig
	ConnectivityEnvConfig
	StaticEnvConfig
	SessionEnvConfig
	RedisEnvConfig
	MockServerEnvConfig
	MetricsEnvConfig
	Environment string `env:"ENVIRONMENT, default=dev"`
}

// LoadConfig loads .env when present and then parses the process environment.
func LoadConfig(ctx context.Context) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env not loaded; continuing with existing environment")
	}
	return LoadConfigWith(ctx, envconfig.OsLookuper())
}

// LoadConfigWith parses configuration from the given lookuper and validates it.
func LoadConfigWith(ctx context.Context, lookuper envconfig.Lookuper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ClientEnvConfig configures the backend API client.
type ClientEnvConfig struct {
	BaseURL       string        `env:"API_BASE_URL, default=http://localhost:5000"`
	ClientTimeout time.Duration `env:"CLIENT_TIMEOUT, default=30s"`
	Compression   bool          `env:"CLIENT_ZSTD, default=false"`
}

// RetryEnvConfig configures the per-request retry budget.
type RetryEnvConfig struct {
	RetryAttempts int           `env:"RETRY_ATTEMPTS, default=3"`
	RetryDelay    time.Duration `env:"RETRY_DELAY, default=1s"`
}

// ConnectivityEnvConfig configures the background reachability probe.
type ConnectivityEnvConfig struct {
	ProbeURL      string        `env:"PROBE_URL"`
	ProbeInterval time.Duration `env:"PROBE_INTERVAL, default=15s"`
	ProbeTimeout  time.Duration `env:"PROBE_TIMEOUT, default=3s"`
	ProbeRetryMax int           `env:"PROBE_RETRY_MAX, default=1"`
	StartOffline  bool          `env:"START_OFFLINE, default=false"`
}

// StaticEnvConfig selects where bundled fallback resources are read from.
// An empty StaticBaseURL means the embedded bundle. FallbackManifest is an
// optional YAML file overriding the fallback map.
type StaticEnvConfig struct {
	StaticBaseURL    string        `env:"STATIC_BASE_URL"`
	StaticTimeout    time.Duration `env:"STATIC_TIMEOUT, default=5s"`
	FallbackManifest string        `env:"FALLBACK_MANIFEST"`
}

// SessionEnvConfig configures where the session token is persisted.
type SessionEnvConfig struct {
	SessionBackend string        `env:"SESSION_BACKEND, default=file"`
	SessionFile    string        `env:"SESSION_FILE, default=~/.cfo/session.json"`
	SessionTTL     time.Duration `env:"SESSION_TTL, default=24h"`
}

// RedisEnvConfig configures Redis connection.
type RedisEnvConfig struct {
	RedisHost      string `env:"REDIS_HOST, default=127.0.0.1"`
	RedisPort      int    `env:"REDIS_PORT, default=6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB, default=0"`
	RedisUsername  string `env:"REDIS_USERNAME"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX, default=cfo:session:"`
}

// MockServerEnvConfig configures the demo backend.
type MockServerEnvConfig struct {
	Address       string `env:"SERVER_ADDRESS, default=127.0.0.1"`
	Port          int    `env:"SERVER_PORT, default=5000"`
	BodySizeLimit int    `env:"SERVER_BODY_LIMIT, default=16777216"`
	UploadDir     string `env:"UPLOAD_DIR"`
}

// MetricsEnvConfig configures the prometheus endpoint.
type MetricsEnvConfig struct {
	MetricsAddress string `env:"METRICS_ADDRESS"`
}

// Validate checks the values the API client cannot run without.
func (c *AppConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: API_BASE_URL: %w", ErrInvalidConfig, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: API_BASE_URL %q must include scheme and host", ErrInvalidConfig, c.BaseURL)
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("%w: CLIENT_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%w: RETRY_ATTEMPTS must be at least 1", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: RETRY_DELAY must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.SessionBackend) {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("%w: unknown SESSION_BACKEND %q", ErrInvalidConfig, c.SessionBackend)
	}
	return nil
}

// ProbeTarget returns the URL the connectivity prober checks.
func (c *AppConfig) ProbeTarget() string {
	if c.ProbeURL != "" {
		return c.ProbeURL
	}
	return c.BaseURL
}

// ServerListenAddr is the host:port the mock backend binds to.
func (c *MockServerEnvConfig) ServerListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

type IntervalConfig struct {
	ProbeInterval   time.Duration
	RefreshInterval time.Duration
}

var (
	DevIntervalConfig = &IntervalConfig{
		ProbeInterval:   5 * time.Second,
		RefreshInterval: 10 * time.Second,
	}

	ProdIntervalConfig = &IntervalConfig{
		ProbeInterval:   15 * time.Second,
		RefreshInterval: 1 * time.Minute,
	}
)

func NewIntervalConfig(environment string) *IntervalConfig {
	switch strings.ToLower(environment) {
	case "dev", "test":
		return DevIntervalConfig
	case "prod":
		return ProdIntervalConfig
	}

	return DevIntervalConfig
}
