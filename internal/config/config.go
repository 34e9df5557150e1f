package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Token store backends.
const (
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"
)

// Config holds all configuration for the storefront client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// Catalog backend
	APIURL     string        `env:"STOREFRONT_API_URL" envDefault:"http://localhost:3001/api"`
	APITimeout time.Duration `env:"STOREFRONT_API_TIMEOUT" envDefault:"10s"`
	MaxRetries int           `env:"STOREFRONT_API_MAX_RETRIES" envDefault:"0"`

	// Durable token storage
	TokenStore string `env:"TOKEN_STORE" envDefault:"file"`
	TokenFile  string `env:"TOKEN_FILE"`
	TokenKey   string `env:"TOKEN_KEY" envDefault:"authToken"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Paging
	CatalogPageSize int `env:"CATALOG_PAGE_SIZE" envDefault:"9"`
	AdminPageSize   int `env:"ADMIN_PAGE_SIZE" envDefault:"10"`

	// Client-side rate limiting; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`

	// Circuit breaker
	CBEnabled      bool          `env:"CB_ENABLED" envDefault:"true"`
	CBTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"15s"`
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.6"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// DiagnosticsAddr enables the /metrics and /health listener when set.
	DiagnosticsAddr   string   `env:"DIAGNOSTICS_ADDR"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// DotEnvFiles are read, in order, before the environment is parsed.
var DotEnvFiles = []string{".env"}

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithDotEnv(cfg, DotEnvFiles...); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RedisAddr returns host:port of the redis token store.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("STOREFRONT_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("STOREFRONT_API_URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("STOREFRONT_API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("STOREFRONT_API_MAX_RETRIES must not be negative")
	}

	switch strings.ToLower(c.TokenStore) {
	case TokenStoreFile:
		if c.TokenFile == "" {
			return fmt.Errorf("TOKEN_FILE is required when TOKEN_STORE=file")
		}
	case TokenStoreRedis, TokenStoreMemory:
	default:
		return fmt.Errorf("TOKEN_STORE must be one of file, redis, memory, got %q", c.TokenStore)
	}
	if c.TokenKey == "" {
		return fmt.Errorf("TOKEN_KEY must not be empty")
	}

	if c.CatalogPageSize <= 0 || c.AdminPageSize <= 0 {
		return fmt.Errorf("page sizes must be positive (CATALOG_PAGE_SIZE=%d, ADMIN_PAGE_SIZE=%d)", c.CatalogPageSize, c.AdminPageSize)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1], got %v", c.CBFailureRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be in [0, 1], got %v", c.OTELSampleRate)
	}
	return nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "storefront", "token")
}
