package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	pkgconfig "github.com/KavinT06/anigas-attire-sub000/pkg/config"
)

// Storage backends for persisted client state.
const (
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
	StorageMemory = "memory"
	StorageNone   = "none"
)

// Config holds all configuration for the storefront client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	// Backend API
	APIBaseURL     string        `env:"STOREFRONT_API_URL" envDefault:"http://localhost:8000/api"`
	RequestTimeout time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"15s"`
	AuthTimeout    time.Duration `env:"STOREFRONT_AUTH_TIMEOUT" envDefault:"10s"`
	CircuitBreaker bool          `env:"STOREFRONT_CIRCUIT_BREAKER" envDefault:"true"`

	// Credentials
	AccessTTL  time.Duration `env:"STOREFRONT_ACCESS_TTL" envDefault:"24h"`
	RefreshTTL time.Duration `env:"STOREFRONT_REFRESH_TTL" envDefault:"168h"`

	// Persisted client state
	Namespace string `env:"STOREFRONT_NAMESPACE" envDefault:"default"`
	Storage   string `env:"STOREFRONT_STORAGE" envDefault:"bolt"`
	StatePath string `env:"STOREFRONT_STATE_PATH"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Flows
	OTPInterval      time.Duration `env:"STOREFRONT_OTP_INTERVAL" envDefault:"30s"`
	WishlistDebounce time.Duration `env:"STOREFRONT_WISHLIST_DEBOUNCE" envDefault:"2s"`
	// RecaptchaToken is a token solved in the challenge widget. Each one is
	// good for a single auth call.
	RecaptchaToken string `env:"STOREFRONT_RECAPTCHA_TOKEN"`
	// DevRecaptcha issues throwaway tokens, for backends that skip verification.
	DevRecaptcha bool `env:"STOREFRONT_DEV_RECAPTCHA" envDefault:"false"`

	// Mock backend
	MockAddr string `env:"MOCK_BACKEND_ADDR" envDefault:"127.0.0.1:8000"`
	MockOTP  string `env:"MOCK_BACKEND_OTP" envDefault:"1234"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvedStatePath returns StatePath, or a file under the user config
// directory when it is unset.
func (c *Config) ResolvedStatePath() (string, error) {
	if c.StatePath != "" {
		return c.StatePath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "anigas-storefront", "state.db"), nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("STOREFRONT_API_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 || c.AuthTimeout <= 0 {
		return fmt.Errorf("request timeouts must be positive")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.RefreshTTL < c.AccessTTL {
		return fmt.Errorf("STOREFRONT_REFRESH_TTL (%s) must not be shorter than STOREFRONT_ACCESS_TTL (%s)", c.RefreshTTL, c.AccessTTL)
	}
	switch c.Storage {
	case StorageBolt, StorageRedis, StorageMemory, StorageNone:
	default:
		return fmt.Errorf("STOREFRONT_STORAGE must be one of bolt, redis, memory, none; got %q", c.Storage)
	}
	if c.Namespace == "" {
		return fmt.Errorf("STOREFRONT_NAMESPACE is required")
	}
	if c.OTELSampleRate < 0.0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}
