package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	ServerAddress string
	Environment   string
	LogLevel      string
	SiteTitle     string
	API           APIConfig
	Auth          AuthConfig
	UserCache     UserCacheConfig
	Metrics       MetricsConfig
}

// APIConfig points at the backend that owns OAuth and user profiles
type APIConfig struct {
	BaseURL             string // e.g. http://localhost:8000
	ProfileFetchTimeout time.Duration
}

// AuthConfig holds session cookie and login resolution settings
type AuthConfig struct {
	CookieDomain   string
	SecureCookie   bool
	ResolveTimeout time.Duration // how long a page waits for the profile before rendering a loading view
}

// UserCacheConfig controls the in-memory user store
type UserCacheConfig struct {
	TTL           time.Duration
	SweepSchedule string
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")

	profileTimeout, err := getDuration("PROFILE_FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	resolveTimeout, err := getDuration("AUTH_RESOLVE_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getDuration("USER_CACHE_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":3000"),
		Environment:   environment,
		LogLevel:      getEnv("LOG_LEVEL", ""),
		SiteTitle:     getEnv("SITE_TITLE", "Sirat's CMS"),
		API: APIConfig{
			BaseURL:             strings.TrimRight(getEnv("API_URL", "http://localhost:8000"), "/"),
			ProfileFetchTimeout: profileTimeout,
		},
		Auth: AuthConfig{
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			SecureCookie:   getEnv("AUTH_SECURE_COOKIE", fmt.Sprint(environment == "production")) == "true",
			ResolveTimeout: resolveTimeout,
		},
		UserCache: UserCacheConfig{
			TTL:           cacheTTL,
			SweepSchedule: getEnv("USER_CACHE_SWEEP", "@every 10m"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnv("METRICS_ENABLED", "true") == "true",
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.ProfileFetchTimeout <= 0 {
		return fmt.Errorf("PROFILE_FETCH_TIMEOUT must be positive")
	}
	if c.Auth.ResolveTimeout <= 0 {
		return fmt.Errorf("AUTH_RESOLVE_TIMEOUT must be positive")
	}
	return nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
