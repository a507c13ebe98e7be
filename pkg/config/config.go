package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Token verification modes.
const (
	AuthModeNone = "none" // parse backend tokens without checking the signature
	AuthModeHMAC = "hmac"
	AuthModeJWKS = "jwks"
)

// Session store kinds.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Family data sources.
const (
	SourceBackend  = "backend"
	SourcePostgres = "postgres"
)

// Config holds all configuration for the family portal.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, signing keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	Backend  BackendConfig  `yaml:"backend"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Redis    RedisConfig    `yaml:"redis"`
	Source   SourceConfig   `yaml:"source"`
	Database DatabaseConfig `yaml:"database"`
}

// BackendConfig locates the community backend REST API.
type BackendConfig struct {
	URL        string        `yaml:"url" env:"BACKEND_URL" env-default:"http://localhost:8000"`
	Timeout    time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"10s"`
	MaxRetries int           `yaml:"max_retries" env:"BACKEND_MAX_RETRIES" env-default:"3"`
}

// AuthConfig controls how backend access tokens are checked when a session is created.
type AuthConfig struct {
	// Mode is one of none, hmac, jwks.
	Mode string `yaml:"mode" env:"AUTH_MODE" env-default:"none"`

	// JWKSURL is required when Mode is jwks.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`

	// TokenSecret is the backend's HS256 signing key, required when Mode is hmac.
	TokenSecret string `yaml:"-" env:"TOKEN_SECRET"` // Secret - not in YAML
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	Store      string        `yaml:"store" env:"SESSION_STORE" env-default:"memory"`
	TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"12h"`
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"family_portal_session"`

	// Secret signs the session cookie.
	Secret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML

	// EncryptionKey seals backend access tokens kept in Redis.
	EncryptionKey string `yaml:"-" env:"SESSION_ENCRYPTION_KEY"` // Secret - not in YAML
}

// RedisConfig holds Redis connection settings for the redis session store.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SourceConfig selects where persons and relations are read from.
type SourceConfig struct {
	Mode string `yaml:"mode" env:"SOURCE_MODE" env-default:"backend"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"family"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"family_portal"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is fine: defaults and environment variables apply.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !slices.Contains([]string{AuthModeNone, AuthModeHMAC, AuthModeJWKS}, c.Auth.Mode) {
		return fmt.Errorf("auth.mode must be one of none, hmac, jwks (got %q)", c.Auth.Mode)
	}
	if c.Auth.Mode == AuthModeHMAC && c.Auth.TokenSecret == "" {
		return fmt.Errorf("TOKEN_SECRET is required when auth.mode is hmac")
	}
	if c.Auth.Mode == AuthModeJWKS && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.jwks_url is required when auth.mode is jwks")
	}

	if !slices.Contains([]string{SessionStoreMemory, SessionStoreRedis}, c.Session.Store) {
		return fmt.Errorf("session.store must be memory or redis (got %q)", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	if !slices.Contains([]string{SourceBackend, SourcePostgres}, c.Source.Mode) {
		return fmt.Errorf("source.mode must be backend or postgres (got %q)", c.Source.Mode)
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if _, err := url.ParseRequestURI(c.Backend.URL); err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
