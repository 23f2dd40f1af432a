// Package config provides unified configuration loading for the FAQ Engine.
// Values come from defaults, an optional YAML file, a .env file and the
// process environment, in that order of precedence (last wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the FAQ Engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Generation    GenerationConfig    `yaml:"generation"`
	Matching      MatchingConfig      `yaml:"matching"`
	Knowledge     KnowledgeConfig     `yaml:"knowledge"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds answer cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig holds the daily generation quota settings.
type RateLimitConfig struct {
	DailyLimit int    `yaml:"daily_limit"`
	Backend    string `yaml:"backend"` // sql, redis or memory
	Timezone   string `yaml:"timezone"`
}

// GenerationConfig holds settings for the external text generation service.
type GenerationConfig struct {
	Provider string        `yaml:"provider"` // gemini, openai or disabled
	Model    string        `yaml:"model"`    // empty selects the provider default
	Timeout  time.Duration `yaml:"timeout"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
}

// GeminiConfig holds Gemini REST settings.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// OpenAIConfig holds settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// MatchingConfig controls the optional fuzzy knowledge-base stage.
type MatchingConfig struct {
	FuzzyEnabled      bool    `yaml:"fuzzy_enabled"`
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`
	FuzzyVerifiedOnly bool    `yaml:"fuzzy_verified_only"`
}

// KnowledgeConfig holds knowledge-base seeding settings.
type KnowledgeConfig struct {
	SeedPath  string `yaml:"seed_path"`
	WatchSeed bool   `yaml:"watch_seed"`
}

// AuthConfig holds bearer-token authentication settings.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory, if present, is loaded into the
// environment first without replacing variables that are already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		if cfg.Knowledge.SeedPath != "" {
			cfg.Knowledge.SeedPath = ResolveRelativePath(path, cfg.Knowledge.SeedPath)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   20 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/faq-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        10 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "faq:",
			},
		},
		RateLimit: RateLimitConfig{
			DailyLimit: 20,
			Backend:    "sql",
			Timezone:   "UTC",
		},
		Generation: GenerationConfig{
			Provider: "gemini",
			Timeout:  8 * time.Second,
			Gemini: GeminiConfig{
				BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			},
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
			},
		},
		Matching: MatchingConfig{
			FuzzyEnabled:      false,
			FuzzyThreshold:    0.85,
			FuzzyVerifiedOnly: true,
		},
		Auth: AuthConfig{
			Enabled:  false,
			Issuer:   "https://auth.spherical.local",
			Audience: "faq-engine",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "faq-engine",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres driver requires a dsn")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	switch c.RateLimit.Backend {
	case "sql", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("redis rate limit backend requires cache.redis.addr")
		}
	default:
		return fmt.Errorf("invalid rate limit backend: %s", c.RateLimit.Backend)
	}

	if c.RateLimit.DailyLimit < 1 {
		return fmt.Errorf("daily_limit must be positive")
	}

	if _, err := time.LoadLocation(c.RateLimit.Timezone); err != nil {
		return fmt.Errorf("invalid rate limit timezone %q: %w", c.RateLimit.Timezone, err)
	}

	switch c.Generation.Provider {
	case "gemini", "openai", "disabled":
	default:
		return fmt.Errorf("invalid generation provider: %s", c.Generation.Provider)
	}

	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation timeout must be positive")
	}

	if c.Matching.FuzzyThreshold <= 0 || c.Matching.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in (0, 1]")
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but jwt_secret is empty")
	}

	return nil
}

// GenerationAPIKey returns the credential for the configured provider.
func (c *Config) GenerationAPIKey() string {
	switch c.Generation.Provider {
	case "gemini":
		return c.Generation.Gemini.APIKey
	case "openai":
		return c.Generation.OpenAI.APIKey
	default:
		return ""
	}
}

// Location returns the timezone used for the daily quota rollover.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.RateLimit.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("RATE_LIMIT_BACKEND"); v != "" {
		cfg.RateLimit.Backend = v
	}

	if v := os.Getenv("DAILY_REQUEST_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.DailyLimit = n
		}
	}

	if v := os.Getenv("GENERATION_PROVIDER"); v != "" {
		cfg.Generation.Provider = v
	}

	if v := os.Getenv("GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}

	if v := os.Getenv("GENERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Generation.Timeout = d
		}
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Generation.Gemini.APIKey = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Generation.OpenAI.APIKey = v
	}

	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Generation.OpenAI.BaseURL = v
	}

	if v := os.Getenv("FUZZY_MATCH_ENABLED"); v != "" {
		cfg.Matching.FuzzyEnabled = v == "true" || v == "1"
	}

	if v := os.Getenv("KB_SEED_PATH"); v != "" {
		cfg.Knowledge.SeedPath = v
	}

	if v := os.Getenv("AUTH_ENABLED"); v == "true" {
		cfg.Auth.Enabled = true
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	return filepath.Join(filepath.Dir(configPath), targetPath)
}
