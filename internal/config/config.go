// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Client
	APIBaseURL      string        `mapstructure:"API_BASE_URL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RetryCount      int           `mapstructure:"RETRY_COUNT"`
	LayoutColumns   int           `mapstructure:"LAYOUT_COLUMNS"`
	LayoutGap       float64       `mapstructure:"LAYOUT_GAP"`
	SessionStore    string        `mapstructure:"SESSION_STORE"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	FeedSnapshotTTL time.Duration `mapstructure:"FEED_SNAPSHOT_TTL"`
	DownloadDir     string        `mapstructure:"DOWNLOAD_DIR"`

	// Tracing
	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	// Development authority
	Port        string `mapstructure:"PORT"`
	PublicURL   string `mapstructure:"PUBLIC_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	DBDriver    string `mapstructure:"DB_DRIVER"`
	DBPath      string `mapstructure:"DB_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	SeedFile    string `mapstructure:"SEED_FILE"`
	UploadDir   string `mapstructure:"UPLOAD_DIR"`
}

// Session store kinds.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// We intentionally ignore this error as the config file may not exist
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config.%s.yml: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.SessionStore = strings.ToLower(strings.TrimSpace(config.SessionStore))
	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("API_BASE_URL", "http://localhost:8000")
	viper.SetDefault("REQUEST_TIMEOUT", "10s")
	viper.SetDefault("RETRY_COUNT", 2)
	viper.SetDefault("LAYOUT_COLUMNS", 2)
	viper.SetDefault("LAYOUT_GAP", 16)
	viper.SetDefault("SESSION_STORE", SessionStoreMemory)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("FEED_SNAPSHOT_TTL", "24h")
	viper.SetDefault("DOWNLOAD_DIR", "downloads")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("PORT", "8000")
	viper.SetDefault("PUBLIC_URL", "")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_PATH", "file::memory:?cache=shared")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("SEED_FILE", "")
	viper.SetDefault("UPLOAD_DIR", "uploads")
}

// Validate ensures that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if c.LayoutColumns < 1 {
		return errors.New("LAYOUT_COLUMNS must be at least 1")
	}
	if c.LayoutGap < 0 {
		return errors.New("LAYOUT_GAP must not be negative")
	}
	if c.RetryCount < 0 {
		return errors.New("RETRY_COUNT must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q", SessionStoreMemory, SessionStoreRedis)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
	}

	return nil
}

// IsProduction reports whether the configuration targets production.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
