// Package config loads service configuration from an optional YAML file,
// .env files and environment variables (environment always wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sykell/bookmarks/internal/db"
)

const (
	defaultPort            = "8080"
	defaultImportBatchSize = 500
	defaultImportMaxRows   = 5000
	defaultImportSource    = "csv"
	defaultMaxUploadBytes  = 10 << 20
	defaultTokenDuration   = 24 * time.Hour
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database db.Config      `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Import   ImportConfig   `yaml:"import"`
	Metadata MetadataConfig `yaml:"metadata"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

// ImportConfig bounds the bulk import path.
type ImportConfig struct {
	BatchSize      int    `yaml:"batch_size"`
	MaxRows        int    `yaml:"max_rows"`
	DefaultSource  string `yaml:"default_source"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// MetadataConfig controls title enrichment of imported links.
type MetadataConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`

	// AllowPrivateNetworks permits fetching links on loopback and private ranges.
	AllowPrivateNetworks bool `yaml:"allow_private_networks"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            defaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: db.DefaultConfig(),
		Auth: AuthConfig{
			TokenDuration: defaultTokenDuration,
		},
		Import: ImportConfig{
			BatchSize:      defaultImportBatchSize,
			MaxRows:        defaultImportMaxRows,
			DefaultSource:  defaultImportSource,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Metadata: MetadataConfig{
			Enabled:   true,
			Workers:   5,
			QueueSize: 100,
			Timeout:   30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads .env files, the optional YAML file at path and environment overrides.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch c.Database.Driver {
	case db.DriverMySQL:
		if c.Database.Host == "" || c.Database.Database == "" {
			return errors.New("database.host and database.database are required for mysql")
		}
	case db.DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (JWT_SECRET)")
	}
	if c.Import.BatchSize <= 0 {
		return errors.New("import.batch_size must be positive")
	}
	if c.Import.MaxRows <= 0 {
		return errors.New("import.max_rows must be positive")
	}
	if c.Import.MaxUploadBytes <= 0 {
		return errors.New("import.max_upload_bytes must be positive")
	}
	if c.Metadata.Enabled && c.Metadata.Workers <= 0 {
		return errors.New("metadata.workers must be positive when enabled")
	}
	return nil
}

// loadEnvFiles loads .env.local then .env; missing files are fine.
func loadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)

	cfg.Database.Driver = getEnvOrDefault("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnvOrDefault("MYSQL_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvOrDefault("MYSQL_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvOrDefault("MYSQL_USER", cfg.Database.User)
	cfg.Database.Password = getEnvOrDefault("MYSQL_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnvOrDefault("MYSQL_DATABASE", cfg.Database.Database)
	cfg.Database.Path = getEnvOrDefault("SQLITE_PATH", cfg.Database.Path)

	cfg.Auth.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenDuration = getEnvDuration("JWT_DURATION", cfg.Auth.TokenDuration)

	cfg.Import.BatchSize = getEnvInt("IMPORT_BATCH_SIZE", cfg.Import.BatchSize)
	cfg.Import.MaxRows = getEnvInt("IMPORT_MAX_ROWS", cfg.Import.MaxRows)
	cfg.Import.MaxUploadBytes = int64(getEnvInt("IMPORT_MAX_UPLOAD_BYTES", int(cfg.Import.MaxUploadBytes)))

	cfg.Metadata.Enabled = getEnvBool("METADATA_ENABLED", cfg.Metadata.Enabled)
	cfg.Metadata.Workers = getEnvInt("METADATA_WORKERS", cfg.Metadata.Workers)
	cfg.Metadata.AllowPrivateNetworks = getEnvBool("METADATA_ALLOW_PRIVATE_NETWORKS", cfg.Metadata.AllowPrivateNetworks)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Debug = getEnvBool("APP_DEBUG", cfg.Logging.Debug)
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
