package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DataDir        string `mapstructure:"DATA_DIR"`
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	SQLitePath     string `mapstructure:"SQLITE_PATH"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32  `mapstructure:"DB_MIN_CONNS"`

	EmailLogFile      string        `mapstructure:"EMAIL_LOG_FILE"`
	EHRLogFile        string        `mapstructure:"EHR_LOG_FILE"`
	NotifyRedisURL    string        `mapstructure:"NOTIFY_REDIS_URL"`
	NotifyRedisStream string        `mapstructure:"NOTIFY_REDIS_STREAM"`
	NotifyWebhookURL  string        `mapstructure:"NOTIFY_WEBHOOK_URL"`
	NotifyTimeout     time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("STORAGE_BACKEND", BackendCSV)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("NOTIFY_REDIS_STREAM", "clinic:notifications")
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL",
		"DATA_DIR", "STORAGE_BACKEND", "SQLITE_PATH",
		"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"EMAIL_LOG_FILE", "EHR_LOG_FILE",
		"NOTIFY_REDIS_URL", "NOTIFY_REDIS_STREAM", "NOTIFY_WEBHOOK_URL", "NOTIFY_TIMEOUT",
		"CORS_ORIGINS",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	// File locations default to the data directory.
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "clinic.db")
	}
	if cfg.EmailLogFile == "" {
		cfg.EmailLogFile = filepath.Join(cfg.DataDir, "email_communications.txt")
	}
	if cfg.EHRLogFile == "" {
		cfg.EHRLogFile = filepath.Join(cfg.DataDir, "ehr_updates.txt")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the storage settings are usable. Production refuses
// the memory backend.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendCSV, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of %q, %q, %q or %q, got %q",
			BackendCSV, BackendSQLite, BackendPostgres, BackendMemory, c.StorageBackend)
	}

	if c.IsProduction() && c.StorageBackend == BackendMemory {
		return fmt.Errorf("STORAGE_BACKEND %q does not persist records and is not allowed in production", BackendMemory)
	}

	if c.DBMinConns > c.DBMaxConns && c.DBMaxConns > 0 {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.NotifyTimeout < 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must not be negative")
	}
	return nil
}
