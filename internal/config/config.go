package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env       string    `mapstructure:"env"` // current application environment (local, dev, production)
	Telegram  Telegram  `mapstructure:"-"`
	DB        DB        `mapstructure:"database"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Sheets    Sheets    `mapstructure:"sheets"`
}

// Telegram contains bot transport secrets loaded from environment.
type Telegram struct {
	APIToken string `mapstructure:"-"`
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // connection string loaded from environment
	MaxConnections  int32         `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// Scheduler contains dispatch loop tuning.
type Scheduler struct {
	TickInterval          time.Duration `mapstructure:"tick_interval"`           // how often due-ness and expiry are evaluated
	MaxConcurrentDispatch int           `mapstructure:"max_concurrent_dispatch"` // per-tick worker pool size
}

// Sheets contains Google Sheets content-source settings.
type Sheets struct {
	CredentialsFile string        `mapstructure:"-"`         // service account JSON, loaded from environment
	CacheTTL        time.Duration `mapstructure:"cache_ttl"` // how long fetched sheet rows are reused
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")
	v.SetDefault("scheduler.tick_interval", "30s")
	v.SetDefault("scheduler.max_concurrent_dispatch", 10)
	v.SetDefault("sheets.cache_ttl", "5m")

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("google_credentials_file", "GOOGLE_CREDENTIALS_FILE")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.Telegram.APIToken = v.GetString("telegram_api_token")
	if cfg.Telegram.APIToken == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	cfg.DB.URL = v.GetString("database_url")
	if cfg.DB.URL == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	cfg.Sheets.CredentialsFile = v.GetString("google_credentials_file")
	if cfg.Sheets.CredentialsFile == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	return &cfg, nil
}
