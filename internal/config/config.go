// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings
	GeoDBPath    string `mapstructure:"geodbpath"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Identity provider settings
	IdentityBaseURL string `mapstructure:"identitybaseurl"`
	IdentityAPIKey  string `mapstructure:"identityapikey"`

	// Dashboard settings
	StatsQueryTimeoutSeconds int `mapstructure:"statsquerytimeoutseconds"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// Data retention settings
	ResolvedDeletionsRetentionDays int `mapstructure:"resolveddeletionsretentiondays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "inkwell")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("identitybaseurl", "")
		v.SetDefault("identityapikey", "")
		v.SetDefault("statsquerytimeoutseconds", 10)
		v.SetDefault("jobintervalseconds", 300)
		v.SetDefault("resolveddeletionsretentiondays", 90)

		// Bind environment variables
		v.BindEnv("appname", "INKWELL_APP_NAME")
		v.BindEnv("appport", "INKWELL_APP_PORT")
		v.BindEnv("environment", "INKWELL_ENV")
		v.BindEnv("loglevel", "INKWELL_LOG_LEVEL")
		v.BindEnv("storagepath", "INKWELL_STORAGE_PATH")
		v.BindEnv("geodbpath", "INKWELL_GEO_DB_PATH")
		v.BindEnv("logsdir", "INKWELL_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "INKWELL_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "INKWELL_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "INKWELL_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "INKWELL_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "INKWELL_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "INKWELL_DB_MAX_IDLE_CONNS")
		v.BindEnv("identitybaseurl", "INKWELL_IDENTITY_BASE_URL")
		v.BindEnv("identityapikey", "INKWELL_IDENTITY_API_KEY")
		v.BindEnv("statsquerytimeoutseconds", "INKWELL_STATS_QUERY_TIMEOUT_SECONDS")
		v.BindEnv("jobintervalseconds", "INKWELL_JOB_INTERVAL_SECONDS")
		v.BindEnv("resolveddeletionsretentiondays", "INKWELL_RESOLVED_DELETIONS_RETENTION_DAYS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetAppName returns the application name
func (c *Config) GetAppName() string {
	return c.AppName
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for test stability with in-memory databases)
// - Development/Production: 10 (allows concurrent reads for parallel dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}
	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}
	return 5
}
