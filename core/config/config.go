package config

import (
	"path/filepath"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Platforms PlatformsConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// SchedulerConfig tunes the due-post processing pass. Interval doubles as
// the effective retry delay: a post that fails but stays scheduled is
// reselected on the next tick.
type SchedulerConfig struct {
	Interval               time.Duration
	BatchLimit             int
	Concurrency            int
	MaxAttempts            int
	PublishTimeout         time.Duration
	LockTTL                time.Duration // cross-node pass lock expiry; keep shorter than Interval
	EnforceOccurrenceLimit bool
}

type PlatformsConfig struct {
	TelegramAPIBase string
}

// Global provides access to the loaded configuration globally (Migration Helper)
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = splitCSV(v)
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = splitCSV(v)
	}

	appCfg := AppConfig{
		Version:            "v1.4.2",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = splitCSV(v)
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "postpilot.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "postpilot:"),
	}

	schedCfg := SchedulerConfig{
		Interval:               getEnvDuration("SCHEDULER_INTERVAL", time.Minute),
		BatchLimit:             getEnvInt("SCHEDULER_BATCH_LIMIT", 50),
		Concurrency:            getEnvInt("SCHEDULER_CONCURRENCY", 5),
		MaxAttempts:            getEnvInt("SCHEDULER_MAX_ATTEMPTS", 3),
		PublishTimeout:         getEnvDuration("SCHEDULER_PUBLISH_TIMEOUT", 30*time.Second),
		LockTTL:                getEnvDuration("SCHEDULER_LOCK_TTL", 0),
		EnforceOccurrenceLimit: getEnvBool("SCHEDULER_ENFORCE_OCCURRENCE_LIMIT", false),
	}
	if schedCfg.LockTTL <= 0 {
		// Default the cross-node lock to just under the pass interval so a
		// node never skips a pass on its own unexpired lock.
		schedCfg.LockTTL = schedCfg.Interval - 5*time.Second
		if schedCfg.LockTTL <= 0 {
			schedCfg.LockTTL = schedCfg.Interval
		}
	}

	cfg := &Config{
		App:       appCfg,
		Paths:     pathsCfg,
		Database:  dbCfg,
		Scheduler: schedCfg,
		Platforms: PlatformsConfig{
			TelegramAPIBase: getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		},
	}

	Global = cfg
	return cfg, nil
}
