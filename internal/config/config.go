// internal/config/config.go
// Configuration management using environment variables and optional config files

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Engine      EngineConfig
	Features    FeatureFlags
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig contains all database connection settings
type DatabaseConfig struct {
	MySQL   MySQLConfig
	MongoDB MongoDBConfig
	Redis   RedisConfig
}

// MySQLConfig contains MySQL-specific settings
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MongoDBConfig contains MongoDB-specific settings
type MongoDBConfig struct {
	URI      string
	Database string
}

// RedisConfig contains Redis-specific settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig contains authentication and authorization settings
type AuthConfig struct {
	JWTSecret               string
	ImpersonationTokenTTL   time.Duration
}

// EngineConfig contains the default tuning values the coordinator, timer
// scheduler, poller and rate governor fall back to when a tenant has no
// row in tenant_settings (§6 Configuration).
type EngineConfig struct {
	LegacyTournamentID string

	PollInterval    time.Duration
	FallbackDelay   time.Duration
	SnapshotStaleThreshold time.Duration

	DQDefaultDuration   int
	DQWarningThreshold  int
	AutoDQAction        string

	SponsorRotationInterval time.Duration
	SponsorRotationOrder    string
	SponsorTransitionMs     int
	TimerShowDuration       int
	TimerHideDuration       int

	GovernorIdleRate     float64
	GovernorUpcomingRate float64
	GovernorActiveRate   float64

	SponsorStateDir string
	SnapshotCacheDir string
}

// FeatureFlags allows toggling features without code changes
type FeatureFlags struct {
	EnableWebSocket  bool
	MultiTenantPoll  bool
	MaintenanceMode  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist in production
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", "8080"),
			ReadTimeout:  getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			MySQL: MySQLConfig{
				DSN:             getEnvOrDefault("MYSQL_DSN", ""),
				MaxOpenConns:    getIntOrDefault("MYSQL_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getIntOrDefault("MYSQL_MAX_IDLE_CONNS", 5),
				ConnMaxLifetime: getDurationOrDefault("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
			},
			MongoDB: MongoDBConfig{
				URI:      getEnvOrDefault("MONGO_URI", ""),
				Database: getEnvOrDefault("MONGO_DATABASE", "tournamentlive"),
			},
			Redis: RedisConfig{
				Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
				Password: getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:       getIntOrDefault("REDIS_DB", 0),
			},
		},
		Auth: AuthConfig{
			JWTSecret:             getEnvOrDefault("JWT_SECRET", ""),
			ImpersonationTokenTTL: getDurationOrDefault("IMPERSONATION_TOKEN_TTL", 30*time.Minute),
		},
		Engine: EngineConfig{
			LegacyTournamentID: getEnvOrDefault("LEGACY_TOURNAMENT_ID", ""),

			PollInterval:           getDurationOrDefault("POLL_INTERVAL", 5*time.Second),
			FallbackDelay:          getDurationOrDefault("FALLBACK_DELAY", 30*time.Second),
			SnapshotStaleThreshold: getDurationOrDefault("SNAPSHOT_STALE_THRESHOLD", 60*time.Second),

			DQDefaultDuration:  getIntOrDefault("DQ_DEFAULT_DURATION", 120),
			DQWarningThreshold: getIntOrDefault("DQ_WARNING_THRESHOLD", 30),
			AutoDQAction:       getEnvOrDefault("AUTO_DQ_ACTION", "notify"),

			SponsorRotationInterval: getDurationOrDefault("SPONSOR_ROTATION_INTERVAL", 30*time.Second),
			SponsorRotationOrder:    getEnvOrDefault("SPONSOR_ROTATION_ORDER", "sequential"),
			SponsorTransitionMs:     getIntOrDefault("SPONSOR_TRANSITION_MS", 500),
			TimerShowDuration:       getIntOrDefault("TIMER_SHOW_DURATION", 20),
			TimerHideDuration:       getIntOrDefault("TIMER_HIDE_DURATION", 10),

			GovernorIdleRate:     getFloatOrDefault("GOVERNOR_IDLE_RATE", 0.5),
			GovernorUpcomingRate: getFloatOrDefault("GOVERNOR_UPCOMING_RATE", 2),
			GovernorActiveRate:   getFloatOrDefault("GOVERNOR_ACTIVE_RATE", 10),

			SponsorStateDir:  getEnvOrDefault("SPONSOR_STATE_DIR", "./data/sponsors"),
			SnapshotCacheDir: getEnvOrDefault("SNAPSHOT_CACHE_DIR", "./data/snapshots"),
		},
		Features: FeatureFlags{
			EnableWebSocket: getBoolOrDefault("ENABLE_WEBSOCKET", true),
			MultiTenantPoll: getBoolOrDefault("MULTI_TENANT_POLL", true),
			MaintenanceMode: getBoolOrDefault("MAINTENANCE_MODE", false),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Database.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// Helper functions to read environment variables with defaults
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
