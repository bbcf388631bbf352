// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Storage backend identifiers accepted by STORAGE_BACKEND.
const (
	BackendRedis   = "redis"
	BackendMariaDB = "mariadb"
	BackendMemory  = "memory"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL, also the allowed CORS origin.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// TrustedProxies lists CIDR ranges whose forwarding headers are believed.
	TrustedProxies []string

	// WriteRateLimit caps state-changing API requests per client IP per
	// minute. Zero disables the limit.
	WriteRateLimit int

	// Storage selects where the court session document lives.
	Storage StorageConfig

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Broker holds RabbitMQ settings for lifecycle events.
	Broker BrokerConfig

	// Venue describes the courts and the local clock of the facility.
	Venue VenueConfig
}

// StorageConfig selects the persistence backend for the session document.
type StorageConfig struct {
	// Backend is one of "redis", "mariadb" or "memory" (default: "redis").
	Backend string

	// Key is the document key inside the backend (default: "squash4all_sessions").
	Key string

	// MigrationsPath is the golang-migrate source directory for the MariaDB backend.
	MigrationsPath string
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() so special characters in
// passwords are escaped.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// BrokerConfig holds RabbitMQ settings. An empty URL disables publishing.
type BrokerConfig struct {
	URL   string
	Queue string
}

// Enabled reports whether a broker URL was configured.
func (b BrokerConfig) Enabled() bool {
	return b.URL != ""
}

// VenueConfig describes the facility: how many courts of each kind exist,
// which time zone rate intervals and report days are evaluated in, and how
// often active sessions tick.
type VenueConfig struct {
	Timezone          string
	Location          *time.Location
	SquashCourts      int
	TableTennisTables int
	TickInterval      time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; real
// environment variables always win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("ignoring unreadable .env file", slog.Any("error", err))
	}

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		TrustedProxies: getEnvList("TRUSTED_PROXIES",
			[]string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fd00::/8"}),
		WriteRateLimit: getEnvInt("WRITE_RATE_LIMIT", 120),

		Storage: StorageConfig{
			Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", BackendRedis)),
			Key:            getEnv("STORAGE_KEY", "squash4all_sessions"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
		},

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "courtside"),
			Password:        getEnv("DB_PASSWORD", "courtside"),
			Name:            getEnv("DB_NAME", "courtside"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Broker: BrokerConfig{
			URL:   getEnv("AMQP_URL", ""),
			Queue: getEnv("AMQP_QUEUE", "court.sessions"),
		},

		Venue: VenueConfig{
			Timezone:          getEnv("VENUE_TIMEZONE", "Local"),
			SquashCourts:      getEnvInt("SQUASH_COURTS", 5),
			TableTennisTables: getEnvInt("TABLE_TENNIS_TABLES", 1),
			TickInterval:      getEnvDuration("TICK_INTERVAL", time.Second),
		},
	}

	switch cfg.Storage.Backend {
	case BackendRedis, BackendMariaDB, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q: must be redis, mariadb or memory", cfg.Storage.Backend)
	}

	if !cfg.IsDevelopment() && cfg.Storage.Backend == BackendMemory {
		return nil, fmt.Errorf("STORAGE_BACKEND=memory is not allowed in production")
	}

	if cfg.Venue.SquashCourts < 0 || cfg.Venue.TableTennisTables < 0 {
		return nil, fmt.Errorf("court counts must not be negative")
	}
	if cfg.Venue.SquashCourts+cfg.Venue.TableTennisTables == 0 {
		return nil, fmt.Errorf("at least one court must be configured")
	}
	if cfg.Venue.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be positive")
	}

	loc, err := time.LoadLocation(cfg.Venue.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading VENUE_TIMEZONE %q: %w", cfg.Venue.Timezone, err)
	}
	cfg.Venue.Location = loc

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvDuration reads a duration env var (e.g., "1s") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
