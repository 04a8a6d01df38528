package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Log      LogConfig
	OAuth2   OAuth2Config
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host               string
	Port               int      // Port for the REST API
	MetricsPort        int      // Port for Prometheus metrics HTTP server
	HealthPort         int      // Port for the gRPC health service
	APIPrefix          string   // Path prefix of every API route (e.g., "/api")
	CORSAllowedOrigins []string // Empty disables CORS handling
}

// CacheConfig represents access token cache configuration
type CacheConfig struct {
	Enabled     bool
	MaxMemoryMB int // Hard limit of the cache size in megabytes
	Shards      int // Number of cache shards (power of two)
	TTLMinutes  int // Time-to-live for cache entries in minutes
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// OAuth2Config represents resource server configuration
type OAuth2Config struct {
	Realm string // Realm advertised in WWW-Authenticate
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int           // 0 falls back to the package default
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root directory
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	// Find project root
	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	// Set config file name based on environment
	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(projectRoot) // Project root

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("METRICS_PORT", 9090)
	viper.SetDefault("HEALTH_PORT", 50051)
	viper.SetDefault("API_PREFIX", "/api")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 15432)
	viper.SetDefault("DB_USER", "commerce")
	viper.SetDefault("DB_NAME", "commerce_dev")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	// Cache defaults
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("CACHE_MAX_MEMORY_MB", 64)
	viper.SetDefault("CACHE_SHARDS", 64)
	viper.SetDefault("CACHE_TTL_MINUTES", 5) // 5 minutes TTL

	// Logging defaults
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	viper.SetDefault("OAUTH2_REALM", "Service")

	return nil
}

// Load loads configuration from viper
func Load() (*Config, error) {
	// DB_PASSWORD is required for security
	dbPassword := viper.GetString("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}

	config := &Config{
		Server: ServerConfig{
			Host:               viper.GetString("SERVER_HOST"),
			Port:               viper.GetInt("SERVER_PORT"),
			MetricsPort:        viper.GetInt("METRICS_PORT"),
			HealthPort:         viper.GetInt("HEALTH_PORT"),
			APIPrefix:          normalizePrefix(viper.GetString("API_PREFIX")),
			CORSAllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: dbPassword,
			Database: viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),

			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:     viper.GetBool("CACHE_ENABLED"),
			MaxMemoryMB: viper.GetInt("CACHE_MAX_MEMORY_MB"),
			Shards:      viper.GetInt("CACHE_SHARDS"),
			TTLMinutes:  viper.GetInt("CACHE_TTL_MINUTES"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		OAuth2: OAuth2Config{
			Realm: viper.GetString("OAUTH2_REALM"),
		},
	}

	if config.Log.Format != "" && config.Log.Format != "text" && config.Log.Format != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", config.Log.Format)
	}

	return config, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// normalizePrefix returns the prefix with a leading slash and no trailing slash
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

// splitList splits a comma-separated value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
