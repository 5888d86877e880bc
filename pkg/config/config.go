package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env            string
	LogLevel       string
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	OTEL           OTELConfig
	Serviceability ServiceabilityConfig
	RateLimit      RateLimitConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// ServiceabilityConfig holds resolution engine configuration
type ServiceabilityConfig struct {
	// Timezone is used for working hours and capacity days of geofences
	// that carry no zone of their own
	Timezone string
	// CurrencyDigits is the number of minor-unit digits fees are rounded to
	CurrencyDigits int
	// TieEpsilonMeters is the distance within which two hubs count as equidistant
	TieEpsilonMeters float64
	// MaxServiceRadiusKm caps base-location fallback; 0 disables the cap
	MaxServiceRadiusKm float64
	// CatalogCacheTTL bounds how stale a cached catalog snapshot may be
	CatalogCacheTTL time.Duration
	// CatalogLoadTimeout bounds one shared catalog load
	CatalogLoadTimeout time.Duration
	// CatalogBackend is "postgres" or "memory"
	CatalogBackend string
	// CapacityBackend is "postgres", "redis" or "memory"
	CapacityBackend string
	// CatalogFixtures is a YAML file loaded into the memory backend
	CatalogFixtures string
}

// RateLimitConfig holds per-client rate limiting for public endpoints
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	// TrustedProxies are CIDRs whose X-Forwarded-For header is believed.
	// Empty means clients are keyed on the connection address only.
	TrustedProxies []string
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Env:      getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "serviceability"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "serviceability-engine"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Serviceability: ServiceabilityConfig{
			Timezone:           getEnv("SERVICEABILITY_TIMEZONE", "Asia/Kolkata"),
			CurrencyDigits:     getEnvAsInt("SERVICEABILITY_CURRENCY_DIGITS", 2),
			TieEpsilonMeters:   getEnvAsFloat("SERVICEABILITY_TIE_EPSILON_METERS", 1.0),
			MaxServiceRadiusKm: getEnvAsFloat("SERVICEABILITY_MAX_RADIUS_KM", 0),
			CatalogCacheTTL:    time.Duration(getEnvAsInt("CATALOG_CACHE_TTL_SECONDS", 30)) * time.Second,
			CatalogLoadTimeout: time.Duration(getEnvAsInt("CATALOG_LOAD_TIMEOUT_SECONDS", 10)) * time.Second,
			CatalogBackend:     getEnv("CATALOG_BACKEND", "postgres"),
			CapacityBackend:    getEnv("CAPACITY_BACKEND", "postgres"),
			CatalogFixtures:    getEnv("CATALOG_FIXTURES", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RPS:     getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst:   getEnvAsInt("RATE_LIMIT_BURST", 40),

			TrustedProxies: getEnvAsList("RATE_LIMIT_TRUSTED_PROXIES", nil),
		},
	}

	if err := cfg.Serviceability.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceabilityConfig) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid SERVICEABILITY_TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.CurrencyDigits < 0 || c.CurrencyDigits > 4 {
		return fmt.Errorf("SERVICEABILITY_CURRENCY_DIGITS must be between 0 and 4, got %d", c.CurrencyDigits)
	}
	if c.TieEpsilonMeters < 0 {
		return fmt.Errorf("SERVICEABILITY_TIE_EPSILON_METERS must not be negative")
	}
	if c.MaxServiceRadiusKm < 0 {
		return fmt.Errorf("SERVICEABILITY_MAX_RADIUS_KM must not be negative")
	}
	switch c.CatalogBackend {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.CatalogBackend)
	}
	switch c.CapacityBackend {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("unknown CAPACITY_BACKEND %q", c.CapacityBackend)
	}
	return nil
}

// Location returns the configured default time zone
func (c *ServiceabilityConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
