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
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	InspectionAPI  InspectionAPIConfig
	Establishments EstablishmentsConfig
	Snapshot       SnapshotConfig
	OTEL           OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
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

// InspectionAPIConfig holds the remote open-data API settings
type InspectionAPIConfig struct {
	BaseURI           string
	RelativeURI       string
	AppToken          string
	StartDate         string
	Timeout           time.Duration
	MaxConcurrency    int
	RequestsPerSecond float64
	Burst             int
	RetryAttempts     int
}

// EstablishmentsConfig holds where establishment descriptors come from and where they live
type EstablishmentsConfig struct {
	DescriptorPath string
	Store          string // redis, postgres or memory
	RedisHashKey   string
	TableName      string
}

// SnapshotConfig controls the scheduled bulk snapshot refresh
type SnapshotConfig struct {
	Enabled  bool
	Schedule string
	TTL      time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first; variables already set take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "food_inspector"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		InspectionAPI: InspectionAPIConfig{
			BaseURI:           getEnv("INSPECTION_API_BASE_URI", "https://data.kingcounty.gov"),
			RelativeURI:       getEnv("INSPECTION_API_RELATIVE_URI", "/resource/f29f-zza5.json"),
			AppToken:          getEnv("INSPECTION_API_APP_TOKEN", ""),
			StartDate:         getEnv("INSPECTION_START_DATE", ""),
			Timeout:           getEnvAsDuration("INSPECTION_API_TIMEOUT", 30*time.Second),
			MaxConcurrency:    getEnvAsInt("INSPECTION_API_MAX_CONCURRENCY", 4),
			RequestsPerSecond: getEnvAsFloat("INSPECTION_API_RPS", 5),
			Burst:             getEnvAsInt("INSPECTION_API_BURST", 5),
			RetryAttempts:     getEnvAsInt("INSPECTION_API_RETRY_ATTEMPTS", 3),
		},
		Establishments: EstablishmentsConfig{
			DescriptorPath: getEnv("ESTABLISHMENTS_FILE", "data/establishments.json"),
			Store:          strings.ToLower(getEnv("ESTABLISHMENTS_STORE", "redis")),
			RedisHashKey:   getEnv("ESTABLISHMENTS_REDIS_KEY", "establishments"),
			TableName:      getEnv("ESTABLISHMENTS_TABLE", "establishments"),
		},
		Snapshot: SnapshotConfig{
			Enabled:  getEnvAsBool("SNAPSHOT_ENABLED", true),
			Schedule: getEnv("SNAPSHOT_SCHEDULE", "@every 15m"),
			TTL:      getEnvAsDuration("SNAPSHOT_TTL", 30*time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "food-inspector"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	switch cfg.Establishments.Store {
	case "redis", "postgres", "memory":
	default:
		return nil, fmt.Errorf("unsupported ESTABLISHMENTS_STORE %q", cfg.Establishments.Store)
	}

	return cfg, nil
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
