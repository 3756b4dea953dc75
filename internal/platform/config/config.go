// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration of the API server.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	JWT        JWTConfig        `json:"jwt"`
	Cache      CacheConfig      `json:"cache"`
	Query      QueryConfig      `json:"query"`
	RateLimits RateLimitsConfig `json:"rateLimits"`
	Email      EmailConfig      `json:"email"`
	App        AppConfig        `json:"app"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	BaseRoute       string        `json:"baseRoute"`
	Debug           bool          `json:"debug"`
	Origin          string        `json:"origin"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Type     string           `json:"type"`
	MongoDB  MongoDBConfig    `json:"mongodb"`
	Postgres PostgreSQLConfig `json:"postgres"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string        `json:"uri"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	Database       string        `json:"database"`
	AuthSource     string        `json:"authSource"`
	ReplicaSet     string        `json:"replicaSet"`
	TLS            bool          `json:"tls"`
	MaxPoolSize    int           `json:"maxPoolSize"`
	MinPoolSize    int           `json:"minPoolSize"`
	ConnectTimeout time.Duration `json:"connectTimeout"`
	SocketTimeout  time.Duration `json:"socketTimeout"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Database        string        `json:"database"`
	Schema          string        `json:"schema"`
	DSN             string        `json:"dsn"`
	SSLMode         string        `json:"sslMode"`
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}

// JWTConfig holds the PEM encoded ES256 key pair and token lifetime.
type JWTConfig struct {
	PublicKey  string        `json:"publicKey"`
	PrivateKey string        `json:"privateKey"`
	AccessTTL  time.Duration `json:"accessTtl"`
	ResetTTL   time.Duration `json:"resetTtl"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Enabled bool          `json:"enabled"`
	Backend string        `json:"backend"`
	Prefix  string        `json:"prefix"`
	TTL     time.Duration `json:"ttl"`
	Redis   RedisConfig   `json:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"poolSize"`
}

// QueryConfig tunes the list query pipeline.
type QueryConfig struct {
	DefaultLimit   int  `json:"defaultLimit"`
	MaxLimit       int  `json:"maxLimit"`
	StrictCategory bool `json:"strictCategory"`
}

// RateLimitConfig holds rate limiting configuration for a specific endpoint
type RateLimitConfig struct {
	Enabled  bool          `json:"enabled"`
	Max      int           `json:"max"`
	Duration time.Duration `json:"duration"`
}

// RateLimitsConfig holds rate limiting configuration for all endpoints
type RateLimitsConfig struct {
	Register      RateLimitConfig `json:"register"`
	Login         RateLimitConfig `json:"login"`
	PasswordReset RateLimitConfig `json:"passwordReset"`
}

// EmailConfig holds the SMTP relay used for notices. An empty host
// disables email.
type EmailConfig struct {
	SMTPHost string `json:"smtpHost"`
	SMTPPort int    `json:"smtpPort"`
	SMTPUser string `json:"smtpUser"`
	SMTPPass string `json:"-"`
	FromName string `json:"fromName"`
	From     string `json:"from"`
}

// AppConfig holds application-related configuration
type AppConfig struct {
	Name                string        `json:"name"`
	ClientURL           string        `json:"clientUrl"`
	MonthlyPrice        float64       `json:"monthlyPrice"`
	AnnualPrice         float64       `json:"annualPrice"`
	DefaultCurrency     string        `json:"defaultCurrency"`
	MonthlySubscription time.Duration `json:"monthlySubscription"`
	AnnualSubscription  time.Duration `json:"annualSubscription"`
}

// lookupFunc returns the raw value for a key and whether it was set.
type lookupFunc func(key string) (string, bool)

// LoadFromEnv loads configuration from the environment.
// It follows a clear precedence:
// 1. Explicit Environment Variables (e.g., set in the shell or by CI)
// 2. Values from the .env file (if it exists)
// 3. Hardcoded defaults (if applicable)
func LoadFromEnv() (*Config, error) {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	return load(func(key string) (string, bool) {
		value := os.Getenv(key)
		return value, value != ""
	})
}

// LoadFromMap loads configuration from an in-memory map.
// This is the primary helper for testing configuration logic in isolation
// without manipulating global environment variables.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	return load(func(key string) (string, bool) {
		value, ok := envMap[key]
		return value, ok
	})
}

func load(lookup lookupFunc) (*Config, error) {
	e := env{lookup: lookup}

	if _, ok := lookup("JWT_PRIVATE_KEY"); !ok {
		return nil, fmt.Errorf("required configuration JWT_PRIVATE_KEY is not set")
	}
	if _, ok := lookup("JWT_PUBLIC_KEY"); !ok {
		return nil, fmt.Errorf("required configuration JWT_PUBLIC_KEY is not set")
	}

	config := &Config{
		Server: ServerConfig{
			Host:            e.getStr("HOST", "localhost"),
			Port:            e.getInt("SERVER_PORT", 8080),
			BaseRoute:       e.getStr("BASE_ROUTE", "/api/v1"),
			Debug:           e.getBool("DEBUG", false),
			Origin:          e.getStr("ORIGIN", "*"),
			ShutdownTimeout: e.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Type: e.getStr("DB_TYPE", "mongodb"),
			MongoDB: MongoDBConfig{
				URI:            e.getStr("MONGODB_URI", ""),
				Host:           e.getStr("MONGODB_HOST", "localhost"),
				Port:           e.getInt("MONGODB_PORT", 27017),
				Username:       e.getStr("MONGODB_USERNAME", ""),
				Password:       e.getStr("MONGODB_PASSWORD", ""),
				Database:       e.getStr("MONGODB_DATABASE", "inkwell"),
				AuthSource:     e.getStr("MONGODB_AUTH_SOURCE", ""),
				ReplicaSet:     e.getStr("MONGODB_REPLICA_SET", ""),
				TLS:            e.getBool("MONGODB_TLS", false),
				MaxPoolSize:    e.getInt("MONGODB_MAX_POOL_SIZE", 100),
				MinPoolSize:    e.getInt("MONGODB_MIN_POOL_SIZE", 0),
				ConnectTimeout: e.getDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
				SocketTimeout:  e.getDuration("MONGODB_SOCKET_TIMEOUT", 30*time.Second),
			},
			Postgres: PostgreSQLConfig{
				Host:            e.getStr("POSTGRES_HOST", "localhost"),
				Port:            e.getInt("POSTGRES_PORT", 5432),
				Username:        e.getStr("POSTGRES_USERNAME", ""),
				Password:        e.getStr("POSTGRES_PASSWORD", ""),
				Database:        e.getStr("POSTGRES_DATABASE", "inkwell"),
				Schema:          e.getStr("POSTGRES_SCHEMA", "public"),
				DSN:             e.getStr("POSTGRES_DSN", ""),
				SSLMode:         e.getStr("POSTGRES_SSL_MODE", "disable"),
				MaxOpenConns:    e.getInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    e.getInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: time.Duration(e.getInt("POSTGRES_CONN_MAX_LIFETIME", 300)) * time.Second,
			},
		},
		JWT: JWTConfig{
			PublicKey:  e.getStr("JWT_PUBLIC_KEY", ""),
			PrivateKey: e.getStr("JWT_PRIVATE_KEY", ""),
			AccessTTL:  e.getDuration("JWT_ACCESS_TTL", 24*time.Hour),
			ResetTTL:   e.getDuration("JWT_RESET_TTL", 10*time.Minute),
		},
		Cache: CacheConfig{
			Enabled: e.getBool("CACHE_ENABLED", true),
			Backend: e.getStr("CACHE_BACKEND", "memory"),
			Prefix:  e.getStr("CACHE_PREFIX", "inkwell:"),
			TTL:     e.getDuration("CACHE_TTL", 10*time.Minute),
			Redis: RedisConfig{
				Address:  e.getStr("REDIS_ADDRESS", "localhost:6379"),
				Password: e.getStr("REDIS_PASSWORD", ""),
				DB:       e.getInt("REDIS_DB", 0),
				PoolSize: e.getInt("REDIS_POOL_SIZE", 10),
			},
		},
		Query: QueryConfig{
			DefaultLimit:   e.getInt("QUERY_DEFAULT_LIMIT", 10),
			MaxLimit:       e.getInt("QUERY_MAX_LIMIT", 100),
			StrictCategory: e.getBool("QUERY_STRICT_CATEGORY", false),
		},
		RateLimits: RateLimitsConfig{
			Register: RateLimitConfig{
				Enabled:  e.getBool("RATE_LIMIT_REGISTER_ENABLED", true),
				Max:      e.getInt("RATE_LIMIT_REGISTER_MAX", 10),
				Duration: e.getDuration("RATE_LIMIT_REGISTER_DURATION", 1*time.Hour),
			},
			Login: RateLimitConfig{
				Enabled:  e.getBool("RATE_LIMIT_LOGIN_ENABLED", true),
				Max:      e.getInt("RATE_LIMIT_LOGIN_MAX", 5),
				Duration: e.getDuration("RATE_LIMIT_LOGIN_DURATION", 15*time.Minute),
			},
			PasswordReset: RateLimitConfig{
				Enabled:  e.getBool("RATE_LIMIT_PASSWORD_RESET_ENABLED", true),
				Max:      e.getInt("RATE_LIMIT_PASSWORD_RESET_MAX", 5),
				Duration: e.getDuration("RATE_LIMIT_PASSWORD_RESET_DURATION", 1*time.Hour),
			},
		},
		Email: EmailConfig{
			SMTPHost: e.getStr("SMTP_HOST", ""),
			SMTPPort: e.getInt("SMTP_PORT", 587),
			SMTPUser: e.getStr("SMTP_USER", ""),
			SMTPPass: e.getStr("SMTP_PASS", ""),
			FromName: e.getStr("EMAIL_FROM_NAME", "Inkwell"),
			From:     e.getStr("EMAIL_FROM", "noreply@inkwell.local"),
		},
		App: AppConfig{
			Name:                e.getStr("APP_NAME", "Inkwell"),
			ClientURL:           strings.TrimRight(e.getStr("CLIENT_URL", "http://localhost:3000"), "/"),
			MonthlyPrice:        e.getFloat("SUBSCRIPTION_MONTHLY_PRICE", 9.99),
			AnnualPrice:         e.getFloat("SUBSCRIPTION_ANNUAL_PRICE", 99.99),
			DefaultCurrency:     e.getStr("SUBSCRIPTION_CURRENCY", "USD"),
			MonthlySubscription: e.getDuration("SUBSCRIPTION_MONTHLY_DURATION", 30*24*time.Hour),
			AnnualSubscription:  e.getDuration("SUBSCRIPTION_ANNUAL_DURATION", 365*24*time.Hour),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for required fields
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.JWT.PublicKey) == "" {
		errors = append(errors, "JWT_PUBLIC_KEY is required")
	}
	if strings.TrimSpace(c.JWT.PrivateKey) == "" {
		errors = append(errors, "JWT_PRIVATE_KEY is required")
	}

	validDbTypes := []string{"mongodb", "postgresql", "memory"}
	if !contains(validDbTypes, c.Database.Type) {
		errors = append(errors, fmt.Sprintf("DB_TYPE must be one of: %s", strings.Join(validDbTypes, ", ")))
	}

	validCacheBackends := []string{"memory", "redis"}
	if c.Cache.Enabled && !contains(validCacheBackends, c.Cache.Backend) {
		errors = append(errors, fmt.Sprintf("CACHE_BACKEND must be one of: %s", strings.Join(validCacheBackends, ", ")))
	}

	if c.Email.SMTPHost != "" && strings.TrimSpace(c.Email.From) == "" {
		errors = append(errors, "EMAIL_FROM is required when SMTP_HOST is set")
	}

	if c.Query.DefaultLimit <= 0 {
		errors = append(errors, "QUERY_DEFAULT_LIMIT must be positive")
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		errors = append(errors, "QUERY_MAX_LIMIT must not be lower than QUERY_DEFAULT_LIMIT")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// env reads typed values, falling back to the default when a value is
// missing or does not parse.
type env struct {
	lookup lookupFunc
}

func (e env) getStr(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (e env) getInt(key string, defaultValue int) int {
	if value, ok := e.lookup(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) getFloat(key string, defaultValue float64) float64 {
	if value, ok := e.lookup(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (e env) getBool(key string, defaultValue bool) bool {
	if value, ok := e.lookup(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (e env) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := e.lookup(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
