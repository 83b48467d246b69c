package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// EnvProduction enables secure cookies and the stricter secret check
const EnvProduction = "production"

// ProductionMinSecretLength is the shortest JWT secret accepted in production
const ProductionMinSecretLength = 32

// Config holds all application configuration
type Config struct {
	// Environment is "development" or "production"
	Environment string `yaml:"environment"`

	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Session configuration
	Auth AuthConfig `yaml:"auth"`

	// Storage configuration
	Storage storage.Config `yaml:"storage"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Audit AuditConfig `yaml:"audit"`

	Janitor JanitorConfig `yaml:"janitor"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`

	// Honor X-Forwarded-For / X-Real-IP for client addresses
	TrustProxy  bool     `yaml:"trust_proxy"`
	CORSOrigins []string `yaml:"cors_origins"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// AuthConfig holds session token and password hashing settings
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
	CookieName string        `yaml:"cookie_name"`
}

// RateLimitConfig holds the login and API limiter settings
type RateLimitConfig struct {
	Enabled     bool          `yaml:"enabled"`
	LoginLimit  int           `yaml:"login_limit"`
	LoginWindow time.Duration `yaml:"login_window"`
	APILimit    int           `yaml:"api_limit"`
	APIWindow   time.Duration `yaml:"api_window"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	// PostgresURL enables the database sink and the admin audit API
	PostgresURL string `yaml:"postgres_url"`
	Async       bool   `yaml:"async"`
	// Retention is how long database events are kept; zero keeps them forever
	Retention time.Duration `yaml:"retention"`
}

// JanitorConfig holds the purge schedule
type JanitorConfig struct {
	// Schedule is a cron spec ("@every 15m", "*/5 * * * *"); empty disables
	// the in-process purge
	Schedule string `yaml:"schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Default returns the development configuration
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "5000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			CORSOrigins:     []string{"http://localhost:5173"},
			HealthPort:      "9090",
		},
		Auth: AuthConfig{
			TokenTTL:   auth.DefaultTokenTTL,
			BcryptCost: auth.DefaultBcryptCost,
			CookieName: auth.DefaultCookieName,
		},
		Storage: storage.DefaultConfig(),
		RateLimit: RateLimitConfig{
			Enabled:     true,
			LoginLimit:  5,
			LoginWindow: 15 * time.Minute,
			APILimit:    100,
			APIWindow:   15 * time.Minute,
		},
		Audit: AuditConfig{
			Async:     true,
			Retention: 90 * 24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "larder",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
	}
}

// LoadConfig loads defaults, then the YAML file named by LARDER_CONFIG_FILE,
// then environment variables, and validates the result
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv("LARDER_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("LARDER_ENV", c.Environment)

	c.Server.Host = getEnv("LARDER_HOST", c.Server.Host)
	c.Server.Port = getEnv("LARDER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("LARDER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("LARDER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("LARDER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("LARDER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.MaxBodyBytes = getEnvInt64("LARDER_MAX_BODY_BYTES", c.Server.MaxBodyBytes)
	c.Server.TrustProxy = getEnvBool("LARDER_TRUST_PROXY", c.Server.TrustProxy)
	c.Server.CORSOrigins = getEnvList("LARDER_CORS_ORIGINS", c.Server.CORSOrigins)
	c.Server.HealthPort = getEnv("LARDER_HEALTH_PORT", c.Server.HealthPort)

	c.Auth.JWTSecret = getEnv("LARDER_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getEnvDuration("LARDER_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.BcryptCost = getEnvInt("LARDER_BCRYPT_COST", c.Auth.BcryptCost)
	c.Auth.CookieName = getEnv("LARDER_COOKIE_NAME", c.Auth.CookieName)

	c.Storage.Type = getEnv("LARDER_STORAGE_TYPE", c.Storage.Type)
	c.Storage.MongoURI = getEnv("LARDER_MONGO_URI", c.Storage.MongoURI)
	c.Storage.MongoDatabase = getEnv("LARDER_MONGO_DATABASE", c.Storage.MongoDatabase)
	c.Storage.MongoTimeout = getEnvDuration("LARDER_MONGO_TIMEOUT", c.Storage.MongoTimeout)
	if poolSize := getEnvInt("LARDER_MONGO_MAX_POOL_SIZE", 0); poolSize > 0 {
		c.Storage.MongoMaxPoolSize = uint64(poolSize)
	}
	c.Storage.MongoConnectRetries = getEnvInt("LARDER_MONGO_CONNECT_RETRIES", c.Storage.MongoConnectRetries)

	// Redis config
	c.Storage.RedisURL = getEnv("LARDER_REDIS_URL", c.Storage.RedisURL)
	c.Storage.RedisPassword = getEnv("LARDER_REDIS_PASSWORD", c.Storage.RedisPassword)
	c.Storage.RedisDB = getEnvInt("LARDER_REDIS_DB", c.Storage.RedisDB)
	c.Storage.RedisMaxRetries = getEnvInt("LARDER_REDIS_MAX_RETRIES", c.Storage.RedisMaxRetries)
	c.Storage.RedisPoolSize = getEnvInt("LARDER_REDIS_POOL_SIZE", c.Storage.RedisPoolSize)

	// Cache config
	c.Storage.CacheEnabled = getEnvBool("LARDER_CACHE_ENABLED", c.Storage.CacheEnabled)
	c.Storage.CacheSize = getEnvInt("LARDER_CACHE_SIZE", c.Storage.CacheSize)
	c.Storage.CacheTTL = getEnvDuration("LARDER_CACHE_TTL", c.Storage.CacheTTL)

	c.RateLimit.Enabled = getEnvBool("LARDER_RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.LoginLimit = getEnvInt("LARDER_LOGIN_RATE_LIMIT", c.RateLimit.LoginLimit)
	c.RateLimit.LoginWindow = getEnvDuration("LARDER_LOGIN_RATE_WINDOW", c.RateLimit.LoginWindow)
	c.RateLimit.APILimit = getEnvInt("LARDER_API_RATE_LIMIT", c.RateLimit.APILimit)
	c.RateLimit.APIWindow = getEnvDuration("LARDER_API_RATE_WINDOW", c.RateLimit.APIWindow)

	c.Audit.PostgresURL = getEnv("LARDER_AUDIT_POSTGRES_URL", c.Audit.PostgresURL)
	c.Audit.Async = getEnvBool("LARDER_AUDIT_ASYNC", c.Audit.Async)
	c.Audit.Retention = getEnvDuration("LARDER_AUDIT_RETENTION", c.Audit.Retention)

	c.Janitor.Schedule = getEnv("LARDER_PURGE_SCHEDULE", c.Janitor.Schedule)

	c.Observability.LogLevel = getEnv("LARDER_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.MetricsEnabled = getEnvBool("LARDER_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("LARDER_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("LARDER_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("LARDER_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("LARDER_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("LARDER_OTEL_INSECURE", c.Observability.OTelInsecure)
	c.Observability.OTelSampleRatio = getEnvFloat("LARDER_OTEL_SAMPLE_RATIO", c.Observability.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate auth config
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("LARDER_JWT_SECRET is required")
	}
	minSecret := auth.MinSecretLength
	if c.IsProduction() {
		minSecret = ProductionMinSecretLength
	}
	if len(c.Auth.JWTSecret) < minSecret {
		return fmt.Errorf("jwt secret must be at least %d bytes in %s", minSecret, c.Environment)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case storage.BackendMemory:
	case storage.BackendMongo:
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("mongo URI is required for mongo storage")
		}
		if c.Storage.MongoDatabase == "" {
			return fmt.Errorf("mongo database is required for mongo storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or mongo)", c.Storage.Type)
	}
	if c.Storage.CacheEnabled && c.Storage.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive when the cache is enabled")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.LoginLimit <= 0 || c.RateLimit.APILimit <= 0 {
			return fmt.Errorf("rate limits must be positive")
		}
		if c.RateLimit.LoginWindow <= 0 || c.RateLimit.APIWindow <= 0 {
			return fmt.Errorf("rate limit windows must be positive")
		}
	}

	if c.Janitor.Schedule != "" {
		if _, err := cron.ParseStandard(c.Janitor.Schedule); err != nil {
			return fmt.Errorf("invalid purge schedule %q: %w", c.Janitor.Schedule, err)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Cookie returns the session cookie settings
func (c *Config) Cookie() auth.CookieConfig {
	return auth.CookieConfig{
		Name:   c.Auth.CookieName,
		Secure: c.IsProduction(),
		MaxAge: c.Auth.TokenTTL,
	}
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLogLevel(c.Observability.LogLevel)
}

// OTel returns the OpenTelemetry settings
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
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
	return out
}
