package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devSecret = "dev-secret-0123456789"

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvTyped tests the typed helpers, including malformed values
func TestGetEnvTyped(t *testing.T) {
	t.Setenv("TEST_BOOL", "1")
	t.Setenv("TEST_BOOL_NO", "nope")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "forty")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_DURATION_BAD", "soon")
	t.Setenv("TEST_FLOAT", "0.25")
	t.Setenv("TEST_LIST", " http://a.test, ,http://b.test ")

	assert.True(t, getEnvBool("TEST_BOOL", false))
	assert.False(t, getEnvBool("TEST_BOOL_NO", true))
	assert.True(t, getEnvBool("TEST_BOOL_UNSET", true))
	assert.Equal(t, 42, getEnvInt("TEST_INT", 0))
	assert.Equal(t, 7, getEnvInt("TEST_INT_BAD", 7))
	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", 0))
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION_BAD", time.Minute))
	assert.Equal(t, 0.25, getEnvFloat("TEST_FLOAT", 1))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, getEnvList("TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvList("TEST_LIST_UNSET", []string{"x"}))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("LARDER_JWT_SECRET", devSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, storage.BackendMemory, cfg.Storage.Type)
	assert.Equal(t, 5, cfg.RateLimit.LoginLimit)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.LoginWindow)
	assert.Equal(t, 100, cfg.RateLimit.APILimit)
	assert.Empty(t, cfg.Janitor.Schedule)
	assert.Equal(t, observability.InfoLevel, cfg.LogLevel())
	assert.False(t, cfg.IsProduction())

	cookie := cfg.Cookie()
	assert.Equal(t, "token", cookie.Name)
	assert.False(t, cookie.Secure)
	assert.Equal(t, time.Hour, cookie.MaxAge)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("LARDER_ENV", "production")
	t.Setenv("LARDER_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("LARDER_PORT", "8080")
	t.Setenv("LARDER_STORAGE_TYPE", "mongo")
	t.Setenv("LARDER_MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("LARDER_MONGO_MAX_POOL_SIZE", "20")
	t.Setenv("LARDER_REDIS_URL", "redis://redis:6379")
	t.Setenv("LARDER_CORS_ORIGINS", "https://larder.example")
	t.Setenv("LARDER_TRUST_PROXY", "true")
	t.Setenv("LARDER_PURGE_SCHEDULE", "@every 15m")
	t.Setenv("LARDER_LOG_LEVEL", "debug")
	t.Setenv("LARDER_OTEL_ENABLED", "true")
	t.Setenv("LARDER_OTEL_SAMPLE_RATIO", "0.1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Cookie().Secure)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, []string{"https://larder.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, storage.BackendMongo, cfg.Storage.Type)
	assert.Equal(t, uint64(20), cfg.Storage.MongoMaxPoolSize)
	assert.Equal(t, "redis://redis:6379", cfg.Storage.RedisURL)
	assert.Equal(t, "@every 15m", cfg.Janitor.Schedule)
	assert.Equal(t, observability.DebugLevel, cfg.LogLevel())

	otel := cfg.OTel()
	assert.True(t, otel.Enabled)
	assert.Equal(t, 0.1, otel.SampleRatio)
	assert.Equal(t, "larder", otel.ServiceName)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "larder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: development
server:
  port: "7000"
  read_timeout: 5s
  cors_origins: ["http://app.test"]
auth:
  jwt_secret: file-secret-0123456789
  bcrypt_cost: 12
storage:
  type: memory
  cache_size: 500
rate_limit:
  enabled: true
  login_limit: 3
  login_window: 10m
  api_limit: 50
  api_window: 15m
janitor:
  schedule: "*/5 * * * *"
`), 0o600))

	t.Setenv("LARDER_CONFIG_FILE", path)
	t.Setenv("LARDER_PORT", "7001")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7001", cfg.Server.Port, "env overrides file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, []string{"http://app.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "file-secret-0123456789", cfg.Auth.JWTSecret)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 500, cfg.Storage.CacheSize)
	assert.Equal(t, 3, cfg.RateLimit.LoginLimit)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.LoginWindow)
	assert.Equal(t, "*/5 * * * *", cfg.Janitor.Schedule)
}

func TestLoadConfig_FileErrors(t *testing.T) {
	t.Setenv("LARDER_JWT_SECRET", devSecret)

	t.Setenv("LARDER_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not, a, map"), 0o600))
	t.Setenv("LARDER_CONFIG_FILE", path)
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "LARDER_JWT_SECRET is required"},
		{name: "short secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: "at least 16 bytes"},
		{
			name: "production needs a longer secret",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.Auth.JWTSecret = devSecret
			},
			wantErr: "at least 32 bytes in production",
		},
		{name: "same ports", mutate: func(c *Config) { c.Server.HealthPort = c.Server.Port }, wantErr: "must be different"},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server port is required"},
		{name: "zero ttl", mutate: func(c *Config) { c.Auth.TokenTTL = 0 }, wantErr: "token ttl"},
		{name: "bcrypt cost", mutate: func(c *Config) { c.Auth.BcryptCost = 2 }, wantErr: "bcrypt cost"},
		{name: "bad storage", mutate: func(c *Config) { c.Storage.Type = "s3" }, wantErr: "invalid storage type"},
		{
			name: "mongo without uri",
			mutate: func(c *Config) {
				c.Storage.Type = storage.BackendMongo
				c.Storage.MongoURI = ""
			},
			wantErr: "mongo URI is required",
		},
		{name: "zero cache", mutate: func(c *Config) { c.Storage.CacheSize = 0 }, wantErr: "cache size"},
		{name: "zero limit", mutate: func(c *Config) { c.RateLimit.LoginLimit = 0 }, wantErr: "rate limits must be positive"},
		{
			name: "limits ignored when disabled",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.APIWindow = 0
			},
		},
		{name: "bad schedule", mutate: func(c *Config) { c.Janitor.Schedule = "every now and then" }, wantErr: "invalid purge schedule"},
		{
			name: "otel without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.JWTSecret = devSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
