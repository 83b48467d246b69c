package storage

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/larder/pkg/auth"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("duplicate key")
)

// UserReader looks up identities
type UserReader interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.Identity, error)
	GetUserByID(ctx context.Context, id string) (*auth.Identity, error)
}

// UserWriter creates and updates identities
type UserWriter interface {
	// CreateUser assigns user.ID. Returns ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, user *auth.Identity) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// UserStore is the credential store
type UserStore interface {
	UserReader
	UserWriter
}

// RevokedToken is an entry in the revocation list
type RevokedToken struct {
	Token     string    `json:"token" bson:"token"`
	ExpiresAt time.Time `json:"expires_at" bson:"expiresAt"`
	RevokedAt time.Time `json:"revoked_at" bson:"revokedAt"`
}

// RevocationStore records tokens invalidated before their expiry
type RevocationStore interface {
	// Revoke is idempotent; revoking the same token twice is not an error.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// PurgeExpired deletes entries whose token expired before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// HealthChecker is implemented by backends that can report liveness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Backend names
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config for storage backends
type Config struct {
	Type string `yaml:"type"` // "memory" or "mongo"

	// MongoDB config
	MongoURI            string        `yaml:"mongo_uri"`
	MongoDatabase       string        `yaml:"mongo_database"`
	MongoTimeout        time.Duration `yaml:"mongo_timeout"`
	MongoMaxPoolSize    uint64        `yaml:"mongo_max_pool_size"`
	MongoConnectRetries int           `yaml:"mongo_connect_retries"`

	// Redis config, revocation list and rate limits
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`

	// Revocation cache config
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheSize    int           `yaml:"cache_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             BackendMemory,
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "larder",
		MongoTimeout:     10 * time.Second,
		MongoMaxPoolSize: 50,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheEnabled:     true,
		CacheSize:        10000,
		CacheTTL:         auth.DefaultTokenTTL,
	}
}
