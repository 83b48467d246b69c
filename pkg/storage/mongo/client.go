package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
)

// Collection names
const (
	UsersCollection         = "users"
	RevokedTokensCollection = "revoked_tokens"
	RecipesCollection       = "recipes"
)

const backendName = storage.BackendMongo

// Connect opens a client and pings the primary, retrying up to
// config.MongoConnectRetries extra times
func Connect(ctx context.Context, config storage.Config) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(config.MongoURI)
	if config.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(config.MongoMaxPoolSize)
	}
	if config.MongoTimeout > 0 {
		opts.SetTimeout(config.MongoTimeout)
		opts.SetConnectTimeout(config.MongoTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	var pingErr error
	for attempt := 0; attempt <= config.MongoConnectRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				_ = client.Disconnect(context.Background())
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr = client.Ping(pingCtx, readpref.Primary())
		cancel()
		if pingErr == nil {
			return client, nil
		}
		observability.FromContext(ctx).WithError(pingErr).Warnf("mongo ping attempt %d failed", attempt+1)
	}

	_ = client.Disconnect(context.Background())
	return nil, fmt.Errorf("failed to connect to mongo: %w", pingErr)
}

// EnsureIndexes creates the unique, TTL and listing indexes the stores rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		RevokedTokensCollection: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		RecipesCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// HealthCheck pings the primary
func HealthCheck(client *mongo.Client) observability.CheckFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}

// objectID parses a hex id; malformed ids cannot exist so they map to ErrNotFound
func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, storage.ErrNotFound
	}
	return oid, nil
}

// notFound maps the driver's no-documents error to storage.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return err
}

// observe records one store round trip; a miss is not an error
func observe(metrics *observability.Metrics, op string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	metrics.RecordStorageOperation(op, backendName, time.Since(start), err)
}
