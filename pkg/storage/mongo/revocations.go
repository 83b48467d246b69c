package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/platinummonkey/larder/pkg/observability"
)

// RevocationStore keeps revoked tokens in the revoked_tokens collection.
// The TTL index on expiresAt lets the server drop dead entries.
type RevocationStore struct {
	coll    *mongo.Collection
	metrics *observability.Metrics
}

// NewRevocationStore creates a revocation store. metrics may be nil.
func NewRevocationStore(db *mongo.Database, metrics *observability.Metrics) *RevocationStore {
	return &RevocationStore{coll: db.Collection(RevokedTokensCollection), metrics: metrics}
}

// Revoke upserts the token with $setOnInsert so a second revoke leaves the
// first entry unchanged
func (s *RevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) (err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "revoke_token", start, err) }()

	_, err = s.coll.UpdateOne(ctx,
		bson.D{{Key: "token", Value: token}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{
			{Key: "expiresAt", Value: expiresAt.UTC()},
			{Key: "revokedAt", Value: time.Now().UTC()},
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		// Two concurrent upserts can race on the unique index; the token is revoked either way
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether an entry exists for token
func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (_ bool, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "is_revoked", start, err) }()

	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "token", Value: token}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired deletes entries the TTL monitor has not yet removed
func (s *RevocationStore) PurgeExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "purge_revoked", start, err) }()

	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lt", Value: now.UTC()}}}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	return res.DeletedCount, nil
}
