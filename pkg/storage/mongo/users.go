package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
)

type userDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"passwordHash"`
	Role         auth.Role     `bson:"role"`
	CreatedAt    time.Time     `bson:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt"`
}

func (d *userDoc) identity() *auth.Identity {
	return &auth.Identity{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserStore is the credential store over the users collection
type UserStore struct {
	coll    *mongo.Collection
	metrics *observability.Metrics
}

// NewUserStore creates a user store. metrics may be nil.
func NewUserStore(db *mongo.Database, metrics *observability.Metrics) *UserStore {
	return &UserStore{coll: db.Collection(UsersCollection), metrics: metrics}
}

// CreateUser inserts user and assigns its ID. The unique email index turns a
// concurrent duplicate into storage.ErrDuplicate.
func (s *UserStore) CreateUser(ctx context.Context, user *auth.Identity) (err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "create_user", start, err) }()

	now := time.Now().UTC()
	doc := userDoc{
		ID:           bson.NewObjectID(),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err = s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByEmail looks up an identity by its email
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	return s.findOne(ctx, "get_user_by_email", bson.D{{Key: "email", Value: email}})
}

// GetUserByID looks up an identity by its hex id
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*auth.Identity, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, "get_user_by_id", bson.D{{Key: "_id", Value: oid}})
}

func (s *UserStore) findOne(ctx context.Context, op string, filter bson.D) (_ *auth.Identity, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, op, start, err) }()

	var doc userDoc
	if err = s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err = notFound(err); err == storage.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.identity(), nil
}

// UpdatePasswordHash replaces the stored hash
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) (err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "update_password", start, err) }()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "passwordHash", Value: passwordHash},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
