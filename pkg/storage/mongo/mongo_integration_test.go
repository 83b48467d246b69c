//go:build integration

package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/recipes"
	"github.com/platinummonkey/larder/pkg/storage"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	provider.Close()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Skipf("Failed to start MongoDB container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.MongoURI = uri
	cfg.MongoConnectRetries = 2

	client, err := Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("larder_test")
	require.NoError(t, EnsureIndexes(ctx, db))
	require.NoError(t, HealthCheck(client)(ctx))
	return db
}

func TestMongoIntegration(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		users := NewUserStore(db, nil)

		alice := &auth.Identity{Email: "alice@example.com", PasswordHash: "h1", Role: auth.RoleUser}
		require.NoError(t, users.CreateUser(ctx, alice))
		require.Len(t, alice.ID, 24)

		err := users.CreateUser(ctx, &auth.Identity{Email: "alice@example.com", PasswordHash: "h2"})
		assert.ErrorIs(t, err, storage.ErrDuplicate)

		got, err := users.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "h1", got.PasswordHash)

		require.NoError(t, users.UpdatePasswordHash(ctx, alice.ID, "h3"))
		got, err = users.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "h3", got.PasswordHash)

		_, err = users.GetUserByID(ctx, "000000000000000000000000")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = users.GetUserByID(ctx, "bogus")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("revocations", func(t *testing.T) {
		store := NewRevocationStore(db, nil)

		require.NoError(t, store.Revoke(ctx, "tok", time.Now().Add(time.Hour)))
		require.NoError(t, store.Revoke(ctx, "tok", time.Now().Add(2*time.Hour)))
		require.NoError(t, store.Revoke(ctx, "stale", time.Now().Add(-time.Hour)))

		revoked, err := store.IsRevoked(ctx, "tok")
		require.NoError(t, err)
		assert.True(t, revoked)

		n, err := db.Collection(RevokedTokensCollection).CountDocuments(ctx, map[string]string{"token": "tok"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		purged, err := store.PurgeExpired(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)
	})

	t.Run("recipes", func(t *testing.T) {
		store := NewRecipeStore(db, nil)
		owner := "65f000000000000000000001"

		r := &recipes.Recipe{
			Title:       "Sundae",
			Description: "Cold",
			Ingredients: []string{"ice cream"},
			Price:       12,
			Category:    recipes.CategoryIceCream,
			OwnerID:     owner,
			CreatedAt:   time.Now().UTC(),
		}
		require.NoError(t, store.CreateRecipe(ctx, r))

		got, err := store.GetRecipe(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, owner, got.OwnerID)

		list, err := store.ListRecipes(ctx, recipes.Filter{OwnerID: owner, Price: recipes.PriceMedium, Search: "sun"})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		got.Title = "Banana split"
		require.NoError(t, store.UpdateRecipe(ctx, got))
		require.NoError(t, store.DeleteRecipe(ctx, r.ID))
		assert.ErrorIs(t, store.DeleteRecipe(ctx, r.ID), storage.ErrNotFound)
	})
}
