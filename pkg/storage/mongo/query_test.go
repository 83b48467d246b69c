package mongo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/platinummonkey/larder/pkg/recipes"
	"github.com/platinummonkey/larder/pkg/storage"
)

func keys(d bson.D) []string {
	out := make([]string, len(d))
	for i, e := range d {
		out[i] = e.Key
	}
	return out
}

func TestBuildFilter_Empty(t *testing.T) {
	query, ok := buildFilter(recipes.Filter{})
	require.True(t, ok)
	assert.Empty(t, query)
}

func TestBuildFilter_AllClauses(t *testing.T) {
	owner := bson.NewObjectID()
	query, ok := buildFilter(recipes.Filter{
		OwnerID:  owner.Hex(),
		Category: recipes.CategoryDessert,
		Price:    recipes.PriceMedium,
		Search:   "choc (dark)",
	})
	require.True(t, ok)
	assert.Equal(t, []string{"userId", "category", "price", "$or"}, keys(query))

	assert.Equal(t, owner, query[0].Value)
	assert.Equal(t, bson.D{{Key: "$gte", Value: 10.0}, {Key: "$lte", Value: 25.0}}, query[2].Value)

	or := query[3].Value.(bson.A)
	require.Len(t, or, 2)
	title := or[0].(bson.D)[0].Value.(bson.Regex)
	assert.Equal(t, `choc \(dark\)`, title.Pattern)
	assert.Equal(t, "i", title.Options)
}

func TestBuildFilter_PriceBands(t *testing.T) {
	low, _ := buildFilter(recipes.Filter{Price: recipes.PriceLow})
	assert.Equal(t, bson.D{{Key: "$lt", Value: 10.0}}, low[0].Value)

	high, _ := buildFilter(recipes.Filter{Price: recipes.PriceHigh})
	assert.Equal(t, bson.D{{Key: "$gt", Value: 25.0}}, high[0].Value)
}

func TestBuildFilter_MalformedOwner(t *testing.T) {
	_, ok := buildFilter(recipes.Filter{OwnerID: "not-hex"})
	assert.False(t, ok)
}

func TestSortFor(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}, sortFor(recipes.SortNewest))
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}, sortFor(""))
	assert.Equal(t, "createdAt", sortFor(recipes.SortOldest)[0].Key)
	assert.Equal(t, bson.E{Key: "price", Value: 1}, sortFor(recipes.SortPriceLow)[0])
	assert.Equal(t, bson.E{Key: "price", Value: -1}, sortFor(recipes.SortPriceHigh)[0])
}

func TestObjectID(t *testing.T) {
	oid := bson.NewObjectID()
	got, err := objectID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	_, err = objectID("42")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(mongo.ErrNoDocuments), storage.ErrNotFound)
	other := errors.New("socket closed")
	assert.Equal(t, other, notFound(other))
}

func TestRecipeDocRoundTrip(t *testing.T) {
	doc := recipeDoc{
		ID:      bson.NewObjectID(),
		OwnerID: bson.NewObjectID(),
		Recipe:  recipes.Recipe{Title: "Soup", Category: recipes.CategoryMain, ID: "ignored", OwnerID: "ignored"},
	}

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "Soup", m["title"])
	assert.Equal(t, doc.OwnerID, m["userId"])
	assert.NotContains(t, m, "id")

	var back recipeDoc
	require.NoError(t, bson.Unmarshal(raw, &back))
	r := back.recipe()
	assert.Equal(t, doc.ID.Hex(), r.ID)
	assert.Equal(t, doc.OwnerID.Hex(), r.OwnerID)
}
