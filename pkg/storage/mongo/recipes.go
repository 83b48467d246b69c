package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/recipes"
	"github.com/platinummonkey/larder/pkg/storage"
)

type recipeDoc struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	OwnerID        bson.ObjectID `bson:"userId"`
	recipes.Recipe `bson:",inline"`
}

func (d *recipeDoc) recipe() *recipes.Recipe {
	r := d.Recipe
	r.ID = d.ID.Hex()
	r.OwnerID = d.OwnerID.Hex()
	return &r
}

// RecipeStore persists recipes in the recipes collection
type RecipeStore struct {
	coll    *mongo.Collection
	metrics *observability.Metrics
}

// NewRecipeStore creates a recipe store. metrics may be nil.
func NewRecipeStore(db *mongo.Database, metrics *observability.Metrics) *RecipeStore {
	return &RecipeStore{coll: db.Collection(RecipesCollection), metrics: metrics}
}

// CreateRecipe inserts recipe and assigns its ID
func (s *RecipeStore) CreateRecipe(ctx context.Context, recipe *recipes.Recipe) (err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "create_recipe", start, err) }()

	owner, err := bson.ObjectIDFromHex(recipe.OwnerID)
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", recipe.OwnerID, err)
	}

	doc := recipeDoc{ID: bson.NewObjectID(), OwnerID: owner, Recipe: *recipe}
	if _, err = s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	recipe.ID = doc.ID.Hex()
	return nil
}

// GetRecipe returns storage.ErrNotFound for unknown or malformed ids
func (s *RecipeStore) GetRecipe(ctx context.Context, id string) (_ *recipes.Recipe, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "get_recipe", start, err) }()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc recipeDoc
	if err = s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if err = notFound(err); err == storage.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	return doc.recipe(), nil
}

// ListRecipes pushes the filter down to the server
func (s *RecipeStore) ListRecipes(ctx context.Context, filter recipes.Filter) (_ []*recipes.Recipe, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "list_recipes", start, err) }()

	query, ok := buildFilter(filter)
	if !ok {
		return []*recipes.Recipe{}, nil
	}

	cursor, err := s.coll.Find(ctx, query, options.Find().SetSort(sortFor(filter.Sort)))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	var docs []recipeDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}

	out := make([]*recipes.Recipe, len(docs))
	for i := range docs {
		out[i] = docs[i].recipe()
	}
	return out, nil
}

// UpdateRecipe replaces the mutable fields of a recipe
func (s *RecipeStore) UpdateRecipe(ctx context.Context, recipe *recipes.Recipe) (err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "update_recipe", start, err) }()

	oid, err := objectID(recipe.ID)
	if err != nil {
		return err
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "title", Value: recipe.Title},
			{Key: "description", Value: recipe.Description},
			{Key: "ingredients", Value: recipe.Ingredients},
			{Key: "price", Value: recipe.Price},
			{Key: "imageUrl", Value: recipe.ImageURL},
			{Key: "category", Value: recipe.Category},
			{Key: "updatedAt", Value: recipe.UpdatedAt},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteRecipe removes a recipe
func (s *RecipeStore) DeleteRecipe(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "delete_recipe", start, err) }()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// buildFilter translates a listing filter to a query document. ok is false
// when the filter cannot match anything (a malformed owner id).
func buildFilter(f recipes.Filter) (query bson.D, ok bool) {
	query = bson.D{}

	if f.OwnerID != "" {
		owner, err := bson.ObjectIDFromHex(f.OwnerID)
		if err != nil {
			return nil, false
		}
		query = append(query, bson.E{Key: "userId", Value: owner})
	}

	if f.Category != "" {
		query = append(query, bson.E{Key: "category", Value: f.Category})
	}

	switch f.Price {
	case recipes.PriceLow:
		query = append(query, bson.E{Key: "price", Value: bson.D{{Key: "$lt", Value: recipes.LowPriceCeiling}}})
	case recipes.PriceMedium:
		query = append(query, bson.E{Key: "price", Value: bson.D{
			{Key: "$gte", Value: recipes.LowPriceCeiling},
			{Key: "$lte", Value: recipes.HighPriceFloor},
		}})
	case recipes.PriceHigh:
		query = append(query, bson.E{Key: "price", Value: bson.D{{Key: "$gt", Value: recipes.HighPriceFloor}}})
	}

	if f.Search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
		}})
	}

	return query, true
}

// sortFor returns the sort document for an order; ties break on _id
func sortFor(order recipes.SortOrder) bson.D {
	switch order {
	case recipes.SortOldest:
		return bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	case recipes.SortPriceLow:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case recipes.SortPriceHigh:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	}
}
