package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/platinummonkey/larder/pkg/recipes"
	"github.com/platinummonkey/larder/pkg/storage"
)

// RecipeStore is an in-memory recipes.Store
type RecipeStore struct {
	mu      sync.RWMutex
	recipes map[string]*recipes.Recipe
}

// NewRecipeStore creates an empty recipe store
func NewRecipeStore() *RecipeStore {
	return &RecipeStore{recipes: make(map[string]*recipes.Recipe)}
}

func clone(r *recipes.Recipe) *recipes.Recipe {
	c := *r
	c.Ingredients = append([]string(nil), r.Ingredients...)
	return &c
}

// CreateRecipe stores a copy of recipe and assigns its ID
func (s *RecipeStore) CreateRecipe(ctx context.Context, recipe *recipes.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipe.ID = uuid.NewString()
	s.recipes[recipe.ID] = clone(recipe)
	return nil
}

// GetRecipe returns storage.ErrNotFound for unknown ids
func (s *RecipeStore) GetRecipe(ctx context.Context, id string) (*recipes.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(r), nil
}

// ListRecipes returns copies of every recipe matching filter
func (s *RecipeStore) ListRecipes(ctx context.Context, filter recipes.Filter) ([]*recipes.Recipe, error) {
	s.mu.RLock()
	list := make([]*recipes.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		list = append(list, clone(r))
	}
	s.mu.RUnlock()

	return filter.Apply(list), nil
}

// UpdateRecipe replaces a stored recipe
func (s *RecipeStore) UpdateRecipe(ctx context.Context, recipe *recipes.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[recipe.ID]; !ok {
		return storage.ErrNotFound
	}
	s.recipes[recipe.ID] = clone(recipe)
	return nil
}

// DeleteRecipe removes a recipe
func (s *RecipeStore) DeleteRecipe(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.recipes, id)
	return nil
}
