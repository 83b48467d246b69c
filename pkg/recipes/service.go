package recipes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/platinummonkey/larder/pkg/audit"
	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/validation"
)

// ValidationSummary heads every recipe validation error
const ValidationSummary = "Validation failed"

var inputMessages = validation.Messages{
	"title.required":       "Title is required",
	"description.required": "Description is required",
	"ingredients.required": "Ingredients are required",
	"ingredients.min":      "Ingredients are required",
	"price.required":       "Price is required",
	"price.gte":            "Price must not be negative",
	"imageUrl.url":         "Image URL is not valid",
	"category.category":    "Category must be one of: sweet, main, ice cream, dessert",
}

// Deps are the collaborators of a Service
type Deps struct {
	Store   Store
	Audit   *audit.Recorder
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Service implements recipe CRUD with ownership enforcement on mutation
type Service struct {
	store    Store
	audit    *audit.Recorder
	metrics  *observability.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a recipe service
func NewService(deps Deps) *Service {
	v := validation.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:    deps.Store,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		validate: v,
		now:      now,
	}
}

// Create validates in and stores a recipe owned by ownerID
func (s *Service) Create(ctx context.Context, ownerID string, in Input) (*Recipe, error) {
	if ownerID == "" {
		return nil, auth.ErrForbidden
	}

	in = in.normalized()
	if err := validation.Struct(ctx, s.validate, &in, ValidationSummary, inputMessages); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	recipe := &Recipe{
		Title:       in.Title,
		Description: in.Description,
		Ingredients: in.Ingredients,
		Price:       *in.Price,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.metrics.RecordRecipeMutation("create")
	s.audit.DataMutation(ctx, audit.EventTypeDataRecipeCreate, ownerID, audit.ResourceTypeRecipe, recipe.ID, "recipe created")
	return recipe, nil
}

// Get returns a recipe by id; reads are public
func (s *Service) Get(ctx context.Context, id string) (*Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %s: %w", id, err)
	}
	return recipe, nil
}

// List returns recipes matching filter
func (s *Service) List(ctx context.Context, filter Filter) ([]*Recipe, error) {
	list, err := s.store.ListRecipes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return list, nil
}

// ListByOwner returns ownerID's recipes, newest first
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Recipe, error) {
	return s.List(ctx, Filter{OwnerID: ownerID, Sort: SortNewest})
}

// Update applies patch to a recipe owned by callerID
func (s *Service) Update(ctx context.Context, id, callerID string, patch Patch) (*Recipe, error) {
	recipe, err := s.authorize(ctx, id, callerID, "update")
	if err != nil {
		return nil, err
	}

	patch.applyTo(recipe)
	in := inputFrom(recipe)
	if err := validation.Struct(ctx, s.validate, &in, ValidationSummary, inputMessages); err != nil {
		return nil, err
	}
	recipe.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to update recipe %s: %w", id, err)
	}

	s.metrics.RecordRecipeMutation("update")
	s.audit.DataMutation(ctx, audit.EventTypeDataRecipeUpdate, callerID, audit.ResourceTypeRecipe, id, "recipe updated")
	return recipe, nil
}

// Delete removes a recipe owned by callerID
func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	if _, err := s.authorize(ctx, id, callerID, "delete"); err != nil {
		return err
	}

	if err := s.store.DeleteRecipe(ctx, id); err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}

	s.metrics.RecordRecipeMutation("delete")
	s.audit.DataMutation(ctx, audit.EventTypeDataRecipeDelete, callerID, audit.ResourceTypeRecipe, id, "recipe deleted")
	return nil
}

// authorize loads a recipe and asserts callerID owns it
func (s *Service) authorize(ctx context.Context, id, callerID, action string) (*Recipe, error) {
	recipe, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := auth.AssertOwner(recipe.OwnerID, callerID); err != nil {
		s.audit.Authorization(ctx, audit.EventTypeAuthzAccessDenied, audit.ResourceTypeRecipe, id,
			audit.EventStatusDenied, "not the owner: "+action)
		return nil, fmt.Errorf("%s recipe %s: %w", action, id, err)
	}
	return recipe, nil
}

func (in Input) normalized() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Ingredients = trimIngredients(in.Ingredients)
	if in.Category == "" {
		in.Category = DefaultCategory
	}
	return in
}

func trimIngredients(list []string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p Patch) applyTo(r *Recipe) {
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if p.Ingredients != nil {
		r.Ingredients = trimIngredients(p.Ingredients)
	}
	if p.Price != nil {
		r.Price = *p.Price
	}
	if p.ImageURL != nil {
		r.ImageURL = strings.TrimSpace(*p.ImageURL)
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
}

func inputFrom(r *Recipe) Input {
	price := r.Price
	return Input{
		Title:       r.Title,
		Description: r.Description,
		Ingredients: r.Ingredients,
		Price:       &price,
		ImageURL:    r.ImageURL,
		Category:    r.Category,
	}
}
