package recipes

import (
	"context"
	"time"
)

// Category groups recipes for browsing
type Category string

const (
	CategorySweet    Category = "sweet"
	CategoryMain     Category = "main"
	CategoryIceCream Category = "ice cream"
	CategoryDessert  Category = "dessert"
)

// DefaultCategory is applied when none is given
const DefaultCategory = CategoryMain

// Categories lists every valid category
var Categories = []Category{CategorySweet, CategoryMain, CategoryIceCream, CategoryDessert}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Recipe is a user-owned recipe
type Recipe struct {
	ID          string    `json:"id" bson:"-"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Ingredients []string  `json:"ingredients" bson:"ingredients"`
	Price       float64   `json:"price" bson:"price"`
	ImageURL    string    `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Category    Category  `json:"category" bson:"category"`
	OwnerID     string    `json:"userId" bson:"-"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Input is the body of a create request
type Input struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Ingredients []string `json:"ingredients" validate:"required,min=1,dive,required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	ImageURL    string   `json:"imageUrl" validate:"omitempty,url"`
	Category    Category `json:"category" validate:"omitempty,category"`
}

// Patch is the body of an update request; nil fields are left unchanged
type Patch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Ingredients []string  `json:"ingredients"`
	Price       *float64  `json:"price"`
	ImageURL    *string   `json:"imageUrl"`
	Category    *Category `json:"category"`
}

// Store persists recipes
type Store interface {
	// CreateRecipe assigns recipe.ID
	CreateRecipe(ctx context.Context, recipe *Recipe) error
	GetRecipe(ctx context.Context, id string) (*Recipe, error)
	ListRecipes(ctx context.Context, filter Filter) ([]*Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *Recipe) error
	DeleteRecipe(ctx context.Context, id string) error
}
