package api

import (
	"net/http"

	"github.com/platinummonkey/larder/pkg/httputil"
	"github.com/platinummonkey/larder/pkg/middleware"
	"github.com/platinummonkey/larder/pkg/recipes"
)

var (
	recipeErrors       = errorMessages{notFound: "Recipe not found"}
	recipeUpdateErrors = errorMessages{
		notFound:  "Recipe not found",
		forbidden: "Unauthorized - You can only update your own recipes",
	}
	recipeDeleteErrors = errorMessages{
		notFound:  "Recipe not found",
		forbidden: "Unauthorized - You can only delete your own recipes",
	}
)

// RecipeHandlers handles recipe CRUD
type RecipeHandlers struct {
	recipes *recipes.Service
}

// NewRecipeHandlers creates recipe handlers
func NewRecipeHandlers(svc *recipes.Service) *RecipeHandlers {
	return &RecipeHandlers{recipes: svc}
}

func nonNil(list []*recipes.Recipe) []*recipes.Recipe {
	if list == nil {
		return []*recipes.Recipe{}
	}
	return list
}

// create handles POST /api/recipes
func (h *RecipeHandlers) create(w http.ResponseWriter, r *http.Request) {
	var in recipes.Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	caller := middleware.GetAuthContext(r)
	recipe, err := h.recipes.Create(r.Context(), caller.Identity.ID, in)
	if err != nil {
		writeServiceError(w, r, err, recipeErrors)
		return
	}

	httputil.WriteCreated(w, "Recipe created successfully", httputil.Envelope{"recipe": recipe})
}

// list handles GET /api/recipes?search=&category=&price=&sort=
func (h *RecipeHandlers) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.recipes.List(r.Context(), recipes.ParseFilter(r.URL.Query()))
	if err != nil {
		writeServiceError(w, r, err, recipeErrors)
		return
	}

	httputil.WriteSuccess(w, "Recipes fetched successfully", httputil.Envelope{
		"recipes": nonNil(list),
		"count":   len(list),
	})
}

// mine handles GET /api/recipes/my-recipes
func (h *RecipeHandlers) mine(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetAuthContext(r)
	list, err := h.recipes.ListByOwner(r.Context(), caller.Identity.ID)
	if err != nil {
		writeServiceError(w, r, err, recipeErrors)
		return
	}

	httputil.WriteSuccess(w, "User recipes fetched successfully", httputil.Envelope{
		"recipes": nonNil(list),
		"count":   len(list),
	})
}

// get handles GET /api/recipes/{id}
func (h *RecipeHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	recipe, err := h.recipes.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, recipeErrors)
		return
	}

	httputil.WriteSuccess(w, "Recipe fetched successfully", httputil.Envelope{"recipe": recipe})
}

// update handles PUT /api/recipes/{id}; owner only
func (h *RecipeHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var patch recipes.Patch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}

	caller := middleware.GetAuthContext(r)
	recipe, err := h.recipes.Update(r.Context(), id, caller.Identity.ID, patch)
	if err != nil {
		writeServiceError(w, r, err, recipeUpdateErrors)
		return
	}

	httputil.WriteSuccess(w, "Recipe updated successfully", httputil.Envelope{"recipe": recipe})
}

// delete handles DELETE /api/recipes/{id}; owner only
func (h *RecipeHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	caller := middleware.GetAuthContext(r)
	if err := h.recipes.Delete(r.Context(), id, caller.Identity.ID); err != nil {
		writeServiceError(w, r, err, recipeDeleteErrors)
		return
	}

	httputil.WriteSuccess(w, "Recipe deleted successfully", nil)
}
