package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/recipe"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// CreateRecipeInput is the request body for POST /capsules/:id/recipes.
type CreateRecipeInput struct {
	Name   string         `json:"name" validate:"required"`
	Params map[string]any `json:"params" validate:"required"`
}

// UpdateRecipeInput is the request body for PUT /recipes/:id.
type UpdateRecipeInput struct {
	Name   string         `json:"name,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// RecipeHandler serves Capsule Recipes' routes.
type RecipeHandler struct {
	Recipes *recipe.Service
}

// Create handles POST /capsules/:id/recipes.
func (h *RecipeHandler) Create(p any, c *fiber.Ctx) error {
	in := p.(*CreateRecipeInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	r, err := h.Recipes.Create(c.UserContext(), c.Params("id"), userID, in.Name, in.Params)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(r)
}

// Update handles PUT /recipes/:id.
func (h *RecipeHandler) Update(p any, c *fiber.Ctx) error {
	in := p.(*UpdateRecipeInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	r, err := h.Recipes.Update(c.UserContext(), c.Params("id"), userID, isModeratorFromClaims(c), in.Name, in.Params)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(r)
}

// ListForCapsule handles GET /capsules/:id/recipes.
func (h *RecipeHandler) ListForCapsule(c *fiber.Ctx) error {
	recipes, err := h.Recipes.ListForCapsule(c.UserContext(), c.Params("id"))
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"recipes": recipes})
}
