// Package recipe implements the I/O side of Capsule Recipes: named
// parameter presets scoped to a capsule and author, backed by the pure
// coercion rules in internal/domain/recipe.
package recipe

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	paramrules "github.com/Braden-sui/Vibecodr-sub002/internal/domain/recipe"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

// Recipe is one named parameter preset.
type Recipe struct {
	ID        string
	CapsuleID string
	AuthorID  string
	Name      string
	Params    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CapsuleLookup resolves a capsule's manifest and owner for authorization
// and param validation.
type CapsuleLookup interface {
	GetCapsule(ctx context.Context, capsuleID string) (ownerID, contentHash string, manifestRaw []byte, found bool, err error)
}

// Store is the persistence contract Recipes drives.
type Store interface {
	CountForCapsule(ctx context.Context, capsuleID string) (int64, error)
	Insert(ctx context.Context, r Recipe) error
	Get(ctx context.Context, recipeID string) (Recipe, bool, error)
	Update(ctx context.Context, r Recipe) error
	ListForCapsule(ctx context.Context, capsuleID string) ([]Recipe, error)
}

// IDGenerator produces a new unique id.
type IDGenerator func() string

// Service implements create/update/list for capsule recipes.
type Service struct {
	store    Store
	capsules CapsuleLookup
	newID    IDGenerator
	now      func() time.Time
}

// New builds a Service. now defaults to time.Now.
func New(store Store, capsules CapsuleLookup, newID IDGenerator, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{store: store, capsules: capsules, newID: newID, now: now}
}

func (s *Service) declaredParams(ctx context.Context, capsuleID string) ([]capsule.ParamSpec, string, error) {
	ownerID, _, manifestRaw, found, err := s.capsules.GetCapsule(ctx, capsuleID)
	if err != nil {
		return nil, "", apperr.ValidateInternalError(err, "recipe")
	}

	if !found {
		return nil, "", apperr.NotFoundError{EntityType: "capsule", Code: "not_found", Message: "capsule not found"}
	}

	var manifest capsule.Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return nil, "", apperr.ValidateInternalError(err, "recipe")
	}

	return manifest.Params, ownerID, nil
}

// Create validates params against the capsule's declared params[] and
// inserts a new recipe, enforcing the 100-per-capsule cap.
func (s *Service) Create(ctx context.Context, capsuleID, authorID, name string, rawParams map[string]any) (Recipe, error) {
	declared, _, err := s.declaredParams(ctx, capsuleID)
	if err != nil {
		return Recipe{}, err
	}

	coerced, matched := paramrules.CoerceParams(declared, rawParams)
	if !matched {
		return Recipe{}, apperr.ValidationError{EntityType: "recipe", Code: "NO_MATCHING_PARAMS", Message: "no parameter in the request matches the capsule manifest"}
	}

	count, err := s.store.CountForCapsule(ctx, capsuleID)
	if err != nil {
		return Recipe{}, apperr.ValidateInternalError(err, "recipe")
	}

	if count >= paramrules.MaxRecipesPerCapsule {
		return Recipe{}, apperr.RateLimitedError{Code: "RECIPE_CAP_REACHED", Message: "this capsule already has the maximum number of recipes"}
	}

	r := Recipe{
		ID:        s.newID(),
		CapsuleID: capsuleID,
		AuthorID:  authorID,
		Name:      name,
		Params:    coerced,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}

	if err := s.store.Insert(ctx, r); err != nil {
		return Recipe{}, apperr.ValidateInternalError(err, "recipe")
	}

	return r, nil
}

// Update mutates an existing recipe's params/name. Mutation is allowed to
// the recipe's author, the capsule's owner, or a moderator.
func (s *Service) Update(ctx context.Context, recipeID, actorID string, isModerator bool, name string, rawParams map[string]any) (Recipe, error) {
	existing, found, err := s.store.Get(ctx, recipeID)
	if err != nil {
		return Recipe{}, apperr.ValidateInternalError(err, "recipe")
	}

	if !found {
		return Recipe{}, apperr.NotFoundError{EntityType: "recipe", Code: "not_found", Message: "recipe not found"}
	}

	declared, ownerID, err := s.declaredParams(ctx, existing.CapsuleID)
	if err != nil {
		return Recipe{}, err
	}

	if existing.AuthorID != actorID && ownerID != actorID && !isModerator {
		return Recipe{}, apperr.ForbiddenError{Code: "NOT_RECIPE_OWNER", Message: "only the recipe author, capsule owner, or a moderator may update this recipe"}
	}

	if name != "" {
		existing.Name = name
	}

	if rawParams != nil {
		coerced, matched := paramrules.CoerceParams(declared, rawParams)
		if !matched {
			return Recipe{}, apperr.ValidationError{EntityType: "recipe", Code: "NO_MATCHING_PARAMS", Message: "no parameter in the request matches the capsule manifest"}
		}

		existing.Params = coerced
	}

	existing.UpdatedAt = s.now()

	if err := s.store.Update(ctx, existing); err != nil {
		return Recipe{}, apperr.ValidateInternalError(err, "recipe")
	}

	return existing, nil
}

// ListForCapsule returns every recipe saved against a capsule.
func (s *Service) ListForCapsule(ctx context.Context, capsuleID string) ([]Recipe, error) {
	return s.store.ListForCapsule(ctx, capsuleID)
}
