// Package constant declares the sentinel business errors services return
// internally and the single dispatcher that turns them into typed apperr
// values carrying the wire code/title/message.
package constant

import (
	"errors"
	"fmt"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

var (
	ErrInternalServer         = errors.New("internal_error")
	ErrBadRequest             = errors.New("bad_request")
	ErrUnexpectedFields       = errors.New("unexpected_fields")
	ErrEntityNotFound         = errors.New("entity_not_found")
	ErrMissingFields          = errors.New("missing_fields")
	ErrInvalidPathParameter   = errors.New("invalid_path_parameter")

	// CONCURRENT-UPLOAD: Storage Accountant CAS exhausted its retry budget.
	ErrConcurrentUpload = errors.New("CONCURRENT-UPLOAD")
	// ACTIVE_LIMIT: too many concurrently-started runs for the user.
	ErrActiveRunLimit = errors.New("ACTIVE_LIMIT")
	// BUDGET_EXCEEDED: a run's reported duration exceeds the session wall-clock limit.
	ErrBudgetExceeded = errors.New("BUDGET_EXCEEDED")
	// CAPSULE_MISMATCH: completeRun's capsuleId does not match the stored run row.
	ErrCapsuleMismatch = errors.New("CAPSULE_MISMATCH")
	// POST_MISMATCH: completeRun's postId does not match the stored run row.
	ErrPostMismatch = errors.New("POST_MISMATCH")
	// PARENT_MISMATCH: a comment's parentCommentId belongs to a different post.
	ErrParentMismatch = errors.New("PARENT_MISMATCH")
	// PARENT_NOT_FOUND: a comment's parentCommentId does not exist.
	ErrParentNotFound = errors.New("PARENT_NOT_FOUND")
	// PROXY_DISABLED: NET_PROXY_ENABLED is false.
	ErrProxyDisabled = errors.New("PROXY_DISABLED")
	// BLOCKED_ADDRESS: the requested proxy URL resolves to a disallowed address class.
	ErrBlockedAddress = errors.New("BLOCKED_ADDRESS")
	// FORBIDDEN: caller does not own the capsule being proxied through.
	ErrProxyForbidden = errors.New("FORBIDDEN")
	// EMPTY_ALLOWLIST: manifest ∩ env allowlist intersection is empty.
	ErrEmptyAllowlist = errors.New("EMPTY_ALLOWLIST")
	// FREE_NOT_ENABLED: free-plan caller hit the proxy while NET_PROXY_FREE_ENABLED is false.
	ErrFreeNotEnabled = errors.New("FREE_NOT_ENABLED")
	// CYCLE: remix ancestry traversal detected a cycle.
	ErrRemixCycle = errors.New("CYCLE")
	// RecipeLimit: per-capsule recipe cap of 100 reached.
	ErrRecipeLimit = errors.New("RECIPE_LIMIT")
	// RecipeNoMatch: no manifest param matches the submitted recipe.
	ErrRecipeNoMatch = errors.New("RECIPE_NO_MATCH")
	// SelfFollow: a user attempted to follow themself.
	ErrSelfFollow = errors.New("SELF_FOLLOW")
	// HandleTaken: the requested user handle is already registered (case-insensitive).
	ErrHandleTaken = errors.New("HANDLE_TAKEN")
	// RunOwnedByAnother: a runId was reused by a different user than its owner.
	ErrRunOwnedByAnother = errors.New("RUN_OWNED_BY_ANOTHER")
)

// ValidateBadRequestFieldsError builds a two-shape bad-request response:
// unknown fields take priority over known-field validation errors.
func ValidateBadRequestFieldsError(knownInvalidFields map[string]string, entityType string, unknownFields map[string]any) error {
	if len(unknownFields) == 0 && len(knownInvalidFields) == 0 {
		return errors.New("expected knownInvalidFields and unknownFields to be non-empty")
	}

	if len(unknownFields) > 0 {
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrUnexpectedFields.Error(),
			Title:      "Unexpected Fields in the Request",
			Message:    "The request body contains fields that are not recognized. Please send only documented fields.",
			Details:    nil,
		}
	}

	return apperr.ValidationError{
		EntityType: entityType,
		Code:       ErrBadRequest.Error(),
		Title:      "Bad Request",
		Message:    "The server could not understand the request due to malformed syntax.",
		Details:    knownInvalidFields,
	}
}

// Translate maps a sentinel business error to its typed apperr value with
// the HTTP-status-bearing code/title/message it carries on the wire.
//
//nolint:gocyclo
func Translate(err error, entityType string, args ...any) error {
	switch {
	case errors.Is(err, ErrEntityNotFound):
		return apperr.NotFoundError{
			EntityType: entityType,
			Code:       ErrEntityNotFound.Error(),
			Title:      "Entity Not Found",
			Message:    "No entity was found for the given id.",
		}
	case errors.Is(err, ErrMissingFields):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrMissingFields.Error(),
			Title:      "Missing Fields in Request",
			Message:    "Your request is missing one or more required fields.",
		}
	case errors.Is(err, ErrInvalidPathParameter):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrInvalidPathParameter.Error(),
			Title:      "Invalid Path Parameter",
			Message:    fmt.Sprintf("The path parameter(s) %v could not be parsed.", args),
		}
	case errors.Is(err, ErrConcurrentUpload):
		return apperr.ConflictError{
			EntityType: entityType,
			Code:       ErrConcurrentUpload.Error(),
			Title:      "Concurrent Upload",
			Message:    "Another publish for this account raced this one and won. Please retry.",
		}
	case errors.Is(err, ErrActiveRunLimit):
		return apperr.QuotaExceededError{
			Code:    ErrActiveRunLimit.Error(),
			Title:   "Active Run Limit Reached",
			Message: "Too many runs are currently active for this account.",
		}
	case errors.Is(err, ErrBudgetExceeded):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrBudgetExceeded.Error(),
			Title:      "Runtime Budget Exceeded",
			Message:    "The run exceeded the maximum allowed session duration.",
		}
	case errors.Is(err, ErrCapsuleMismatch):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrCapsuleMismatch.Error(),
			Title:      "Capsule Mismatch",
			Message:    "The capsuleId does not match the run that was started.",
		}
	case errors.Is(err, ErrPostMismatch):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrPostMismatch.Error(),
			Title:      "Post Mismatch",
			Message:    "The postId does not match the run that was started.",
		}
	case errors.Is(err, ErrParentMismatch):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrParentMismatch.Error(),
			Title:      "Parent Comment Mismatch",
			Message:    "The parent comment belongs to a different post.",
		}
	case errors.Is(err, ErrParentNotFound):
		return apperr.NotFoundError{
			EntityType: entityType,
			Code:       ErrParentNotFound.Error(),
			Title:      "Parent Comment Not Found",
			Message:    "The referenced parent comment does not exist.",
		}
	case errors.Is(err, ErrProxyDisabled):
		return apperr.ForbiddenError{
			Code:    ErrProxyDisabled.Error(),
			Title:   "Proxy Disabled",
			Message: "Outbound network access is disabled in this environment.",
		}
	case errors.Is(err, ErrBlockedAddress):
		return apperr.ForbiddenError{
			Code:    ErrBlockedAddress.Error(),
			Title:   "Blocked Address",
			Message: "The requested address is not reachable from the sandbox.",
		}
	case errors.Is(err, ErrProxyForbidden):
		return apperr.ForbiddenError{
			Code:    ErrProxyForbidden.Error(),
			Title:   "Forbidden",
			Message: "You do not own the capsule making this request.",
		}
	case errors.Is(err, ErrEmptyAllowlist):
		return apperr.ForbiddenError{
			Code:    ErrEmptyAllowlist.Error(),
			Title:   "Empty Allowlist",
			Message: "This capsule has no hosts allowed by both its manifest and this environment.",
		}
	case errors.Is(err, ErrFreeNotEnabled):
		return apperr.ForbiddenError{
			Code:    ErrFreeNotEnabled.Error(),
			Title:   "Free Plan Not Enabled",
			Message: "Outbound network access is not enabled for the free plan.",
		}
	case errors.Is(err, ErrRemixCycle):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrRemixCycle.Error(),
			Title:      "Cyclic Remix Ancestry",
			Message:    "Remix ancestry traversal detected a cycle.",
		}
	case errors.Is(err, ErrRecipeLimit):
		return apperr.QuotaExceededError{
			Code:    ErrRecipeLimit.Error(),
			Title:   "Recipe Limit Reached",
			Message: "This capsule already has the maximum of 100 recipes.",
		}
	case errors.Is(err, ErrRecipeNoMatch):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrRecipeNoMatch.Error(),
			Title:      "No Matching Parameters",
			Message:    "None of the submitted parameters match the capsule manifest's declared params.",
		}
	case errors.Is(err, ErrSelfFollow):
		return apperr.ValidationError{
			EntityType: entityType,
			Code:       ErrSelfFollow.Error(),
			Title:      "Self Follow Not Allowed",
			Message:    "You cannot follow yourself.",
		}
	case errors.Is(err, ErrHandleTaken):
		return apperr.ConflictError{
			EntityType: entityType,
			Code:       ErrHandleTaken.Error(),
			Title:      "Handle Taken",
			Message:    fmt.Sprintf("The handle %v is already in use.", args),
		}
	case errors.Is(err, ErrRunOwnedByAnother):
		return apperr.ForbiddenError{
			Code:    ErrRunOwnedByAnother.Error(),
			Title:   "Run Owned By Another User",
			Message: "This runId belongs to a different user.",
		}
	default:
		return err
	}
}
