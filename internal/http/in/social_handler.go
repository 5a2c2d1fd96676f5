package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/social"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// CommentInput is the request body for POST /posts/:id/comments.
type CommentInput struct {
	Body            string  `json:"body" validate:"required"`
	AtMs            *int64  `json:"atMs,omitempty"`
	Bbox            string  `json:"bbox,omitempty"`
	ParentCommentID *string `json:"parentCommentId,omitempty"`
}

// MarkReadInput is the request body for POST /notifications/mark-read.
type MarkReadInput struct {
	IDs []string `json:"ids,omitempty"`
	All bool     `json:"all,omitempty"`
}

// QuarantineInput is the request body for POST /posts/:id/quarantine.
type QuarantineInput struct {
	CommentID   string `json:"commentId,omitempty"`
	Quarantined bool   `json:"quarantined"`
	Reason      string `json:"reason,omitempty"`
}

// SocialHandler serves likes, follows, comments, notifications, and
// moderation quarantine, backed by social.Service.
type SocialHandler struct {
	Social *social.Service
}

func isModeratorFromClaims(c *fiber.Ctx) bool {
	claims, err := nethttp.ClaimsFromContext(c)
	if err != nil || claims == nil || claims.Raw == nil {
		return false
	}

	switch role := claims.Raw["role"].(type) {
	case string:
		return role == "moderator"
	}

	if roles, ok := claims.Raw["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok && s == "moderator" {
				return true
			}
		}
	}

	return false
}

// Like handles POST /posts/:id/like.
func (h *SocialHandler) Like(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	if err := h.Social.LikePost(c.UserContext(), userID, c.Params("id")); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"liked": true})
}

// Unlike handles DELETE /posts/:id/like.
func (h *SocialHandler) Unlike(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	if err := h.Social.UnlikePost(c.UserContext(), userID, c.Params("id")); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"liked": false})
}

// Follow handles POST /users/:id/follow.
func (h *SocialHandler) Follow(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	if err := h.Social.FollowUser(c.UserContext(), userID, c.Params("id")); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"following": true})
}

// Unfollow handles DELETE /users/:id/follow.
func (h *SocialHandler) Unfollow(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	if err := h.Social.UnfollowUser(c.UserContext(), userID, c.Params("id")); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"following": false})
}

// Comment handles POST /posts/:id/comments.
func (h *SocialHandler) Comment(p any, c *fiber.Ctx) error {
	in := p.(*CommentInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	comment, err := h.Social.PostComment(c.UserContext(), social.CommentInput{
		PostID:          c.Params("id"),
		AuthorID:        userID,
		Body:            in.Body,
		AtMs:            in.AtMs,
		Bbox:            in.Bbox,
		ParentCommentID: in.ParentCommentID,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListComments handles GET /posts/:id/comments.
func (h *SocialHandler) ListComments(c *fiber.Ctx) error {
	var viewerID string
	if claims, err := nethttp.ClaimsFromContext(c); err == nil && claims != nil {
		viewerID = claims.Subject
	}

	comments, err := h.Social.ListComments(c.UserContext(), c.Params("id"), viewerID, isModeratorFromClaims(c))
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"comments": comments})
}

// ListNotifications handles GET /notifications.
func (h *SocialHandler) ListNotifications(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	limit, offset, ok := nethttp.PageParams(c.Query("limit"), c.Query("offset"))
	if !ok {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "notification", Code: "invalid_pagination", Message: "limit/offset must be non-negative integers"})
	}

	summary, err := h.Social.Summary(c.UserContext(), userID, limit, offset)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"unreadCount":   summary.UnreadCount,
		"notifications": summary.Notifications,
	})
}

// MarkRead handles POST /notifications/:id/read.
func (h *SocialHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	if err := h.Social.MarkRead(c.UserContext(), userID, []string{c.Params("id")}, false); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"read": true})
}

// MarkReadBatch handles POST /notifications/mark-read: an explicit id list,
// or all of the caller's notifications when all is set.
func (h *SocialHandler) MarkReadBatch(p any, c *fiber.Ctx) error {
	in := p.(*MarkReadInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	if !in.All && len(in.IDs) == 0 {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "notification", Code: "missing_parameter", Message: "either ids or all is required"})
	}

	if err := h.Social.MarkRead(c.UserContext(), userID, in.IDs, in.All); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"read": true})
}

// DeleteComment handles DELETE /comments/:id, allowed to the comment author
// or the post author.
func (h *SocialHandler) DeleteComment(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	if err := h.Social.DeleteComment(c.UserContext(), userID, c.Params("id")); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"deleted": true})
}

// UnreadCount handles GET /notifications/unread-count.
func (h *SocialHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	summary, err := h.Social.Summary(c.UserContext(), userID, 0, 0)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"unreadCount": summary.UnreadCount})
}

// Quarantine handles POST /posts/:id/quarantine: moderator-only, applied to
// the post itself or, when commentId is set, to one of its comments.
func (h *SocialHandler) Quarantine(p any, c *fiber.Ctx) error {
	in := p.(*QuarantineInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	if !isModeratorFromClaims(c) {
		return nethttp.WithError(c, apperr.ForbiddenError{Code: "NOT_MODERATOR", Message: "only moderators may quarantine content"})
	}

	if in.CommentID != "" {
		if err := h.Social.QuarantineComment(c.UserContext(), userID, in.CommentID, in.Quarantined, in.Reason); err != nil {
			return nethttp.WithError(c, err)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{"commentId": in.CommentID, "quarantined": in.Quarantined})
	}

	if err := h.Social.QuarantinePost(c.UserContext(), userID, c.Params("id"), in.Quarantined, in.Reason); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"postId": c.Params("id"), "quarantined": in.Quarantined})
}
