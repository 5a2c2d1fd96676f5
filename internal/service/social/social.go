// Package social implements the Social Core component:
// likes, follows, threaded comments, notifications, and moderation
// quarantine, each fanning denorm counter updates out to the Counter
// Shard and moderation transitions out to the audit log.
package social

import (
	"context"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/social"
	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/counter"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

// Comment is one threaded comment on a post.
type Comment struct {
	ID              string
	PostID          string
	AuthorID        string
	Body            string
	AtMs            *int64
	Bbox            string
	ParentCommentID *string
	Quarantined     bool
	CreatedAt       time.Time
}

// Notification is one recipient-facing event.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	ActorID   string
	PostID    *string
	CommentID *string
	Read      bool
	CreatedAt time.Time
}

// Store is the relational persistence contract Social Core drives.
type Store interface {
	InsertLike(ctx context.Context, userID, postID string) (inserted bool, err error)
	DeleteLike(ctx context.Context, userID, postID string) (deleted bool, err error)
	GetPostAuthor(ctx context.Context, postID string) (authorID string, found bool, err error)

	InsertFollow(ctx context.Context, followerID, followeeID string) (inserted bool, err error)
	DeleteFollow(ctx context.Context, followerID, followeeID string) (deleted bool, err error)

	InsertComment(ctx context.Context, c Comment) error
	GetComment(ctx context.Context, commentID string) (Comment, bool, error)
	DeleteComment(ctx context.Context, commentID string) error
	ListComments(ctx context.Context, postID string, includeQuarantined bool) ([]Comment, error)

	InsertNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string, all bool) error
	UnreadCount(ctx context.Context, userID string) (int64, error)

	SetPostQuarantine(ctx context.Context, postID string, quarantined bool) error
	SetCommentQuarantine(ctx context.Context, commentID string, quarantined bool) error
	GetPostOwnerAndModerators(ctx context.Context, postID string) (ownerID string, found bool, err error)
}

// IDGenerator produces a new unique id.
type IDGenerator func() string

// Service wires the relational store, Counter Shard, and moderation audit
// log into Social Core's operations.
type Service struct {
	store    Store
	counters *counter.Coordinator
	audit    ports.AuditLog
	newID    IDGenerator
	now      func() time.Time
}

// New builds a Service. now defaults to time.Now.
func New(store Store, counters *counter.Coordinator, audit ports.AuditLog, newID IDGenerator, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{store: store, counters: counters, audit: audit, newID: newID, now: now}
}

// LikePost inserts a unique (user, post) like, increments the post's denorm
// counter, and emits a notification when the actor isn't the author.
// Re-liking is idempotent: no error, no double counter.
func (s *Service) LikePost(ctx context.Context, userID, postID string) error {
	inserted, err := s.store.InsertLike(ctx, userID, postID)
	if err != nil {
		return apperr.ValidateInternalError(err, "like")
	}

	if !inserted {
		return nil
	}

	if err := s.counters.IncrementPost(ctx, postID, counter.PostDelta{Likes: 1}, false); err != nil {
		return apperr.ValidateInternalError(err, "like")
	}

	authorID, found, err := s.store.GetPostAuthor(ctx, postID)
	if err == nil && found && authorID != userID {
		_ = s.store.InsertNotification(ctx, Notification{
			ID:        s.newID(),
			UserID:    authorID,
			Type:      social.NotificationLike,
			ActorID:   userID,
			PostID:    &postID,
			CreatedAt: s.now(),
		})
	}

	return nil
}

// UnlikePost is idempotent: unliking a post the user never liked is a no-op.
func (s *Service) UnlikePost(ctx context.Context, userID, postID string) error {
	deleted, err := s.store.DeleteLike(ctx, userID, postID)
	if err != nil {
		return apperr.ValidateInternalError(err, "like")
	}

	if !deleted {
		return nil
	}

	return s.counters.IncrementPost(ctx, postID, counter.PostDelta{Likes: -1}, false)
}

// FollowUser inserts a unique follow edge, increments both sides' denorm
// counters, and notifies the followee. Self-follow is forbidden.
func (s *Service) FollowUser(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return apperr.ForbiddenError{Code: "SELF_FOLLOW", Message: "a user cannot follow themselves"}
	}

	inserted, err := s.store.InsertFollow(ctx, followerID, followeeID)
	if err != nil {
		return apperr.ValidateInternalError(err, "follow")
	}

	if !inserted {
		return nil
	}

	if err := s.counters.IncrementUser(ctx, followerID, counter.UserDelta{Following: 1}, false); err != nil {
		return apperr.ValidateInternalError(err, "follow")
	}

	if err := s.counters.IncrementUser(ctx, followeeID, counter.UserDelta{Followers: 1}, false); err != nil {
		return apperr.ValidateInternalError(err, "follow")
	}

	return s.store.InsertNotification(ctx, Notification{
		ID:        s.newID(),
		UserID:    followeeID,
		Type:      social.NotificationFollow,
		ActorID:   followerID,
		CreatedAt: s.now(),
	})
}

// UnfollowUser is idempotent, guarded by the store's conditional delete so
// a double-unfollow race never double-decrements the counters.
func (s *Service) UnfollowUser(ctx context.Context, followerID, followeeID string) error {
	deleted, err := s.store.DeleteFollow(ctx, followerID, followeeID)
	if err != nil {
		return apperr.ValidateInternalError(err, "follow")
	}

	if !deleted {
		return nil
	}

	if err := s.counters.IncrementUser(ctx, followerID, counter.UserDelta{Following: -1}, false); err != nil {
		return apperr.ValidateInternalError(err, "follow")
	}

	return s.counters.IncrementUser(ctx, followeeID, counter.UserDelta{Followers: -1}, false)
}

// CommentInput is the validated input to PostComment.
type CommentInput struct {
	PostID          string
	AuthorID        string
	Body            string
	AtMs            *int64
	Bbox            string
	ParentCommentID *string
}

// PostComment validates and inserts a threaded comment, incrementing the
// post's comment counter and notifying its author.
func (s *Service) PostComment(ctx context.Context, in CommentInput) (Comment, error) {
	trimmed, issues := social.ValidateComment(in.Body, in.Bbox)
	if len(issues) > 0 {
		return Comment{}, apperr.ValidationError{EntityType: "comment", Code: "invalid_comment", Message: issues[0]}
	}

	if in.ParentCommentID != nil {
		parent, found, err := s.store.GetComment(ctx, *in.ParentCommentID)
		if err != nil {
			return Comment{}, apperr.ValidateInternalError(err, "comment")
		}

		if !found {
			return Comment{}, apperr.ValidationError{EntityType: "comment", Code: "PARENT_NOT_FOUND", Message: "parent comment does not exist"}
		}

		if parent.PostID != in.PostID {
			return Comment{}, apperr.ValidationError{EntityType: "comment", Code: "PARENT_MISMATCH", Message: "parent comment belongs to a different post"}
		}
	}

	c := Comment{
		ID:              s.newID(),
		PostID:          in.PostID,
		AuthorID:        in.AuthorID,
		Body:            trimmed,
		AtMs:            in.AtMs,
		Bbox:            in.Bbox,
		ParentCommentID: in.ParentCommentID,
		CreatedAt:       s.now(),
	}

	if err := s.store.InsertComment(ctx, c); err != nil {
		return Comment{}, apperr.ValidateInternalError(err, "comment")
	}

	if err := s.counters.IncrementPost(ctx, in.PostID, counter.PostDelta{Comments: 1}, false); err != nil {
		return Comment{}, apperr.ValidateInternalError(err, "comment")
	}

	authorID, found, err := s.store.GetPostAuthor(ctx, in.PostID)
	if err == nil && found && authorID != in.AuthorID {
		_ = s.store.InsertNotification(ctx, Notification{
			ID:        s.newID(),
			UserID:    authorID,
			Type:      social.NotificationComment,
			ActorID:   in.AuthorID,
			PostID:    &in.PostID,
			CommentID: &c.ID,
			CreatedAt: s.now(),
		})
	}

	return c, nil
}

// DeleteComment is allowed by the comment author or the post author; it
// decrements the post's comment counter.
func (s *Service) DeleteComment(ctx context.Context, actorID, commentID string) error {
	c, found, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return apperr.ValidateInternalError(err, "comment")
	}

	if !found {
		return apperr.NotFoundError{EntityType: "comment", Code: "not_found", Message: "comment not found"}
	}

	if c.AuthorID != actorID {
		postAuthorID, found, err := s.store.GetPostAuthor(ctx, c.PostID)
		if err != nil {
			return apperr.ValidateInternalError(err, "comment")
		}

		if !found || postAuthorID != actorID {
			return apperr.ForbiddenError{Code: "NOT_COMMENT_OR_POST_AUTHOR", Message: "only the comment author or post author may delete a comment"}
		}
	}

	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return apperr.ValidateInternalError(err, "comment")
	}

	return s.counters.IncrementPost(ctx, c.PostID, counter.PostDelta{Comments: -1}, false)
}

// ListComments returns a post's comments, hiding quarantined ones from
// everyone but the post owner or a moderator.
func (s *Service) ListComments(ctx context.Context, postID, viewerID string, viewerIsModerator bool) ([]Comment, error) {
	includeQuarantined := viewerIsModerator

	if !includeQuarantined && viewerID != "" {
		ownerID, found, err := s.store.GetPostOwnerAndModerators(ctx, postID)
		if err == nil && found && ownerID == viewerID {
			includeQuarantined = true
		}
	}

	return s.store.ListComments(ctx, postID, includeQuarantined)
}

// ListNotifications returns a page of the caller's notifications.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

// MarkRead marks the given notification ids read, or all of the caller's
// notifications when all is true.
func (s *Service) MarkRead(ctx context.Context, userID string, ids []string, all bool) error {
	return s.store.MarkRead(ctx, userID, ids, all)
}

// UnreadSummary combines the unread count and the most recent page in one
// response.
type UnreadSummary struct {
	UnreadCount  int64
	Notifications []Notification
}

// Summary implements GET /notifications' combined list+count response.
func (s *Service) Summary(ctx context.Context, userID string, limit, offset int) (UnreadSummary, error) {
	count, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return UnreadSummary{}, apperr.ValidateInternalError(err, "notification")
	}

	notifications, err := s.store.ListNotifications(ctx, userID, limit, offset)
	if err != nil {
		return UnreadSummary{}, apperr.ValidateInternalError(err, "notification")
	}

	return UnreadSummary{UnreadCount: count, Notifications: notifications}, nil
}

// QuarantinePost transitions a post's quarantine flag and appends an audit
// entry. Only a moderator may call this (enforced by the HTTP layer's
// authorization check); the service itself just records the transition.
func (s *Service) QuarantinePost(ctx context.Context, actorID, postID string, quarantined bool, reason string) error {
	if err := s.store.SetPostQuarantine(ctx, postID, quarantined); err != nil {
		return apperr.ValidateInternalError(err, "post")
	}

	from, to := "active", "quarantined"
	if !quarantined {
		from, to = "quarantined", "active"
	}

	return s.audit.Append(ctx, ports.AuditEntry{
		EntityType: "post",
		EntityID:   postID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Reason:     reason,
		At:         s.now(),
	})
}

// QuarantineComment mirrors QuarantinePost for a single comment.
func (s *Service) QuarantineComment(ctx context.Context, actorID, commentID string, quarantined bool, reason string) error {
	if err := s.store.SetCommentQuarantine(ctx, commentID, quarantined); err != nil {
		return apperr.ValidateInternalError(err, "comment")
	}

	from, to := "active", "quarantined"
	if !quarantined {
		from, to = "quarantined", "active"
	}

	return s.audit.Append(ctx, ports.AuditEntry{
		EntityType: "comment",
		EntityID:   commentID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Reason:     reason,
		At:         s.now(),
	})
}
