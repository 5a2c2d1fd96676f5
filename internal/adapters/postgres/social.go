package postgres

import (
	"context"
	"database/sql"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/social"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// SocialStore implements social.Store against the `likes`, `follows`,
// `comments`, `notifications`, and `posts` tables.
type SocialStore struct {
	conn *platformpostgres.Connection
}

// NewSocialStore builds a SocialStore over conn.
func NewSocialStore(conn *platformpostgres.Connection) *SocialStore {
	return &SocialStore{conn: conn}
}

func (s *SocialStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

// InsertLike inserts a unique (user_id, post_id) row, relying on a unique
// index to make a repeated like a no-op rather than a duplicate row.
func (s *SocialStore) InsertLike(ctx context.Context, userID, postID string) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Insert("likes").
		Columns("user_id", "post_id").
		Values(userID, postID).
		Suffix("ON CONFLICT (user_id, post_id) DO NOTHING").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, translatePgError(err)
	}

	n, err := res.RowsAffected()

	return n > 0, err
}

// DeleteLike is idempotent: deleting a like that never existed reports
// deleted=false rather than an error.
func (s *SocialStore) DeleteLike(ctx context.Context, userID, postID string) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Delete("likes").
		Where(sqrl.Eq{"user_id": userID, "post_id": postID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()

	return n > 0, err
}

// GetPostAuthor looks up a post's owner for notification and authorization
// checks.
func (s *SocialStore) GetPostAuthor(ctx context.Context, postID string) (string, bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return "", false, err
	}

	query, args, err := sqrl.Select("author_id").
		From("posts").
		Where(sqrl.Eq{"id": postID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var authorID string

	err = db.QueryRowContext(ctx, query, args...).Scan(&authorID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}

	return authorID, err == nil, err
}

// InsertFollow inserts a unique (follower_id, followee_id) row.
func (s *SocialStore) InsertFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Insert("follows").
		Columns("follower_id", "followee_id").
		Values(followerID, followeeID).
		Suffix("ON CONFLICT (follower_id, followee_id) DO NOTHING").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, translatePgError(err)
	}

	n, err := res.RowsAffected()

	return n > 0, err
}

// DeleteFollow is idempotent, guarded by the row's own existence so a race
// between two unfollow calls never double-decrements the caller's counters.
func (s *SocialStore) DeleteFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Delete("follows").
		Where(sqrl.Eq{"follower_id": followerID, "followee_id": followeeID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()

	return n > 0, err
}

// InsertComment inserts one comment row.
func (s *SocialStore) InsertComment(ctx context.Context, c social.Comment) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("comments").
		Columns("id", "post_id", "author_id", "body", "at_ms", "bbox", "parent_comment_id", "quarantined", "created_at").
		Values(c.ID, c.PostID, c.AuthorID, c.Body, c.AtMs, c.Bbox, c.ParentCommentID, c.Quarantined, c.CreatedAt).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return translatePgError(err)
}

// GetComment reads one comment by id.
func (s *SocialStore) GetComment(ctx context.Context, commentID string) (social.Comment, bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return social.Comment{}, false, err
	}

	query, args, err := sqrl.Select("id", "post_id", "author_id", "body", "at_ms", "bbox", "parent_comment_id", "quarantined", "created_at").
		From("comments").
		Where(sqrl.Eq{"id": commentID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return social.Comment{}, false, err
	}

	var c social.Comment

	scanErr := s.scanComment(db.QueryRowContext(ctx, query, args...), &c)
	if scanErr == sql.ErrNoRows {
		return social.Comment{}, false, nil
	}

	return c, scanErr == nil, scanErr
}

func (s *SocialStore) scanComment(row *sql.Row, c *social.Comment) error {
	return row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.AtMs, &c.Bbox, &c.ParentCommentID, &c.Quarantined, &c.CreatedAt)
}

// DeleteComment removes one comment row.
func (s *SocialStore) DeleteComment(ctx context.Context, commentID string) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Delete("comments").
		Where(sqrl.Eq{"id": commentID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// ListComments lists a post's comments, optionally including quarantined
// ones for the post owner or a moderator.
func (s *SocialStore) ListComments(ctx context.Context, postID string, includeQuarantined bool) ([]social.Comment, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	sel := sqrl.Select("id", "post_id", "author_id", "body", "at_ms", "bbox", "parent_comment_id", "quarantined", "created_at").
		From("comments").
		Where(sqrl.Eq{"post_id": postID}).
		OrderBy("created_at ASC")

	if !includeQuarantined {
		sel = sel.Where(sqrl.Eq{"quarantined": false})
	}

	query, args, err := sel.PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []social.Comment

	for rows.Next() {
		var c social.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.AtMs, &c.Bbox, &c.ParentCommentID, &c.Quarantined, &c.CreatedAt); err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

// InsertNotification inserts one notification row.
func (s *SocialStore) InsertNotification(ctx context.Context, n social.Notification) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("notifications").
		Columns("id", "user_id", "type", "actor_id", "post_id", "comment_id", "read", "created_at").
		Values(n.ID, n.UserID, n.Type, n.ActorID, n.PostID, n.CommentID, n.Read, n.CreatedAt).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// ListNotifications returns a page of userID's notifications, newest first.
func (s *SocialStore) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]social.Notification, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "user_id", "type", "actor_id", "post_id", "comment_id", "read", "created_at").
		From("notifications").
		Where(sqrl.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []social.Notification

	for rows.Next() {
		var n social.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.ActorID, &n.PostID, &n.CommentID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}

		out = append(out, n)
	}

	return out, rows.Err()
}

// MarkRead flips the read flag for the given ids, or every row for userID
// when all is true.
func (s *SocialStore) MarkRead(ctx context.Context, userID string, ids []string, all bool) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	update := sqrl.Update("notifications").Set("read", true).Where(sqrl.Eq{"user_id": userID})

	if !all {
		if len(ids) == 0 {
			return nil
		}

		update = update.Where(sqrl.Eq{"id": ids})
	}

	query, args, err := update.PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// UnreadCount reports how many of userID's notifications are unread.
func (s *SocialStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := sqrl.Select("count(*)").
		From("notifications").
		Where(sqrl.Eq{"user_id": userID, "read": false}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64

	err = db.QueryRowContext(ctx, query, args...).Scan(&count)

	return count, err
}

// SetPostQuarantine flips a post's quarantine flag.
func (s *SocialStore) SetPostQuarantine(ctx context.Context, postID string, quarantined bool) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Update("posts").
		Set("quarantined", quarantined).
		Where(sqrl.Eq{"id": postID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// SetCommentQuarantine flips a comment's quarantine flag.
func (s *SocialStore) SetCommentQuarantine(ctx context.Context, commentID string, quarantined bool) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Update("comments").
		Set("quarantined", quarantined).
		Where(sqrl.Eq{"id": commentID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// GetPostOwnerAndModerators returns a post's owner id, used to let the
// owner see their own quarantined comments.
func (s *SocialStore) GetPostOwnerAndModerators(ctx context.Context, postID string) (string, bool, error) {
	return s.GetPostAuthor(ctx, postID)
}
