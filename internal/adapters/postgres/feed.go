package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	sqrl "github.com/Masterminds/squirrel"

	domainfeed "github.com/Braden-sui/Vibecodr-sub002/internal/domain/feed"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/feed"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// FeedStore implements feed.Store against `posts`, `users`, and the Social
// Core tables (`likes`, `comments`, `runs`, `remixes`, `follows`).
type FeedStore struct {
	conn *platformpostgres.Connection
}

// NewFeedStore builds a FeedStore over conn.
func NewFeedStore(conn *platformpostgres.Connection) *FeedStore {
	return &FeedStore{conn: conn}
}

func (s *FeedStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

var postColumns = []string{
	"id", "author_id", "title", "description", "tags",
	"capsule_id", "content_hash", "created_at", "visibility", "quarantined",
}

func scanPosts(rows *sql.Rows) ([]feed.Post, error) {
	defer rows.Close()

	var out []feed.Post

	for rows.Next() {
		var (
			p       feed.Post
			tagsRaw []byte
		)

		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Description, &tagsRaw, &p.CapsuleID, &p.ContentHash, &p.CreatedAt, &p.Visibility, &p.Quarantined); err != nil {
			return nil, err
		}

		_ = json.Unmarshal(tagsRaw, &p.Tags)

		out = append(out, p)
	}

	return out, rows.Err()
}

// FetchLatest returns the newest-first page of posts. Visibility and
// quarantine are not filtered here; the feed service drops those rows.
func (s *FeedStore) FetchLatest(ctx context.Context, limit, offset int) ([]feed.Post, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select(postColumns...).
		From("posts").
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

	return scanPosts(rows)
}

// FetchFollowing restricts the latest-first query to authors the viewer follows.
func (s *FeedStore) FetchFollowing(ctx context.Context, viewerID string, limit, offset int) ([]feed.Post, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	cols := make([]string, len(postColumns))
	for i, c := range postColumns {
		cols[i] = "posts." + c
	}

	query, args, err := sqrl.Select(cols...).
		From("posts").
		Join("follows ON follows.followee_id = posts.author_id").
		Where(sqrl.Eq{"follows.follower_id": viewerID}).
		OrderBy("posts.created_at DESC").
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

	return scanPosts(rows)
}

// FetchByTagsOrQuery matches posts whose tags JSON contains tag, or whose
// title/description/tags contain query.
func (s *FeedStore) FetchByTagsOrQuery(ctx context.Context, tag, query string, limit, offset int) ([]feed.Post, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	sb := sqrl.Select(postColumns...).From("posts")

	if tag != "" {
		sb = sb.Where(sqrl.Like{"tags::text": "%\"" + tag + "\"%"})
	}

	if query != "" {
		like := "%" + query + "%"
		sb = sb.Where(sqrl.Or{
			sqrl.ILike{"title": like},
			sqrl.ILike{"description": like},
			sqrl.ILike{"tags::text": like},
		})
	}

	sqlStr, args, err := sb.
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}

	return scanPosts(rows)
}

// FetchByAuthor restricts the latest-first query to one author's posts (the
// userId feed filter).
func (s *FeedStore) FetchByAuthor(ctx context.Context, authorID string, limit, offset int) ([]feed.Post, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select(postColumns...).
		From("posts").
		Where(sqrl.Eq{"author_id": authorID}).
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

	return scanPosts(rows)
}

// FetchForYouCandidates pulls a recency-bounded candidate pool for the
// caller to re-rank client-side via domainfeed.ComputeForYouScore.
func (s *FeedStore) FetchForYouCandidates(ctx context.Context, limit int) ([]feed.Post, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select(postColumns...).
		From("posts").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return scanPosts(rows)
}

// Aggregates reads the posts table's own denormalized counters for the
// given id set in one round-trip.
func (s *FeedStore) Aggregates(ctx context.Context, postIDs []string) (map[string]domainfeed.PostStats, error) {
	out := map[string]domainfeed.PostStats{}

	if len(postIDs) == 0 {
		return out, nil
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "runs_count", "likes_count", "comments_count", "remixes_count").
		From("posts").
		Where(sqrl.Eq{"id": postIDs}).
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

	for rows.Next() {
		var (
			id    string
			stats domainfeed.PostStats
		)

		if err := rows.Scan(&id, &stats.Runs, &stats.Likes, &stats.Comments, &stats.Remixes); err != nil {
			return nil, err
		}

		out[id] = stats
	}

	return out, rows.Err()
}

// AuthorsMeta reads author-level signal for the given id set in one
// round-trip.
func (s *FeedStore) AuthorsMeta(ctx context.Context, authorIDs []string) (map[string]feed.AuthorMeta, error) {
	out := map[string]feed.AuthorMeta{}

	if len(authorIDs) == 0 {
		return out, nil
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "followers_count", "featured", "plan", "suspended", "shadow_banned").
		From("users").
		Where(sqrl.Eq{"id": authorIDs}).
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

	for rows.Next() {
		var (
			id   string
			meta feed.AuthorMeta
		)

		if err := rows.Scan(&id, &meta.Followers, &meta.Featured, &meta.Plan, &meta.Suspended, &meta.ShadowBan); err != nil {
			return nil, err
		}

		out[id] = meta
	}

	return out, rows.Err()
}

// LikedByViewer reads which of postIDs the viewer has liked, one round-trip.
func (s *FeedStore) LikedByViewer(ctx context.Context, viewerID string, postIDs []string) (map[string]bool, error) {
	out := map[string]bool{}

	if len(postIDs) == 0 || viewerID == "" {
		return out, nil
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("post_id").
		From("likes").
		Where(sqrl.Eq{"user_id": viewerID, "post_id": postIDs}).
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

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		out[id] = true
	}

	return out, rows.Err()
}

// FollowingAuthors reads which of authorIDs the viewer follows, one round-trip.
func (s *FeedStore) FollowingAuthors(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error) {
	out := map[string]bool{}

	if len(authorIDs) == 0 || viewerID == "" {
		return out, nil
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("followee_id").
		From("follows").
		Where(sqrl.Eq{"follower_id": viewerID, "followee_id": authorIDs}).
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

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		out[id] = true
	}

	return out, rows.Err()
}
