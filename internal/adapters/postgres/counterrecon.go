package postgres

import (
	"context"
	"database/sql"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/counterrecon"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// ReconStore implements counterrecon.Store: it recomputes authoritative
// counts from the `likes`/`comments`/`runs`/`follows` source tables and
// CASes the denormalized `posts`/`users` counter columns on a
// `counter_version` column, the same optimistic-concurrency idiom as
// UserStore's storage_version.
type ReconStore struct {
	conn *platformpostgres.Connection
}

// NewReconStore builds a ReconStore over conn.
func NewReconStore(conn *platformpostgres.Connection) *ReconStore {
	return &ReconStore{conn: conn}
}

func (s *ReconStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

// ListPostIDs lists every post id the sweep should check.
func (s *ReconStore) ListPostIDs(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, "posts")
}

// ListUserIDs lists every user id the sweep should check.
func (s *ReconStore) ListUserIDs(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, "users")
}

func (s *ReconStore) listIDs(ctx context.Context, table string) ([]string, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id").From(table).PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// RecomputePostCounts recounts a post's likes, comments, runs, and remixes
// directly from their source tables in one round trip. A post's remix count
// is the number of `remixes` edges naming it as the parent post.
func (s *ReconStore) RecomputePostCounts(ctx context.Context, postID string) (counterrecon.PostCounts, error) {
	db, err := s.db(ctx)
	if err != nil {
		return counterrecon.PostCounts{}, err
	}

	query, _, err := sqrl.Select(
		"(SELECT count(*) FROM runs WHERE post_id = ?)",
		"(SELECT count(*) FROM likes WHERE post_id = ?)",
		"(SELECT count(*) FROM comments WHERE post_id = ?)",
		"(SELECT count(*) FROM remixes WHERE parent_post_id = ?)",
	).PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return counterrecon.PostCounts{}, err
	}

	var counts counterrecon.PostCounts

	err = db.QueryRowContext(ctx, query, postID, postID, postID, postID).
		Scan(&counts.Runs, &counts.Likes, &counts.Comments, &counts.Remixes)

	return counts, err
}

// RecomputeUserCounts recounts a user's runs, followers, following, and
// remixes directly from their source tables. The remix recount credits the
// owner of the CHILD capsule (the remixer), not the parent's owner.
func (s *ReconStore) RecomputeUserCounts(ctx context.Context, userID string) (counterrecon.UserCounts, error) {
	db, err := s.db(ctx)
	if err != nil {
		return counterrecon.UserCounts{}, err
	}

	query, _, err := sqrl.Select(
		"(SELECT count(*) FROM runs WHERE user_id = ?)",
		"(SELECT count(*) FROM follows WHERE followee_id = ?)",
		"(SELECT count(*) FROM follows WHERE follower_id = ?)",
		"(SELECT count(*) FROM remixes r JOIN capsules c ON c.id = r.child_capsule_id WHERE c.owner_id = ?)",
	).PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return counterrecon.UserCounts{}, err
	}

	var counts counterrecon.UserCounts

	err = db.QueryRowContext(ctx, query, userID, userID, userID, userID).
		Scan(&counts.Runs, &counts.Followers, &counts.Following, &counts.Remixes)

	return counts, err
}

// LoadPostCounts reads a post's currently-stored denormalized counters and
// their CAS version.
func (s *ReconStore) LoadPostCounts(ctx context.Context, postID string) (counterrecon.PostCounts, int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return counterrecon.PostCounts{}, 0, err
	}

	query, args, err := sqrl.Select("runs_count", "likes_count", "comments_count", "remixes_count", "counter_version").
		From("posts").
		Where(sqrl.Eq{"id": postID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return counterrecon.PostCounts{}, 0, err
	}

	var (
		counts  counterrecon.PostCounts
		version int64
	)

	err = db.QueryRowContext(ctx, query, args...).
		Scan(&counts.Runs, &counts.Likes, &counts.Comments, &counts.Remixes, &version)

	return counts, version, err
}

// LoadUserCounts reads a user's currently-stored denormalized counters and
// their CAS version.
func (s *ReconStore) LoadUserCounts(ctx context.Context, userID string) (counterrecon.UserCounts, int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return counterrecon.UserCounts{}, 0, err
	}

	query, args, err := sqrl.Select("runs_count", "followers_count", "following_count", "remixes_count", "counter_version").
		From("users").
		Where(sqrl.Eq{"id": userID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return counterrecon.UserCounts{}, 0, err
	}

	var (
		counts  counterrecon.UserCounts
		version int64
	)

	err = db.QueryRowContext(ctx, query, args...).
		Scan(&counts.Runs, &counts.Followers, &counts.Following, &counts.Remixes, &version)

	return counts, version, err
}

// CASPostCounts overwrites a post's denormalized counters iff its version
// still matches expectedVersion.
func (s *ReconStore) CASPostCounts(ctx context.Context, postID string, counts counterrecon.PostCounts, expectedVersion int64) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Update("posts").
		Set("runs_count", counts.Runs).
		Set("likes_count", counts.Likes).
		Set("comments_count", counts.Comments).
		Set("remixes_count", counts.Remixes).
		Set("counter_version", expectedVersion+1).
		Where(sqrl.Eq{"id": postID, "counter_version": expectedVersion}).
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

// CASUserCounts overwrites a user's denormalized counters iff its version
// still matches expectedVersion.
func (s *ReconStore) CASUserCounts(ctx context.Context, userID string, counts counterrecon.UserCounts, expectedVersion int64) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Update("users").
		Set("runs_count", counts.Runs).
		Set("followers_count", counts.Followers).
		Set("following_count", counts.Following).
		Set("remixes_count", counts.Remixes).
		Set("counter_version", expectedVersion+1).
		Where(sqrl.Eq{"id": userID, "counter_version": expectedVersion}).
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
