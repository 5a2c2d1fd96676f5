package postgres

import (
	"context"
	"database/sql"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/counter"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// CounterStore implements counter.Store against `posts` and `users`
// denormalized counter columns, clamping every column at zero with
// `GREATEST` so a flush can never drive a counter negative.
type CounterStore struct {
	conn *platformpostgres.Connection
}

// NewCounterStore builds a CounterStore over conn.
func NewCounterStore(conn *platformpostgres.Connection) *CounterStore {
	return &CounterStore{conn: conn}
}

func (s *CounterStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

// FlushPosts writes one UPDATE per dirty post inside a single transaction.
func (s *CounterStore) FlushPosts(ctx context.Context, deltas map[string]counter.PostDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for postID, d := range deltas {
		query, args, err := sqrl.Update("posts").
			Set("runs_count", sqrl.Expr("GREATEST(runs_count + ?, 0)", d.Runs)).
			Set("likes_count", sqrl.Expr("GREATEST(likes_count + ?, 0)", d.Likes)).
			Set("comments_count", sqrl.Expr("GREATEST(comments_count + ?, 0)", d.Comments)).
			Set("remixes_count", sqrl.Expr("GREATEST(remixes_count + ?, 0)", d.Remixes)).
			Where(sqrl.Eq{"id": postID}).
			PlaceholderFormat(sqrl.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FlushUsers writes one UPDATE per dirty user inside a single transaction.
func (s *CounterStore) FlushUsers(ctx context.Context, deltas map[string]counter.UserDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for userID, d := range deltas {
		query, args, err := sqrl.Update("users").
			Set("runs_count", sqrl.Expr("GREATEST(runs_count + ?, 0)", d.Runs)).
			Set("followers_count", sqrl.Expr("GREATEST(followers_count + ?, 0)", d.Followers)).
			Set("following_count", sqrl.Expr("GREATEST(following_count + ?, 0)", d.Following)).
			Where(sqrl.Eq{"id": userID}).
			PlaceholderFormat(sqrl.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}
