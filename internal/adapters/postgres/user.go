package postgres

import (
	"context"
	"database/sql"
	"errors"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/plan"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/storageaccount"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// UserStore implements storageaccount.Store against a `users` table, using
// storage_version as the optimistic-concurrency CAS token.
type UserStore struct {
	conn *platformpostgres.Connection
}

// NewUserStore builds a UserStore over conn.
func NewUserStore(conn *platformpostgres.Connection) *UserStore {
	return &UserStore{conn: conn}
}

func (s *UserStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

// LoadUser reads (plan, usage, version) in one statement.
func (s *UserStore) LoadUser(ctx context.Context, userID string) (storageaccount.UserState, bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return storageaccount.UserState{}, false, err
	}

	query, args, err := sqrl.Select("plan", "storage_usage_bytes", "storage_version").
		From("users").
		Where(sqrl.Eq{"id": userID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return storageaccount.UserState{}, false, err
	}

	var (
		planName string
		state    storageaccount.UserState
	)

	if err := db.QueryRowContext(ctx, query, args...).Scan(&planName, &state.StorageUsage, &state.StorageVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storageaccount.UserState{}, false, nil
		}

		return storageaccount.UserState{}, false, err
	}

	state.Plan = plan.Plan(planName)

	return state, true, nil
}

// PlanFor implements egressproxy.PlanLookup: the caller's current plan
// name, defaulting to the free plan when the user row doesn't exist yet.
func (s *UserStore) PlanFor(ctx context.Context, userID string) (string, error) {
	state, found, err := s.LoadUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if !found {
		return string(plan.Free), nil
	}

	return string(state.Plan), nil
}

// BootstrapUser inserts a zeroed user row; a unique-conflict race reports
// ok=false so the caller re-reads and retries.
func (s *UserStore) BootstrapUser(ctx context.Context, userID string, p plan.Plan) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Insert("users").
		Columns("id", "plan", "storage_usage_bytes", "storage_version").
		Values(userID, string(p), 0, 0).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return false, nil // unique violation: another writer bootstrapped first
		}

		return false, err
	}

	return true, nil
}

// CAS applies usage/version iff the stored version still matches expectedVersion.
func (s *UserStore) CAS(ctx context.Context, userID string, newUsage, expectedVersion int64) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := sqrl.Update("users").
		Set("storage_usage_bytes", newUsage).
		Set("storage_version", sqrl.Expr("storage_version + 1")).
		Where(sqrl.Eq{"id": userID, "storage_version": expectedVersion}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperr.ValidateInternalError(err, "user")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}
