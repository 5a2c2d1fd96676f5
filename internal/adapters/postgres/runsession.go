// Package postgres holds the squirrel-built, per-entity Postgres
// repositories for the control plane: sqrl.Select/.Insert query builders,
// $-placeholder format, pgconn.PgError translation.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/runsession"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// RunStore implements runsession.Store against a `runs` table.
type RunStore struct {
	conn *platformpostgres.Connection
}

// NewRunStore builds a RunStore over an already-configured platform connection.
func NewRunStore(conn *platformpostgres.Connection) *RunStore {
	return &RunStore{conn: conn}
}

func (s *RunStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.ConflictError{
			EntityType: "run",
			Code:       "db_conflict",
			Title:      "Conflict",
			Message:    "a run with this id already exists",
			Err:        pgErr,
		}
	}

	return err
}

// FindRun returns exists=false when no row matches runID.
func (s *RunStore) FindRun(ctx context.Context, runID string) (runsession.RunRef, bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return runsession.RunRef{}, false, err
	}

	query, args, err := sqrl.Select("user_id", "capsule_id", "coalesce(post_id, '')", "started_at").
		From("runs").
		Where(sqrl.Eq{"id": runID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return runsession.RunRef{}, false, err
	}

	var (
		ref       runsession.RunRef
		startedAt time.Time
	)

	if err := db.QueryRowContext(ctx, query, args...).Scan(&ref.OwnerUserID, &ref.CapsuleID, &ref.PostID, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return runsession.RunRef{}, false, nil
		}

		return runsession.RunRef{}, false, err
	}

	ref.StartedAtMs = startedAt.UnixMilli()

	return ref, true, nil
}

// CountActiveRuns counts runs with status=started and started_at >= sinceMs.
func (s *RunStore) CountActiveRuns(ctx context.Context, userID string, sinceMs int64) (int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := sqrl.Select("count(*)").
		From("runs").
		Where(sqrl.Eq{"user_id": userID, "status": "started"}).
		Where(sqrl.GtOrEq{"started_at": time.UnixMilli(sinceMs)}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64

	err = db.QueryRowContext(ctx, query, args...).Scan(&count)

	return count, err
}

// CountRunsThisMonth counts every run started on/after startOfMonthMs,
// regardless of the owning user's current moderation status.
func (s *RunStore) CountRunsThisMonth(ctx context.Context, userID string, startOfMonthMs int64) (int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := sqrl.Select("count(*)").
		From("runs").
		Where(sqrl.Eq{"user_id": userID}).
		Where(sqrl.GtOrEq{"started_at": time.UnixMilli(startOfMonthMs)}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64

	err = db.QueryRowContext(ctx, query, args...).Scan(&count)

	return count, err
}

// InsertRun inserts the run row.
func (s *RunStore) InsertRun(ctx context.Context, run runsession.Run) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("runs").
		Columns("id", "user_id", "capsule_id", "post_id", "artifact_id", "status", "started_at").
		Values(run.ID, run.UserID, run.CapsuleID, nullable(run.PostID), nullable(run.ArtifactID), run.Status, run.StartedAt).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return translatePgError(err)
	}

	return nil
}

// CompleteRun marks a run finished.
func (s *RunStore) CompleteRun(ctx context.Context, runID string, status string, durationMs int64, errorMessage string) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Update("runs").
		Set("status", status).
		Set("duration_ms", durationMs).
		Set("error_message", nullable(errorMessage)).
		Set("completed_at", time.Now().UTC()).
		Where(sqrl.Eq{"id": runID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// AppendLogs inserts sanitized log rows for runID.
func (s *RunStore) AppendLogs(ctx context.Context, runID string, entries []runsession.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	insert := sqrl.Insert("run_logs").Columns("run_id", "level", "message", "source", "created_at")

	now := time.Now().UTC()
	for _, e := range entries {
		insert = insert.Values(runID, e.Level, e.Message, e.Source, now)
	}

	query, args, err := insert.PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
