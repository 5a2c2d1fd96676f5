package postgres

import (
	"context"
	"database/sql"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/artifact"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// ArtifactStore implements artifactcompiler.Store against the
// `artifact_versions` and `artifact_compiles` tables: the former tracks the
// monotonic per-artifact version counter, the latter the last persisted
// compile request/result pair.
type ArtifactStore struct {
	conn *platformpostgres.Connection
}

// NewArtifactStore builds an ArtifactStore over conn.
func NewArtifactStore(conn *platformpostgres.Connection) *ArtifactStore {
	return &ArtifactStore{conn: conn}
}

func (s *ArtifactStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

// LatestArtifactID implements feed.ArtifactCache: a capsule's default
// artifact id is its own capsule id, surfaced only once that artifact has an
// active compiled result.
func (s *ArtifactStore) LatestArtifactID(ctx context.Context, capsuleID string) (string, bool) {
	_, res, found, err := s.LastCompile(ctx, capsuleID)
	if err != nil || !found || res.Status != artifact.StatusActive {
		return "", false
	}

	return capsuleID, true
}

// NextVersion allocates the next monotonic version (max existing + 1) for
// artifactID inside a transaction, under the per-artifact single-writer
// dispatch that already serializes callers.
func (s *ArtifactStore) NextVersion(ctx context.Context, artifactID string) (int, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	var current sql.NullInt64

	query, args, err := sqrl.Select("max(version)").
		From("artifact_versions").
		Where(sqrl.Eq{"artifact_id": artifactID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	if err := tx.QueryRowContext(ctx, query, args...).Scan(&current); err != nil {
		return 0, err
	}

	next := 1
	if current.Valid {
		next = int(current.Int64) + 1
	}

	insQuery, insArgs, err := sqrl.Insert("artifact_versions").
		Columns("artifact_id", "version").
		Values(artifactID, next).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
		return 0, translatePgError(err)
	}

	return next, tx.Commit()
}

// SaveRequest upserts the last compile request an artifact received.
func (s *ArtifactStore) SaveRequest(ctx context.Context, req artifact.Request) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("artifact_compiles").
		Columns("artifact_id", "capsule_id", "requested_by", "requested_at").
		Values(req.ArtifactID, req.CapsuleID, req.RequestedBy, req.RequestedAt).
		Suffix("ON CONFLICT (artifact_id) DO UPDATE SET capsule_id = EXCLUDED.capsule_id, requested_by = EXCLUDED.requested_by, requested_at = EXCLUDED.requested_at").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// SaveResult upserts the last compile result an artifact produced.
func (s *ArtifactStore) SaveResult(ctx context.Context, res artifact.Result) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("artifact_compiles").
		Columns("artifact_id", "result_version", "bundle_digest", "result_status", "result_error", "manifest_json", "completed_at").
		Values(res.ArtifactID, res.Version, res.BundleDigest, string(res.Status), res.Error, nullable(res.ManifestJSON), res.CompletedAt).
		Suffix("ON CONFLICT (artifact_id) DO UPDATE SET result_version = EXCLUDED.result_version, bundle_digest = EXCLUDED.bundle_digest, result_status = EXCLUDED.result_status, result_error = EXCLUDED.result_error, manifest_json = COALESCE(EXCLUDED.manifest_json, artifact_compiles.manifest_json), completed_at = EXCLUDED.completed_at").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// SetStatus transitions an artifact's lifecycle status.
func (s *ArtifactStore) SetStatus(ctx context.Context, artifactID string, status artifact.Status) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("artifacts").
		Columns("id", "status").
		Values(artifactID, string(status)).
		Suffix("ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// LastCompile reads the last persisted compile request/result pair for an
// artifact.
func (s *ArtifactStore) LastCompile(ctx context.Context, artifactID string) (artifact.Request, artifact.Result, bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return artifact.Request{}, artifact.Result{}, false, err
	}

	query, args, err := sqrl.Select(
		"artifact_id", "capsule_id", "requested_by", "requested_at",
		"result_version", "bundle_digest", "result_status", "result_error", "manifest_json", "completed_at",
	).
		From("artifact_compiles").
		Where(sqrl.Eq{"artifact_id": artifactID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return artifact.Request{}, artifact.Result{}, false, err
	}

	var (
		req          artifact.Request
		res          artifact.Result
		resultStatus sql.NullString
		bundleDigest sql.NullString
		resultError  sql.NullString
		manifestJSON sql.NullString
		version      sql.NullInt64
		completedAt  sql.NullTime
	)

	row := db.QueryRowContext(ctx, query, args...)

	err = row.Scan(
		&req.ArtifactID, &req.CapsuleID, &req.RequestedBy, &req.RequestedAt,
		&version, &bundleDigest, &resultStatus, &resultError, &manifestJSON, &completedAt,
	)
	if err == sql.ErrNoRows {
		return artifact.Request{}, artifact.Result{}, false, nil
	}

	if err != nil {
		return artifact.Request{}, artifact.Result{}, false, err
	}

	res.ArtifactID = artifactID
	res.Version = int(version.Int64)
	res.BundleDigest = bundleDigest.String
	res.Status = artifact.Status(resultStatus.String)
	res.Error = resultError.String
	res.ManifestJSON = manifestJSON.String
	res.CompletedAt = completedAt.Time

	return req, res, true, nil
}

// ManifestJSON reads the last successful compile's runtime manifest, the
// relational fallback behind GET /artifacts/{id}/manifest when the KV
// mirror misses.
func (s *ArtifactStore) ManifestJSON(ctx context.Context, artifactID string) (string, bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return "", false, err
	}

	query, args, err := sqrl.Select("manifest_json").
		From("artifact_compiles").
		Where(sqrl.Eq{"artifact_id": artifactID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var manifestJSON sql.NullString

	if err := db.QueryRowContext(ctx, query, args...).Scan(&manifestJSON); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}

		return "", false, err
	}

	return manifestJSON.String, manifestJSON.Valid && manifestJSON.String != "", nil
}
