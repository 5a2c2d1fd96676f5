package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/ingestor"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// CapsuleStore implements ingestor.Store against `capsules` and `assets`
// tables, grounded on the same squirrel query style as RunStore.
type CapsuleStore struct {
	conn *platformpostgres.Connection
}

// NewCapsuleStore builds a CapsuleStore over conn.
func NewCapsuleStore(conn *platformpostgres.Connection) *CapsuleStore {
	return &CapsuleStore{conn: conn}
}

func (s *CapsuleStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

// InsertCapsule inserts the capsule row and its asset rows inside one
// transaction so a failure midway leaves no partial state for the SAGA
// compensation step to clean up.
func (s *CapsuleStore) InsertCapsule(ctx context.Context, c ingestor.CapsuleRow, assets []ingestor.AssetRow) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	capQuery, capArgs, err := sqrl.Insert("capsules").
		Columns("id", "owner_id", "content_hash", "manifest_json").
		Values(c.ID, c.OwnerID, c.ContentHash, c.ManifestRaw).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, capQuery, capArgs...); err != nil {
		return translatePgError(err)
	}

	if len(assets) > 0 {
		insert := sqrl.Insert("assets").Columns("id", "capsule_id", "key", "size")
		for _, a := range assets {
			insert = insert.Values(a.ID, a.CapsuleID, a.Key, a.Size)
		}

		assetQuery, assetArgs, err := insert.PlaceholderFormat(sqrl.Dollar).ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, assetQuery, assetArgs...); err != nil {
			return translatePgError(err)
		}
	}

	return tx.Commit()
}

// DeleteCapsule removes a capsule row, its assets, and its remix edge (ON
// DELETE CASCADE is assumed on assets.capsule_id and
// remixes.child_capsule_id), the publish SAGA's compensation step.
func (s *CapsuleStore) DeleteCapsule(ctx context.Context, capsuleID string) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Delete("capsules").
		Where(sqrl.Eq{"id": capsuleID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// GetCapsule reads one capsule's owner and content hash, for the capsule
// read routes (GET /capsules/:id, /bundle, /manifest) and the Egress
// Proxy's ownership/manifest lookup.
func (s *CapsuleStore) GetCapsule(ctx context.Context, capsuleID string) (ownerID, contentHash string, manifestRaw []byte, found bool, err error) {
	db, dberr := s.db(ctx)
	if dberr != nil {
		return "", "", nil, false, dberr
	}

	query, args, err := sqrl.Select("owner_id", "content_hash", "manifest_json").
		From("capsules").
		Where(sqrl.Eq{"id": capsuleID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return "", "", nil, false, err
	}

	row := db.QueryRowContext(ctx, query, args...)

	if err := row.Scan(&ownerID, &contentHash, &manifestRaw); err != nil {
		if err == sql.ErrNoRows {
			return "", "", nil, false, nil
		}

		return "", "", nil, false, err
	}

	return ownerID, contentHash, manifestRaw, true, nil
}

// GetOwnerAndManifest reads a capsule's owner id and parsed manifest, for
// the Egress Proxy's ownership/capability checks.
func (s *CapsuleStore) GetOwnerAndManifest(ctx context.Context, capsuleID string) (string, capsule.Manifest, bool, error) {
	ownerID, _, manifestRaw, found, err := s.GetCapsule(ctx, capsuleID)
	if err != nil || !found {
		return "", capsule.Manifest{}, found, err
	}

	var manifest capsule.Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return "", capsule.Manifest{}, false, err
	}

	return ownerID, manifest, true, nil
}

// CountCapsulesByContentHash reports how many capsule rows still reference
// contentHash, so blob deletion can be skipped on shared content.
func (s *CapsuleStore) CountCapsulesByContentHash(ctx context.Context, contentHash string) (int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := sqrl.Select("count(*)").
		From("capsules").
		Where(sqrl.Eq{"content_hash": contentHash}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64

	err = db.QueryRowContext(ctx, query, args...).Scan(&count)

	return count, err
}

// CapsuleExists reports whether a capsule row exists.
func (s *CapsuleStore) CapsuleExists(ctx context.Context, capsuleID string) (bool, error) {
	_, _, _, found, err := s.GetCapsule(ctx, capsuleID)
	return found, err
}

// RemixParentOf resolves a capsule's remix parent from the `remixes` edge
// table, ok=false when the capsule is not a remix.
func (s *CapsuleStore) RemixParentOf(ctx context.Context, capsuleID string) (string, bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return "", false, err
	}

	query, args, err := sqrl.Select("parent_capsule_id").
		From("remixes").
		Where(sqrl.Eq{"child_capsule_id": capsuleID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var parent string

	if err := db.QueryRowContext(ctx, query, args...).Scan(&parent); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}

		return "", false, err
	}

	return parent, true, nil
}

// InsertRemix records the child -> parent remix edge. child_capsule_id is
// the primary key: a capsule is a remix of at most one parent.
func (s *CapsuleStore) InsertRemix(ctx context.Context, childCapsuleID, parentCapsuleID, parentPostID string) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("remixes").
		Columns("child_capsule_id", "parent_capsule_id", "parent_post_id", "created_at").
		Values(childCapsuleID, parentCapsuleID, nullable(parentPostID), time.Now().UTC()).
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

// ListAssetKeys lists the asset paths a capsule's bundle was published
// with, for the Artifact Compiler's BundleSource to reassemble the bundle
// from the blob store.
func (s *CapsuleStore) ListAssetKeys(ctx context.Context, capsuleID string) ([]string, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("key").
		From("assets").
		Where(sqrl.Eq{"capsule_id": capsuleID}).
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

	var keys []string

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}

		keys = append(keys, key)
	}

	return keys, rows.Err()
}
