package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/recipe"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// RecipeStore implements recipe.Store against the `recipes` table, with
// params stored as a JSON column.
type RecipeStore struct {
	conn *platformpostgres.Connection
}

// NewRecipeStore builds a RecipeStore over conn.
func NewRecipeStore(conn *platformpostgres.Connection) *RecipeStore {
	return &RecipeStore{conn: conn}
}

func (s *RecipeStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

// CountForCapsule reports how many recipes already exist for a capsule, to
// enforce the 100-per-capsule cap.
func (s *RecipeStore) CountForCapsule(ctx context.Context, capsuleID string) (int64, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := sqrl.Select("count(*)").
		From("recipes").
		Where(sqrl.Eq{"capsule_id": capsuleID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64

	err = db.QueryRowContext(ctx, query, args...).Scan(&count)

	return count, err
}

// Insert inserts a new recipe row.
func (s *RecipeStore) Insert(ctx context.Context, r recipe.Recipe) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	paramsJSON, err := json.Marshal(r.Params)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("recipes").
		Columns("id", "capsule_id", "author_id", "name", "params_json", "created_at", "updated_at").
		Values(r.ID, r.CapsuleID, r.AuthorID, r.Name, paramsJSON, r.CreatedAt, r.UpdatedAt).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return translatePgError(err)
}

// Get reads one recipe by id.
func (s *RecipeStore) Get(ctx context.Context, recipeID string) (recipe.Recipe, bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return recipe.Recipe{}, false, err
	}

	query, args, err := sqrl.Select("id", "capsule_id", "author_id", "name", "params_json", "created_at", "updated_at").
		From("recipes").
		Where(sqrl.Eq{"id": recipeID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return recipe.Recipe{}, false, err
	}

	r, err := s.scanRow(db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return recipe.Recipe{}, false, nil
	}

	return r, err == nil, err
}

func (s *RecipeStore) scanRow(row *sql.Row) (recipe.Recipe, error) {
	var r recipe.Recipe

	var paramsJSON []byte

	if err := row.Scan(&r.ID, &r.CapsuleID, &r.AuthorID, &r.Name, &paramsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return recipe.Recipe{}, err
	}

	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
			return recipe.Recipe{}, err
		}
	}

	return r, nil
}

// Update overwrites a recipe's mutable fields.
func (s *RecipeStore) Update(ctx context.Context, r recipe.Recipe) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	paramsJSON, err := json.Marshal(r.Params)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Update("recipes").
		Set("name", r.Name).
		Set("params_json", paramsJSON).
		Set("updated_at", r.UpdatedAt).
		Where(sqrl.Eq{"id": r.ID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// ListForCapsule lists every recipe saved against a capsule.
func (s *RecipeStore) ListForCapsule(ctx context.Context, capsuleID string) ([]recipe.Recipe, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "capsule_id", "author_id", "name", "params_json", "created_at", "updated_at").
		From("recipes").
		Where(sqrl.Eq{"capsule_id": capsuleID}).
		OrderBy("created_at ASC").
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

	var out []recipe.Recipe

	for rows.Next() {
		var r recipe.Recipe

		var paramsJSON []byte

		if err := rows.Scan(&r.ID, &r.CapsuleID, &r.AuthorID, &r.Name, &paramsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}

		if len(paramsJSON) > 0 {
			if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
				return nil, err
			}
		}

		out = append(out, r)
	}

	return out, rows.Err()
}
