package postgres

import (
	"context"
	"database/sql"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/runtimeevent"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
)

// RuntimeEventStore implements runtimeevent.Store against a `runtime_events`
// table keyed by a client-supplied event id, so a re-delivered event is a
// no-op rather than a duplicate row.
type RuntimeEventStore struct {
	conn *platformpostgres.Connection
}

// NewRuntimeEventStore builds a RuntimeEventStore over conn.
func NewRuntimeEventStore(conn *platformpostgres.Connection) *RuntimeEventStore {
	return &RuntimeEventStore{conn: conn}
}

func (s *RuntimeEventStore) db(ctx context.Context) (*sql.DB, error) {
	return s.conn.GetDB(ctx)
}

// InsertEvents writes every event in one statement, ignoring ids already
// present.
func (s *RuntimeEventStore) InsertEvents(ctx context.Context, events []runtimeevent.Event) error {
	if len(events) == 0 {
		return nil
	}

	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	insert := sqrl.Insert("runtime_events").Columns("id", "run_id", "type", "payload", "created_at")

	for _, e := range events {
		insert = insert.Values(e.ID, e.RunID, e.Type, e.Payload, e.CreatedAt)
	}

	query, args, err := insert.PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return err
	}

	query += " ON CONFLICT (id) DO NOTHING"

	_, err = db.ExecContext(ctx, query, args...)

	return err
}
