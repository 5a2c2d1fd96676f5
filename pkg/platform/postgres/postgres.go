// Package postgres wires the RelationalStore capability to a single
// PostgreSQL database via the pgx stdlib driver. Unlike the ledger's
// primary+replica dbresolver setup, the control plane names no read-replica
// or migration-runner component, so this is one pool, one DSN.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

// Connection is a hub which deals with postgres connections.
type Connection struct {
	ConnectionString string
	DBName           string
	DB               *sql.DB
	Connected        bool
	Logger           mlog.Logger
}

// Connect opens and pings a singleton *sql.DB using the pgx stdlib driver.
func (pc *Connection) Connect() error {
	pc.Logger.Info("connecting to postgres...")

	db, err := sql.Open("pgx", pc.ConnectionString)
	if err != nil {
		pc.Logger.Errorf("failed to open postgres connection: %v", err)
		return err
	}

	if err := db.Ping(); err != nil {
		pc.Logger.Errorf("postgres ping failed: %v", err)
		return err
	}

	pc.DB = db
	pc.Connected = true

	pc.Logger.Info("connected to postgres")

	return nil
}

// GetDB returns the *sql.DB, connecting lazily on first use.
func (pc *Connection) GetDB(ctx context.Context) (*sql.DB, error) {
	if pc.DB == nil {
		if err := pc.Connect(); err != nil {
			return nil, err
		}
	}

	return pc.DB, nil
}
