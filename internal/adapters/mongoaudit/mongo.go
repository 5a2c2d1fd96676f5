// Package mongoaudit adapts the mongo platform connection to ports.AuditLog,
// the append-only moderation audit trail.
package mongoaudit

import (
	"context"

	platformmongo "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/mongo"
	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
)

const collectionName = "moderation_audit"

// MongoAuditLog implements ports.AuditLog over a single Mongo database.
type MongoAuditLog struct {
	conn *platformmongo.Connection
}

// New builds a MongoAuditLog over an already-configured platform connection.
func New(conn *platformmongo.Connection) *MongoAuditLog {
	return &MongoAuditLog{conn: conn}
}

// Append inserts one audit entry; the collection is append-only by
// convention, not by any update/delete being denied at this layer.
func (l *MongoAuditLog) Append(ctx context.Context, entry ports.AuditEntry) error {
	db, err := l.conn.GetDatabase(ctx)
	if err != nil {
		return err
	}

	_, err = db.Collection(collectionName).InsertOne(ctx, entry)

	return err
}
