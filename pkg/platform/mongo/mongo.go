// Package mongo wires the moderation audit log to a single MongoDB database, following the same Connect/GetDB singleton
// shape as the other platform connections.
package mongo

import (
	"context"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connection is a hub which deals with mongo connections.
type Connection struct {
	ConnectionStringSource string
	DatabaseName            string
	client                   *mongo.Client
	Connected                bool
	Logger                   mlog.Logger
}

// Connect opens and pings a singleton mongo client.
func (mc *Connection) Connect(ctx context.Context) error {
	mc.Logger.Info("connecting to mongo...")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mc.ConnectionStringSource))
	if err != nil {
		mc.Logger.Errorf("failed to connect to mongo: %v", err)
		return err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		mc.Logger.Errorf("mongo ping failed: %v", err)
		return err
	}

	mc.client = client
	mc.Connected = true

	mc.Logger.Info("connected to mongo")

	return nil
}

// GetDatabase returns the configured database, connecting lazily on first use.
func (mc *Connection) GetDatabase(ctx context.Context) (*mongo.Database, error) {
	if mc.client == nil {
		if err := mc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return mc.client.Database(mc.DatabaseName), nil
}

// Close disconnects the client.
func (mc *Connection) Close(ctx context.Context) error {
	if mc.client == nil {
		return nil
	}

	return mc.client.Disconnect(ctx)
}
