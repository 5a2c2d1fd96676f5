// Package redis wires the key-value cache capability (the runtime-manifest
// mirror and the rate-limit fallback windows) to a single redis client.
package redis

import (
	"context"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"github.com/redis/go-redis/v9"
)

// Connection is a hub which deals with redis connections.
type Connection struct {
	ConnectionStringSource string
	Client                 *redis.Client
	Connected              bool
	Logger                 mlog.Logger
}

// Connect establishes and pings a singleton connection to redis.
func (rc *Connection) Connect(ctx context.Context) error {
	rc.Logger.Info("connecting to redis...")

	opts, err := redis.ParseURL(rc.ConnectionStringSource)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(opts)

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rc.Logger.Errorf("redis ping failed: %v", err)
		return err
	}

	rc.Logger.Info("connected to redis")

	rc.Connected = true
	rc.Client = rdb

	return nil
}

// GetDB returns the redis client, connecting lazily on first use.
func (rc *Connection) GetDB(ctx context.Context) (*redis.Client, error) {
	if rc.Client == nil {
		if err := rc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return rc.Client, nil
}
