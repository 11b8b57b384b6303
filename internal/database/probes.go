package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PingSQL checks the pool behind a gorm handle.
func PingSQL(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// PingRedis checks the redis connection.
func PingRedis(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// NATSConnected reports a broker connection that is not currently usable.
// Reconnecting counts as down.
func NATSConnected(conn *nats.Conn) func(context.Context) error {
	return func(context.Context) error {
		if conn == nil {
			return errors.New("nats connection not configured")
		}
		if status := conn.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats connection %s", status)
		}
		return nil
	}
}
