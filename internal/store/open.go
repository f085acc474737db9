package store

import (
	"context"
	"fmt"
	"time"

	"github.com/RichardoC/quanta/internal/db"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Options selects the slot backend. Redis is used when RedisAddr is set
// and reachable, SQLite at DBPath otherwise.
type Options struct {
	DBPath        string
	RedisAddr     string
	RedisUsername string
	RedisPassword string
}

// Open returns the configured slot and a function releasing it.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Slot, func(), error) {
	if opts.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Username: opts.RedisUsername,
			Password: opts.RedisPassword,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Using Redis conversation storage", zap.String("addr", opts.RedisAddr))
			return NewRedisSlot(client), func() { client.Close() }, nil
		}
		client.Close()
		logger.Warn("Failed to connect to Redis, falling back to SQLite",
			zap.String("addr", opts.RedisAddr),
			zap.Error(err))
	}

	database, err := db.New(opts.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %q: %w", opts.DBPath, err)
	}
	logger.Info("Using SQLite conversation storage", zap.String("dbPath", opts.DBPath))
	return NewDatabaseSlot(database), func() { database.Close() }, nil
}
