// Package inbox stores offline notifications per user, drained on the next
// dashboard view.
package inbox

import (
	"context"

	"github.com/redis/go-redis/v9"
	"log/slog"

	"github.com/dmitritashenov-cyber/video-chat/internal/app"
)

type Redis struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewRedis connects to redis and verifies connectivity
func NewRedis(ctx context.Context, cfg app.Config, log *slog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{rdb: rdb, log: log}, nil
}

// Append queues one notification for a user.
func (i *Redis) Append(ctx context.Context, username, text string) error {
	return i.rdb.RPush(ctx, key(username), text).Err()
}

// Drain returns the user's pending notifications and clears them in one
// transaction.
func (i *Redis) Drain(ctx context.Context, username string) ([]string, error) {
	pipe := i.rdb.TxPipeline()
	lr := pipe.LRange(ctx, key(username), 0, -1)
	pipe.Del(ctx, key(username))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return lr.Val(), nil
}

// Close shuts down the redis connection
func (i *Redis) Close() { _ = i.rdb.Close() }

// key namespacing for per-user inboxes
func key(username string) string { return "inbox:" + username }
