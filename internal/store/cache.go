package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"chat-relay/internal/app"
)

const presenceKey = "presence" // username -> online|offline hash

// Cache keeps the hot read paths off postgres: a capped list of recent
// messages per room and a presence hash mirroring the live relay state
// for the REST user directory.
type Cache struct {
	rdb   *redis.Client
	log   *slog.Logger
	limit int // messages retained per room
}

// NewCache connects to redis and verifies connectivity
func NewCache(ctx context.Context, cfg app.Config, log *slog.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{rdb: rdb, log: log, limit: cfg.HistoryLimit}, nil
}

// Close shuts down the redis connection
func (c *Cache) Close() { _ = c.rdb.Close() }

// PushMessage appends a message to the room's recent window, trimming
// to the retention limit
func (c *Cache) PushMessage(ctx context.Context, m Message) error {
	raw, _ := json.Marshal(m)
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, roomKey(m.RoomID), raw)
	pipe.LTrim(ctx, roomKey(m.RoomID), int64(-c.limit), -1)
	_, err := pipe.Exec(ctx)
	return err
}

// RecentMessages returns the cached window for a room in submission
// order; an empty slice means a miss and the caller should fall back
// to postgres
func (c *Cache) RecentMessages(ctx context.Context, roomID string) ([]Message, error) {
	raws, err := c.rdb.LRange(ctx, roomKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raws))
	for _, raw := range raws {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// FillMessages seeds the room window after a cache miss
func (c *Cache) FillMessages(ctx context.Context, roomID string, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, roomKey(roomID))
	for _, m := range msgs {
		raw, _ := json.Marshal(m)
		pipe.RPush(ctx, roomKey(roomID), raw)
	}
	pipe.LTrim(ctx, roomKey(roomID), int64(-c.limit), -1)
	_, err := pipe.Exec(ctx)
	return err
}

// SetStatus mirrors one presence transition
func (c *Cache) SetStatus(ctx context.Context, username, status string) error {
	return c.rdb.HSet(ctx, presenceKey, username, status).Err()
}

// Status returns the mirrored status, offline when unknown
func (c *Cache) Status(ctx context.Context, username string) string {
	v, err := c.rdb.HGet(ctx, presenceKey, username).Result()
	if err != nil || v == "" {
		return "offline"
	}
	return v
}

// channel namespacing for room history
func roomKey(roomID string) string { return "room:" + roomID + ":messages" }
