package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/turnosmed/api-turnos/internal/model"
)

// RedisEmitter publishes turno events on a Redis pub/sub channel.  The
// SSE hub subscribes to the same channel, so every API instance sees
// events from every other instance.  Redis pub/sub has no persistence
// or replay, which matches the at-most-once contract of the live
// stream: only currently connected listeners hear an event.
type RedisEmitter struct {
	rdb     *redis.Client
	channel string
}

// NewRedisEmitter returns an emitter bound to the given channel.
func NewRedisEmitter(rdb *redis.Client, channel string) *RedisEmitter {
	return &RedisEmitter{rdb: rdb, channel: channel}
}

// Publish implements Emitter.
func (e *RedisEmitter) Publish(ctx context.Context, topic string, turno model.Turno) error {
	body, err := json.Marshal(envelope(topic, turno))
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, e.channel, body).Err()
}
