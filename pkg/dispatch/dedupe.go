package dispatch

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper decides whether an event ID is seen for the first time. The
// bus delivers at-least-once, so redelivered events must not notify
// recipients twice.
type Deduper interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

const dedupeKeyPrefix = "visto:dispatch:event:"

// RedisDeduper marks event IDs with SET NX and a TTL. After the TTL a
// redelivery would notify again, which is acceptable: brokers do not
// redeliver that late, and the keyspace stays bounded.
type RedisDeduper struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisDeduper(client redis.Cmdable, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, dedupeKeyPrefix+eventID, 1, d.ttl).Result()
}

// NoopDeduper treats every delivery as the first one. Used with the
// in-memory channel, which never redelivers.
type NoopDeduper struct{}

func (NoopDeduper) FirstDelivery(_ context.Context, _ string) (bool, error) {
	return true, nil
}
