package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type lastNotification struct {
	GatewayMessageID string    `json:"gatewayMessageId"`
	SentAt           time.Time `json:"sentAt"`
}

func (c *RedisCache) StoreLast(ctx context.Context, orderID, gatewayMessageID string, sentAt time.Time) error {
	key := fmt.Sprintf("order:last_sms:%s", orderID)
	val := lastNotification{
		GatewayMessageID: gatewayMessageID,
		SentAt:           sentAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}
