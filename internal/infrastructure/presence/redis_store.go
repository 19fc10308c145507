package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	onlineKeyPrefix   = "presence:online:"
	lastSeenKeyPrefix = "presence:lastseen:"
)

// RedisStore mirrors presence state into Redis so a fleet of instances can
// agree on who is online. Keys carry a TTL of twice the presence timeout,
// so a crashed instance's users expire to offline on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, presenceTimeout time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    2 * presenceTimeout,
	}
}

func (s *RedisStore) SetOnline(ctx context.Context, userID string) error {
	return s.client.Set(ctx, onlineKeyPrefix+userID, "1", s.ttl).Err()
}

func (s *RedisStore) SetOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, onlineKeyPrefix+userID)
	pipe.Set(ctx, lastSeenKeyPrefix+userID, lastSeen.Format(time.RFC3339Nano), 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) IsOnline(ctx context.Context, userID string) (bool, *time.Time, error) {
	if err := s.client.Get(ctx, onlineKeyPrefix+userID).Err(); err == nil {
		return true, nil, nil
	} else if err != redis.Nil {
		return false, nil, fmt.Errorf("presence lookup for %s: %w", userID, err)
	}

	raw, err := s.client.Get(ctx, lastSeenKeyPrefix+userID).Result()
	if err == redis.Nil {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("last-seen lookup for %s: %w", userID, err)
	}

	seen, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false, nil, nil
	}
	return false, &seen, nil
}
