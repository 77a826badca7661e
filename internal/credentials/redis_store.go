package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 500 * time.Millisecond

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisStore struct {
	client redisKV
	key    string
}

// NewRedisStore guarda el token en redis bajo "tavern:credentials:<key>", sin TTL.
func NewRedisStore(client *redis.Client, key string) Store {
	if client == nil {
		return nil
	}
	return newRedisStore(client, key)
}

func newRedisStore(client redisKV, key string) *redisStore {
	if key == "" {
		key = DefaultKey
	}
	return &redisStore{
		client: client,
		key:    "tavern:credentials:" + key,
	}
}

func (s *redisStore) Load(ctx context.Context) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if val == "" {
		return "", false, nil
	}
	return val, true, nil
}

func (s *redisStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return s.client.Set(ctx, s.key, token, 0).Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return s.client.Del(ctx, s.key).Err()
}
