package infra

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV implementa domain.KVStore direto sobre strings do Redis.
// A expiração fica por conta do servidor (TTL por chave).
type RedisKV struct {
	rdb *redis.Client
}

func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisKV) GetDel(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
