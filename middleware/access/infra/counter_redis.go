package infra

import (
	"context"
	"strings"
	"time"

	"flashsale-gateway/middleware/access/domain"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore implementa domain.CounterStore com janela fixa no Redis.
//
// O contador nasce no primeiro INCR e a expiração é criada junto (EXPIRE NX):
// incrementos seguintes (inclusive os negados pela camada de aplicação)
// nunca renovam a janela, que fica ancorada na primeira observação.
type RedisCounterStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisCounterOption func(*RedisCounterStore)

func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(s *RedisCounterStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func NewRedisCounterStore(rdb *redis.Client, opts ...RedisCounterOption) *RedisCounterStore {
	s := &RedisCounterStore{
		rdb:    rdb,
		prefix: "access:counter",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisCounterStore) Incr(ctx context.Context, key domain.Key, window time.Duration) (int64, error) {
	k := s.prefix + ":" + string(key)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// NX: só define TTL quando a chave ainda não tem; é o que ancora a janela.
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
