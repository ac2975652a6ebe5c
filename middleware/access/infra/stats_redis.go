package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flashsale-gateway/middleware/access/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava decisões de admissão no Redis (hashes com HINCRBY).
//
// Além do total cumulativo, mantém um bucket por minuto com TTL, o suficiente
// para acompanhar uma venda-relâmpago em andamento sem acumular lixo.
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas nos buckets por minuto e por chave.
	// total é cumulativo e não expira.
	ttl time.Duration

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "access:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	if route := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path)); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
