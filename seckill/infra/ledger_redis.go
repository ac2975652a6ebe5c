package infra

import (
	"context"
	"fmt"

	"flashsale-gateway/seckill/domain"

	"github.com/redis/go-redis/v9"
)

// RedisLedger implementa domain.Ledger com um script Lua: ler-decidir-decrementar
// roda inteiro dentro do Redis, então dois workers vendo estoque 1 jamais
// decrementam ambos. A trava de esgotado é uma chave separada, armada pelo
// próprio script na primeira tentativa que encontra estoque zero.
type RedisLedger struct {
	rdb *redis.Client
}

const (
	stockKeyPrefix = "seckill:stock:"
	overKeyPrefix  = "seckill:over:"
)

// KEYS[1] = estoque, KEYS[2] = trava de esgotado.
// Estoque ausente conta como zero (e arma a trava).
var decrementScript = redis.NewScript(`
local stock = tonumber(redis.call('GET', KEYS[1]) or '0')
if stock > 0 then
  redis.call('DECR', KEYS[1])
  return 1
end
redis.call('SET', KEYS[2], '1')
return 0
`)

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func (l *RedisLedger) SeedStock(ctx context.Context, item domain.ItemID, units int64) error {
	if units < 0 {
		return fmt.Errorf("ledger: negative stock for %s", item)
	}
	pipe := l.rdb.TxPipeline()
	pipe.Set(ctx, stockKeyPrefix+string(item), units, 0)
	pipe.Del(ctx, overKeyPrefix+string(item))
	_, err := pipe.Exec(ctx)
	return err
}

func (l *RedisLedger) TryDecrement(ctx context.Context, item domain.ItemID) (bool, error) {
	keys := []string{stockKeyPrefix + string(item), overKeyPrefix + string(item)}
	n, err := decrementScript.Run(ctx, l.rdb, keys).Int()
	if err != nil {
		return false, fmt.Errorf("ledger: decrement %s: %w", item, err)
	}
	return n == 1, nil
}

func (l *RedisLedger) IsExhausted(ctx context.Context, item domain.ItemID) (bool, error) {
	n, err := l.rdb.Exists(ctx, overKeyPrefix+string(item)).Result()
	if err != nil {
		return false, fmt.Errorf("ledger: exhaustion flag %s: %w", item, err)
	}
	return n > 0, nil
}
