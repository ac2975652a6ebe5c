package infra

import (
	"context"
	"errors"
	"log"
	"time"

	"flashsale-gateway/seckill/domain"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implementa a fila de intenções sobre listas do Redis.
//
// Publish faz LPUSH; o consumo usa BLMOVE para uma lista de processamento e só
// remove de lá depois do handler devolver nil. Handler com erro devolve a
// mensagem para a ponta de consumo; é isso que dá o at-least-once. FIFO vale
// por produtor; entre produtores não há ordem global.
type RedisQueue struct {
	rdb *redis.Client

	// BlockTimeout do BLMOVE. Default: 1s (mantém o loop sensível ao ctx).
	BlockTimeout time.Duration
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Publish(ctx context.Context, topic string, payload []byte) error {
	return q.rdb.LPush(ctx, topic, payload).Err()
}

// Consume drena `topic` até o ctx encerrar. Seguro rodar em várias goroutines:
// cada BLMOVE entrega a mensagem para exatamente um consumidor.
func (q *RedisQueue) Consume(ctx context.Context, topic string, h domain.Handler) error {
	processing := topic + ":processing"
	block := q.BlockTimeout
	if block <= 0 {
		block = time.Second
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := q.rdb.BLMove(ctx, topic, processing, "RIGHT", "LEFT", block).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("queue: blmove %s: %v", topic, err)
			time.Sleep(250 * time.Millisecond)
			continue
		}

		if err := h(ctx, []byte(msg)); err != nil {
			log.Printf("queue: handler error on %s, redelivering: %v", topic, err)
			// devolve ESTA mensagem, por valor: a lista de processamento é
			// compartilhada entre consumidores, então mover a cabeça dela
			// poderia reentregar a mensagem de outro consumidor e deixar a
			// que falhou encalhada lá para sempre
			pipe := q.rdb.TxPipeline()
			pipe.LRem(ctx, processing, 1, msg)
			// RPUSH na ponta de consumo: redelivery imediato
			pipe.RPush(ctx, topic, msg)
			if _, err := pipe.Exec(ctx); err != nil {
				log.Printf("queue: redeliver %s: %v", topic, err)
			}
			continue
		}

		if err := q.rdb.LRem(ctx, processing, 1, msg).Err(); err != nil {
			log.Printf("queue: ack %s: %v", topic, err)
		}
	}
}
