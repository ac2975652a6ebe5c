package infra

import (
	"context"
	"errors"
	"sync"

	"flashsale-gateway/seckill/domain"
)

// MemoryQueue é a fila em memória com o mesmo contrato da RedisQueue:
// FIFO por produtor, at-least-once (handler com erro reempilha a mensagem no
// fim da fila). Para testes e desenvolvimento de instância única.
type MemoryQueue struct {
	mu     sync.Mutex
	topics map[string]chan []byte

	// Capacity de cada tópico. Default: 1024.
	Capacity int
}

// ErrQueueFull sinaliza tópico cheio no Publish (a admissão trata como
// indisponibilidade, não como sucesso).
var ErrQueueFull = errors.New("queue: topic full")

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{topics: make(map[string]chan []byte)}
}

func (q *MemoryQueue) channel(topic string) chan []byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch, ok := q.topics[topic]
	if !ok {
		size := q.Capacity
		if size <= 0 {
			size = 1024
		}
		ch = make(chan []byte, size)
		q.topics[topic] = ch
	}
	return ch
}

func (q *MemoryQueue) Publish(_ context.Context, topic string, payload []byte) error {
	msg := make([]byte, len(payload))
	copy(msg, payload)

	select {
	case q.channel(topic) <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume drena `topic` até o ctx encerrar.
func (q *MemoryQueue) Consume(ctx context.Context, topic string, h domain.Handler) error {
	ch := q.channel(topic)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := h(ctx, msg); err != nil {
				// redelivery: tenta devolver; se o ctx morreu, desiste
				select {
				case ch <- msg:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Len devolve o tamanho atual do tópico (inspeção em testes).
func (q *MemoryQueue) Len(topic string) int {
	return len(q.channel(topic))
}
