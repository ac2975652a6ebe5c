package infra

import (
	"context"
	"sync"

	"flashsale-gateway/seckill/domain"
)

// MemoryJournal é a versão em memória de domain.Journal, com a mesma
// semântica de unicidade por (comprador, item).
type MemoryJournal struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{orders: make(map[string]domain.Order)}
}

func journalKey(buyer domain.BuyerID, item domain.ItemID) string {
	return string(buyer) + "_" + string(item)
}

func (j *MemoryJournal) TryCreate(_ context.Context, order domain.Order) (bool, error) {
	key := journalKey(order.BuyerID, order.ItemID)

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.orders[key]; exists {
		return false, nil
	}
	j.orders[key] = order
	return true, nil
}

func (j *MemoryJournal) Find(_ context.Context, buyer domain.BuyerID, item domain.ItemID) (*domain.Order, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	order, ok := j.orders[journalKey(buyer, item)]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

// Len devolve o total de pedidos (inspeção em testes).
func (j *MemoryJournal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.orders)
}
