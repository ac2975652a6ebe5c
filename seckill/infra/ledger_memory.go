package infra

import (
	"context"
	"fmt"
	"sync"

	"flashsale-gateway/seckill/domain"
)

// MemoryLedger é a versão em memória de domain.Ledger: o mutex faz o papel do
// script Lua, mantendo o ler-decidir-decrementar atômico.
type MemoryLedger struct {
	mu    sync.Mutex
	stock map[domain.ItemID]int64
	over  map[domain.ItemID]bool
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		stock: make(map[domain.ItemID]int64),
		over:  make(map[domain.ItemID]bool),
	}
}

func (l *MemoryLedger) SeedStock(_ context.Context, item domain.ItemID, units int64) error {
	if units < 0 {
		return fmt.Errorf("ledger: negative stock for %s", item)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[item] = units
	delete(l.over, item)
	return nil
}

func (l *MemoryLedger) TryDecrement(_ context.Context, item domain.ItemID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stock[item] > 0 {
		l.stock[item]--
		return true, nil
	}
	l.over[item] = true
	return false, nil
}

func (l *MemoryLedger) IsExhausted(_ context.Context, item domain.ItemID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.over[item], nil
}
