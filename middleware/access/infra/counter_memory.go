package infra

import (
	"context"
	"sync"
	"time"

	"flashsale-gateway/middleware/access/domain"
)

// MemoryCounterStore é uma implementação de domain.CounterStore em memória.
// Útil para testes e desenvolvimento; não compartilha estado entre instâncias.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[domain.Key]*counterEntry

	now func() time.Time
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[domain.Key]*counterEntry),
		now:     time.Now,
	}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key domain.Key, window time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || !now.Before(ent.expiresAt) {
		// janela nova: expiração ancorada nesta primeira observação
		s.entries[key] = &counterEntry{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}

	ent.count++
	return ent.count, nil
}

// Cleanup remove janelas já expiradas. Chamado pelo janitor do gateway.
func (s *MemoryCounterStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if !now.Before(ent.expiresAt) {
			delete(s.entries, k)
		}
	}
}
