package infra

import (
	"context"
	"sync"
	"time"
)

// MemoryKV é a versão em memória de domain.KVStore, para testes e
// desenvolvimento. Expiração é preguiçosa (na leitura) + Cleanup opcional.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]kvEntry

	now func() time.Time
}

type kvEntry struct {
	value     string
	expiresAt time.Time // zero = sem expiração
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]kvEntry),
		now:     time.Now,
	}
}

func (s *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	return ent.value, true, nil
}

func (s *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = kvEntry{value: value, expiresAt: exp}
	return nil
}

func (s *MemoryKV) GetDel(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	delete(s.entries, key)
	return ent.value, true, nil
}

func (s *MemoryKV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// live devolve a entrada se existir e não tiver expirado; apaga se expirou.
// Chamar com o mutex preso.
func (s *MemoryKV) live(key string) (kvEntry, bool) {
	ent, ok := s.entries[key]
	if !ok {
		return kvEntry{}, false
	}
	if !ent.expiresAt.IsZero() && !s.now().Before(ent.expiresAt) {
		delete(s.entries, key)
		return kvEntry{}, false
	}
	return ent, true
}

// Cleanup remove entradas expiradas. Útil com o janitor do gateway.
func (s *MemoryKV) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, ent := range s.entries {
		if !ent.expiresAt.IsZero() && !now.Before(ent.expiresAt) {
			delete(s.entries, k)
		}
	}
}
