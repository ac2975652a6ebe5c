package infra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// BucketGuard é um token bucket local por chave (x/time/rate), com cache e
// limpeza periódica.
//
// Ele roda na frente da janela fixa compartilhada: segura rajadas do mesmo
// cliente sem custar uma ida ao Redis por requisição abusiva.
type BucketGuard struct {
	mu           sync.Mutex
	entries      map[string]*guardEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type guardEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type BucketOption func(*BucketGuard)

func WithIdleTTL(d time.Duration) BucketOption {
	return func(g *BucketGuard) { g.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) BucketOption {
	return func(g *BucketGuard) { g.cleanupEvery = d }
}

func NewBucketGuard(rps float64, burst int, opts ...BucketOption) *BucketGuard {
	g := &BucketGuard{
		entries:      make(map[string]*guardEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow consome um token do bucket da chave (criando-o na primeira vez).
func (g *BucketGuard) Allow(key string) bool {
	now := time.Now()

	g.mu.Lock()
	ent, ok := g.entries[key]
	if !ok {
		ent = &guardEntry{lim: rate.NewLimiter(g.rps, g.burst)}
		g.entries[key] = ent
	}
	ent.lastSeen = now
	g.mu.Unlock()

	return ent.lim.Allow()
}

func (g *BucketGuard) Cleanup() {
	cutoff := time.Now().Add(-g.idleTTL)

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, ent := range g.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(g.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa buckets inativos periodicamente.
// Pare cancelando o contexto.
func (g *BucketGuard) StartJanitor(ctx DoneContext) {
	if g.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(g.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar
// context aqui. (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
