package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão registrada para observação.
//
// Method/Path são strings genéricas de propósito (servem para web, gRPC, etc).
// Cuidado com cardinalidade ao gravar Key sem controle.
type StatsEvent struct {
	Key     Key
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência das estatísticas de admissão.
//
// O middleware trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
