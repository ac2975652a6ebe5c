package domain

import (
	"context"
	"errors"
	"time"
)

// Key identifica quem está sendo limitado (ex: rota, rota_comprador).
type Key string

// Policy descreve a regra de admissão de uma rota.
//
// A janela é ancorada na primeira observação da chave: tentativas negadas
// NÃO renovam a expiração.
type Policy struct {
	Window   time.Duration
	MaxCount int64

	// RequiresIdentity rejeita chamadores anônimos antes do rate limit.
	RequiresIdentity bool

	// FailOpen decide o comportamento quando o store está indisponível.
	// O padrão (false) é fail-closed: negar, para não mascarar abuso.
	FailOpen bool

	// MaxConcurrent limita requisições simultâneas na rota (0 = sem limite).
	MaxConcurrent int
}

// CounterStore é o contador de janela fixa compartilhado entre instâncias.
//
// Incr incrementa atomicamente o contador de `key` e devolve o valor após o
// incremento. Quando o contador nasce (valor 1), a implementação deve criar a
// janela com a expiração dada; incrementos seguintes não podem renová-la.
type CounterStore interface {
	Incr(ctx context.Context, key Key, window time.Duration) (int64, error)
}

// IdentityResolver traduz uma credencial opaca (cookie, header) em um
// identificador de comprador. ok=false significa "anônimo".
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (buyerID string, ok bool, err error)
}

// Decision é o resultado da admissão.
type Decision struct {
	Allowed bool
	// RetryAfter é o valor recomendado para o header Retry-After ao negar.
	RetryAfter time.Duration
}

// ErrStoreUnavailable sinaliza falha de infraestrutura no CounterStore.
// Quem chama decide fail-open ou fail-closed; nunca é tratado como "allowed"
// silenciosamente.
var ErrStoreUnavailable = errors.New("access: counter store unavailable")
