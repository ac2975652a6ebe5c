package application

import (
	"context"
	"fmt"
	"time"

	"flashsale-gateway/middleware/access/domain"
)

// Service concentra a regra de admissão por janela fixa.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Falha do store NÃO vira decisão: é devolvida como erro distinto
// (domain.ErrStoreUnavailable) e quem chama escolhe fail-open/fail-closed.
type Service struct {
	Store  domain.CounterStore
	Policy domain.Policy
}

// Admit conta mais uma observação de `key` dentro da janela da política.
//
// A primeira observação cria a janela e é sempre admitida; a observação de
// número MaxCount ainda passa; a seguinte é negada sem renovar a expiração.
func (s Service) Admit(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Store == nil {
		return domain.Decision{Allowed: true}, nil
	}

	window := s.Policy.Window
	if window <= 0 {
		window = time.Minute
	}
	max := s.Policy.MaxCount
	if max <= 0 {
		max = 1
	}

	count, err := s.Store.Incr(ctx, key, window)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if count <= max {
		return domain.Decision{Allowed: true}, nil
	}
	return domain.Decision{Allowed: false, RetryAfter: window}, nil
}
