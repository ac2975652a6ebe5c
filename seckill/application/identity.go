package application

import (
	"context"
	"fmt"
	"time"

	"flashsale-gateway/seckill/domain"
)

// SessionResolver implementa o colaborador de identidade do middleware de
// admissão em cima do keyed store: credencial => comprador.
//
// A emissão de sessão/token fica fora deste núcleo; aqui só se lê.
type SessionResolver struct {
	Store domain.KVStore
}

func (r SessionResolver) Resolve(ctx context.Context, credential string) (string, bool, error) {
	if credential == "" {
		return "", false, nil
	}
	buyer, ok, err := r.Store.Get(ctx, sessionKeyPrefix+credential)
	if err != nil {
		return "", false, fmt.Errorf("session: resolve credential: %w", err)
	}
	return buyer, ok, nil
}

// Grant associa uma credencial a um comprador por ttl. Com ttl zero a sessão
// não expira (útil para seed de ambiente de desenvolvimento).
func (r SessionResolver) Grant(ctx context.Context, credential string, buyer domain.BuyerID, ttl time.Duration) error {
	if err := r.Store.Set(ctx, sessionKeyPrefix+credential, string(buyer), ttl); err != nil {
		return fmt.Errorf("session: grant credential: %w", err)
	}
	return nil
}
