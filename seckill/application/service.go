package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flashsale-gateway/seckill/domain"
)

// SubmitStatus é o resultado da tentativa de entrar na fila de compra.
type SubmitStatus int

const (
	// SubmitQueued: intenção aceita e publicada na fila.
	SubmitQueued SubmitStatus = iota
	// SubmitRejected: token de submissão ausente, expirado ou errado.
	SubmitRejected
	// SubmitSoldOut: a trava de esgotado já estava armada; nem enfileira.
	SubmitSoldOut
)

// Service é o caso de uso do caminho admitido: valida o token de submissão,
// corta cedo quando o item já esgotou e publica a intenção de compra.
//
// A publicação é fire-and-forget: quem decide o desfecho é o worker, e o
// comprador acompanha pelo Result.
type Service struct {
	Tokens  PathTokenService
	Ledger  domain.Ledger
	Journal domain.Journal
	Queue   domain.Publisher

	// Topic da fila de intenções. Default: DefaultTopic.
	Topic string

	now func() time.Time
}

// DefaultTopic é o tópico padrão da fila de intenções de compra.
const DefaultTopic = "seckill:purchase"

func (s Service) topic() string {
	if s.Topic == "" {
		return DefaultTopic
	}
	return s.Topic
}

// Submit valida e enfileira uma intenção de compra do par (comprador, item).
func (s Service) Submit(ctx context.Context, buyer domain.BuyerID, item domain.ItemID, token string) (SubmitStatus, error) {
	ok, err := s.Tokens.Verify(ctx, buyer, item, token)
	if err != nil {
		return SubmitRejected, err
	}
	if !ok {
		return SubmitRejected, nil
	}

	// atalho do esgotado: poupa a fila quando a venda já acabou
	over, err := s.Ledger.IsExhausted(ctx, item)
	if err != nil {
		return SubmitRejected, fmt.Errorf("seckill: exhaustion check: %w", err)
	}
	if over {
		return SubmitSoldOut, nil
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	payload, err := json.Marshal(domain.PurchaseIntent{
		BuyerID:    buyer,
		ItemID:     item,
		EnqueuedAt: now().UTC(),
	})
	if err != nil {
		return SubmitRejected, fmt.Errorf("seckill: encode intent: %w", err)
	}

	if err := s.Queue.Publish(ctx, s.topic(), payload); err != nil {
		return SubmitRejected, fmt.Errorf("seckill: publish intent: %w", err)
	}
	return SubmitQueued, nil
}

// Result é a consulta tri-estado, sem efeitos colaterais e segura para poll:
// order id positivo = ganhou; ResultSoldOut = perdeu, venda encerrada;
// ResultPending = ainda processando (ou a venda segue aberta).
func (s Service) Result(ctx context.Context, buyer domain.BuyerID, item domain.ItemID) (int64, error) {
	order, err := s.Journal.Find(ctx, buyer, item)
	if err != nil {
		return 0, fmt.Errorf("seckill: query journal: %w", err)
	}
	if order != nil {
		return order.OrderID, nil
	}

	over, err := s.Ledger.IsExhausted(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("seckill: exhaustion check: %w", err)
	}
	if over {
		return domain.ResultSoldOut, nil
	}
	return domain.ResultPending, nil
}
