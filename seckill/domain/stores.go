package domain

import (
	"context"
	"time"
)

// KVStore é o colaborador de armazenamento chaveado com expiração por chave.
// Serve desafios, tokens de submissão e sessões.
type KVStore interface {
	// Get devolve (valor, existe, erro). Chave expirada conta como ausente.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set grava o valor com o ttl dado (ttl <= 0: sem expiração).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// GetDel lê e apaga atomicamente; é o que torna o verify do desafio
	// single-shot sem janela para brute force.
	GetDel(ctx context.Context, key string) (string, bool, error)

	Delete(ctx context.Context, key string) error
}

// Ledger é o contador autoritativo de estoque.
//
// TryDecrement é um read-modify-write atômico entre todos os workers: dois
// decrementos concorrentes vendo estoque 1 jamais podem ambos vencer. Quando o
// estoque chega a zero, a trava de esgotado é armada (one-way) e fica armada.
type Ledger interface {
	// SeedStock define o estoque inicial do item e desarma a trava.
	SeedStock(ctx context.Context, item ItemID, units int64) error

	// TryDecrement devolve ok=true se decrementou uma unidade; ok=false se o
	// estoque já estava em zero (e nesse caso arma a trava de esgotado).
	TryDecrement(ctx context.Context, item ItemID) (bool, error)

	// IsExhausted é a leitura barata da trava, usada pela consulta de resultado.
	IsExhausted(ctx context.Context, item ItemID) (bool, error)
}

// Journal é o diário append-only de pedidos com unicidade por (comprador, item).
type Journal interface {
	// TryCreate insere o pedido se ainda não existir entrada para o par.
	// created=false é um no-op idempotente; é isso que torna a entrega
	// duplicada da fila inofensiva.
	TryCreate(ctx context.Context, order Order) (created bool, err error)

	// Find devolve o pedido do par, ou nil quando ausente.
	Find(ctx context.Context, buyer BuyerID, item ItemID) (*Order, error)
}

// Handler processa uma mensagem entregue pela fila. Erro => a mensagem volta
// para a fila (redelivery); nil => ack.
type Handler func(ctx context.Context, payload []byte) error

// Publisher é o lado de produção da fila de intenções de compra.
// Publish é fire-and-forget do ponto de vista da admissão.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Consumer é o lado de consumo: entrega at-least-once, FIFO por produtor.
// Consume bloqueia drenando o tópico até o ctx encerrar.
type Consumer interface {
	Consume(ctx context.Context, topic string, h Handler) error
}
