package application

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"flashsale-gateway/seckill/domain"

	"github.com/google/uuid"
)

// FulfillmentWorker é o consumidor da fila de intenções, e o único
// componente que mexe no estoque e no diário de pedidos.
//
// A máquina de estados por mensagem termina em todos os caminhos:
//
//  1. duplicata: já existe pedido do par => descarta (cobre redelivery e
//     comprador que já ganhou)
//  2. estoque: TryDecrement falhou => venda esgotada, descarta
//  3. commit: gera order id novo e grava no diário
//
// Erro de storage em qualquer passo vira erro do handler, ou seja, redelivery;
// reentrar no passo 1 é seguro porque a duplicata corta curto.
type FulfillmentWorker struct {
	Ledger  domain.Ledger
	Journal domain.Journal

	// NewOrderID permite order ids determinísticos nos testes.
	// Default: derivado de UUID, sempre positivo.
	NewOrderID func() int64

	now func() time.Time
}

// Handle implementa domain.Handler para mensagens PurchaseIntent.
func (w FulfillmentWorker) Handle(ctx context.Context, payload []byte) error {
	var intent domain.PurchaseIntent
	if err := json.Unmarshal(payload, &intent); err != nil {
		// mensagem venenosa: redelivery não vai ajudar, descarta com log
		log.Printf("fulfillment: dropping malformed intent: %v", err)
		return nil
	}
	if intent.BuyerID == "" || intent.ItemID == "" {
		log.Printf("fulfillment: dropping intent without buyer/item")
		return nil
	}

	// 1) duplicata
	existing, err := w.Journal.Find(ctx, intent.BuyerID, intent.ItemID)
	if err != nil {
		return fmt.Errorf("fulfillment: duplicate check: %w", err)
	}
	if existing != nil {
		return nil
	}

	// 2) estoque
	ok, err := w.Ledger.TryDecrement(ctx, intent.ItemID)
	if err != nil {
		return fmt.Errorf("fulfillment: decrement stock: %w", err)
	}
	if !ok {
		return nil
	}

	// 3) commit
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	order := domain.Order{
		BuyerID:   intent.BuyerID,
		ItemID:    intent.ItemID,
		OrderID:   w.orderID(),
		CreatedAt: now().UTC(),
	}
	created, err := w.Journal.TryCreate(ctx, order)
	if err != nil {
		return fmt.Errorf("fulfillment: create order: %w", err)
	}
	if !created {
		// corrida rara: outra mensagem do mesmo par venceu entre os passos 1 e 3.
		// A unidade decrementada fica consumida de propósito: devolver estoque
		// reabriria outra corrida. Nunca vender duas vezes > nunca perder uma unidade.
		log.Printf("fulfillment: lost create race for %s/%s, unit kept consumed",
			intent.BuyerID, intent.ItemID)
	}
	return nil
}

func (w FulfillmentWorker) orderID() int64 {
	if w.NewOrderID != nil {
		return w.NewOrderID()
	}
	return newOrderID()
}

// newOrderID deriva um id positivo dos primeiros bytes de um UUID v4.
func newOrderID() int64 {
	for {
		u := uuid.New()
		id := int64(binary.BigEndian.Uint64(u[:8]) &^ (1 << 63))
		if id > 0 {
			return id
		}
	}
}
