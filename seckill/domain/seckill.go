package domain

import "time"

// BuyerID identifica um comprador já autenticado.
type BuyerID string

// ItemID identifica um item à venda.
type ItemID string

// Challenge é o desafio aritmético mostrado ao comprador antes da compra.
// A resposta esperada fica guardada no keyed store, não aqui.
type Challenge struct {
	Text string        `json:"text"`
	TTL  time.Duration `json:"ttl"`
}

// PurchaseIntent é a mensagem imutável que atravessa a fila da admissão até o
// worker de fulfillment. A entrega é at-least-once: o consumidor precisa ser
// idempotente para duplicatas.
type PurchaseIntent struct {
	BuyerID    BuyerID   `json:"buyer_id"`
	ItemID     ItemID    `json:"item_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Order é uma entrada do diário de pedidos. Vale no máximo uma por
// (comprador, item), para sempre. É essa unicidade que impede venda dupla.
type Order struct {
	BuyerID   BuyerID   `json:"buyer_id"`
	ItemID    ItemID    `json:"item_id"`
	OrderID   int64     `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Resultado tri-estado da consulta: um order id positivo significa "ganhou";
// os sentinelas abaixo cobrem os outros dois estados.
const (
	// ResultPending: ainda processando, ou a venda segue aberta.
	ResultPending int64 = 0
	// ResultSoldOut: estoque esgotado e nenhum pedido para o comprador.
	ResultSoldOut int64 = -1
)
