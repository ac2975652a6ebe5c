package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"flashsale-gateway/seckill/domain"
	"flashsale-gateway/seckill/infra"
)

func intentPayload(t *testing.T, buyer domain.BuyerID, item domain.ItemID) []byte {
	t.Helper()
	payload, err := json.Marshal(domain.PurchaseIntent{
		BuyerID: buyer, ItemID: item, EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return payload
}

func sequentialIDs() func() int64 {
	var n int64
	return func() int64 {
		n++
		return n
	}
}

func TestFulfillmentWorker_CommitsOrderAndDecrementsStock(t *testing.T) {
	ledger := infra.NewMemoryLedger()
	journal := infra.NewMemoryJournal()
	ctx := context.Background()

	_ = ledger.SeedStock(ctx, "ipad", 1)

	w := FulfillmentWorker{Ledger: ledger, Journal: journal, NewOrderID: sequentialIDs()}
	if err := w.Handle(ctx, intentPayload(t, "buyer", "ipad")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, _ := journal.Find(ctx, "buyer", "ipad")
	if order == nil || order.OrderID != 1 {
		t.Fatalf("expected committed order 1, got %+v", order)
	}
	if ok, _ := ledger.TryDecrement(ctx, "ipad"); ok {
		t.Fatalf("expected stock drained to zero")
	}
}

func TestFulfillmentWorker_RedeliveryIsIdempotent(t *testing.T) {
	ledger := infra.NewMemoryLedger()
	journal := infra.NewMemoryJournal()
	ctx := context.Background()

	_ = ledger.SeedStock(ctx, "ipad", 5)

	w := FulfillmentWorker{Ledger: ledger, Journal: journal, NewOrderID: sequentialIDs()}
	msg := intentPayload(t, "buyer", "ipad")

	// entrega at-least-once: a mesma mensagem chega várias vezes
	for i := 0; i < 4; i++ {
		if err := w.Handle(ctx, msg); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i, err)
		}
	}

	if journal.Len() != 1 {
		t.Fatalf("expected a single order, got %d", journal.Len())
	}
	// só a primeira entrega decrementou: 4 unidades sobrando
	for i := 0; i < 4; i++ {
		if ok, _ := ledger.TryDecrement(ctx, "ipad"); !ok {
			t.Fatalf("expected %d remaining units, drained at %d", 4, i)
		}
	}
	if ok, _ := ledger.TryDecrement(ctx, "ipad"); ok {
		t.Fatalf("expected stock exhausted after 4 remaining units")
	}
}

func TestFulfillmentWorker_SoldOutDiscardsWithoutOrder(t *testing.T) {
	ledger := infra.NewMemoryLedger()
	journal := infra.NewMemoryJournal()
	ctx := context.Background()

	_ = ledger.SeedStock(ctx, "ipad", 0)

	w := FulfillmentWorker{Ledger: ledger, Journal: journal}
	if err := w.Handle(ctx, intentPayload(t, "buyer", "ipad")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if journal.Len() != 0 {
		t.Fatalf("expected no order when sold out, got %d", journal.Len())
	}
	if over, _ := ledger.IsExhausted(ctx, "ipad"); !over {
		t.Fatalf("expected exhaustion flag armed")
	}
}

func TestFulfillmentWorker_BuyerNeverWinsTwice(t *testing.T) {
	ledger := infra.NewMemoryLedger()
	journal := infra.NewMemoryJournal()
	ctx := context.Background()

	_ = ledger.SeedStock(ctx, "ipad", 10)

	w := FulfillmentWorker{Ledger: ledger, Journal: journal, NewOrderID: sequentialIDs()}
	_ = w.Handle(ctx, intentPayload(t, "buyer", "ipad"))
	_ = w.Handle(ctx, intentPayload(t, "buyer", "ipad"))

	if journal.Len() != 1 {
		t.Fatalf("expected one order per (buyer, item), got %d", journal.Len())
	}
}

func TestFulfillmentWorker_MalformedMessageIsDroppedNotRedelivered(t *testing.T) {
	w := FulfillmentWorker{Ledger: infra.NewMemoryLedger(), Journal: infra.NewMemoryJournal()}

	if err := w.Handle(context.Background(), []byte("not-json")); err != nil {
		t.Fatalf("expected poison message to be dropped, got %v", err)
	}
	if err := w.Handle(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("expected empty intent to be dropped, got %v", err)
	}
}

type failingJournal struct {
	*infra.MemoryJournal
	failFinds int
}

func (j *failingJournal) Find(ctx context.Context, buyer domain.BuyerID, item domain.ItemID) (*domain.Order, error) {
	if j.failFinds > 0 {
		j.failFinds--
		return nil, errors.New("storage down")
	}
	return j.MemoryJournal.Find(ctx, buyer, item)
}

func TestFulfillmentWorker_StorageErrorSurfacesForRedelivery(t *testing.T) {
	ledger := infra.NewMemoryLedger()
	journal := &failingJournal{MemoryJournal: infra.NewMemoryJournal(), failFinds: 1}
	ctx := context.Background()

	_ = ledger.SeedStock(ctx, "ipad", 1)

	w := FulfillmentWorker{Ledger: ledger, Journal: journal, NewOrderID: sequentialIDs()}
	msg := intentPayload(t, "buyer", "ipad")

	// primeira entrega: storage fora => erro (a fila vai reentregar)
	if err := w.Handle(ctx, msg); err == nil {
		t.Fatalf("expected error to trigger redelivery")
	}
	// reentrega: reentra no passo 1 e completa
	if err := w.Handle(ctx, msg); err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}

	order, _ := journal.MemoryJournal.Find(ctx, "buyer", "ipad")
	if order == nil {
		t.Fatalf("expected order committed after redelivery")
	}
}
