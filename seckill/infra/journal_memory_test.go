package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flashsale-gateway/seckill/domain"
)

func TestMemoryJournal_TryCreateIsIdempotentPerPair(t *testing.T) {
	j := NewMemoryJournal()
	ctx := context.Background()

	created, err := j.TryCreate(ctx, domain.Order{BuyerID: "b", ItemID: "i", OrderID: 42, CreatedAt: time.Now()})
	if err != nil || !created {
		t.Fatalf("expected first create, got (%v, %v)", created, err)
	}

	created, err = j.TryCreate(ctx, domain.Order{BuyerID: "b", ItemID: "i", OrderID: 99, CreatedAt: time.Now()})
	if err != nil || created {
		t.Fatalf("expected second create to be a no-op, got (%v, %v)", created, err)
	}

	// a entrada original fica intacta
	order, err := j.Find(ctx, "b", "i")
	if err != nil || order == nil || order.OrderID != 42 {
		t.Fatalf("expected original order 42, got (%+v, %v)", order, err)
	}
}

func TestMemoryJournal_ConcurrentTryCreateAllowsExactlyOne(t *testing.T) {
	j := NewMemoryJournal()
	ctx := context.Background()

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			created, err := j.TryCreate(ctx, domain.Order{
				BuyerID: "b", ItemID: "i", OrderID: int64(n + 1), CreatedAt: time.Now(),
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if created {
				atomic.AddInt64(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly 1 create to win, got %d", wins)
	}
	if j.Len() != 1 {
		t.Fatalf("expected 1 journal entry, got %d", j.Len())
	}
}

func TestMemoryJournal_FindAbsentReturnsNil(t *testing.T) {
	j := NewMemoryJournal()

	order, err := j.Find(context.Background(), "nobody", "nothing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Fatalf("expected nil for absent pair, got %+v", order)
	}
}
