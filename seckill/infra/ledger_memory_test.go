package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemoryLedger_DecrementUntilExhausted(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	if err := l.SeedStock(ctx, "ipad", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := l.TryDecrement(ctx, "ipad")
		if err != nil || !ok {
			t.Fatalf("decrement %d: expected ok, got (%v, %v)", i, ok, err)
		}
	}

	if over, _ := l.IsExhausted(ctx, "ipad"); over {
		t.Fatalf("expected flag unarmed until a decrement finds zero")
	}

	ok, err := l.TryDecrement(ctx, "ipad")
	if err != nil || ok {
		t.Fatalf("expected decrement at zero to fail, got (%v, %v)", ok, err)
	}
	if over, _ := l.IsExhausted(ctx, "ipad"); !over {
		t.Fatalf("expected exhaustion flag armed after failed decrement")
	}
}

func TestMemoryLedger_ExactlyKConcurrentDecrementsSucceed(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	if err := l.SeedStock(ctx, "iphone", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 100 compradores disputando 3 unidades: exatamente 3 vencem
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryDecrement(ctx, "iphone")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 3 {
		t.Fatalf("expected exactly 3 successful decrements, got %d", wins)
	}
	if over, _ := l.IsExhausted(ctx, "iphone"); !over {
		t.Fatalf("expected exhaustion flag armed")
	}
}

func TestMemoryLedger_SeedResetsExhaustionFlag(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	_ = l.SeedStock(ctx, "x", 0)
	_, _ = l.TryDecrement(ctx, "x")
	if over, _ := l.IsExhausted(ctx, "x"); !over {
		t.Fatalf("expected flag armed")
	}

	_ = l.SeedStock(ctx, "x", 5)
	if over, _ := l.IsExhausted(ctx, "x"); over {
		t.Fatalf("expected flag disarmed after reseed")
	}
}
