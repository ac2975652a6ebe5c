package infra

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCounterStore_WindowAnchoredOnFirstIncr(t *testing.T) {
	s := NewMemoryCounterStore()
	base := time.Now()
	s.now = func() time.Time { return base }

	for want := int64(1); want <= 3; want++ {
		got, err := s.Incr(context.Background(), "k", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	// quase no fim da janela: ainda conta na mesma
	s.now = func() time.Time { return base.Add(59 * time.Second) }
	got, err := s.Incr(context.Background(), "k", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Fatalf("expected count 4 inside window, got %d", got)
	}

	// janela expirou: volta para 1
	s.now = func() time.Time { return base.Add(61 * time.Second) }
	got, err = s.Incr(context.Background(), "k", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected count reset to 1 after window, got %d", got)
	}
}

func TestMemoryCounterStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryCounterStore()

	if got, _ := s.Incr(context.Background(), "a", time.Minute); got != 1 {
		t.Fatalf("expected count 1 for key a, got %d", got)
	}
	if got, _ := s.Incr(context.Background(), "b", time.Minute); got != 1 {
		t.Fatalf("expected count 1 for key b, got %d", got)
	}
}

func TestMemoryCounterStore_CleanupRemovesExpiredWindows(t *testing.T) {
	s := NewMemoryCounterStore()
	base := time.Now()
	s.now = func() time.Time { return base }

	_, _ = s.Incr(context.Background(), "k", time.Millisecond)

	s.now = func() time.Time { return base.Add(time.Second) }
	s.Cleanup()

	s.mu.Lock()
	_, ok := s.entries["k"]
	s.mu.Unlock()
	if ok {
		t.Fatalf("expected expired entry to be removed")
	}
}
