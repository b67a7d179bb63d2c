package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/ordertriage/internal/domain/board"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/shopspring/decimal"
)

func pending(id string, minutesAgo int, amount int64) model.Order {
	return model.Order{
		ID:          id,
		Status:      "pendiente",
		CreatedAt:   time.Now().Add(-time.Duration(minutesAgo) * time.Minute),
		TotalAmount: decimal.NewFromInt(amount),
	}
}

func escalated(id string, minutesAgo int, amount int64) model.Order {
	o := pending(id, minutesAgo+60, amount)
	o.Status = "escalado"
	o.EscalatedAt = time.Now().Add(-time.Duration(minutesAgo) * time.Minute)
	return o
}

func newStore(t *testing.T) *BoardStore {
	t.Helper()
	s := NewBoardStore(context.Background())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoardStore_UpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if n := s.Count(ctx, ""); n != 0 {
		t.Fatalf("expected empty board, got %d", n)
	}

	created, err := s.Upsert(ctx, pending("o1", 10, 100))
	if err != nil || !created {
		t.Fatalf("expected first upsert to create, got created=%v err=%v", created, err)
	}
	created, err = s.Upsert(ctx, pending("o1", 20, 300))
	if err != nil || created {
		t.Fatalf("expected second upsert to replace, got created=%v err=%v", created, err)
	}

	o, role, err := s.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if role != types.RoleEvaluator || !o.TotalAmount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected last write on evaluator queue, got role=%s amount=%s", role, o.TotalAmount)
	}

	removed, _ := s.Remove(ctx, "o1")
	if !removed {
		t.Error("expected remove to report the order")
	}
	removed, _ = s.Remove(ctx, "o1")
	if removed {
		t.Error("expected second remove to be a no-op")
	}
	if _, _, err := s.Get(ctx, "o1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := s.Upsert(ctx, model.Order{}); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder, got %v", err)
	}
}

func TestBoardStore_EscalationMovesQueues(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, _ = s.Upsert(ctx, pending("o1", 30, 8000))
	if s.Count(ctx, types.RoleEvaluator) != 1 {
		t.Fatal("expected order on evaluator queue")
	}

	_, _ = s.Upsert(ctx, escalated("o1", 5, 8000))
	if s.Count(ctx, types.RoleEvaluator) != 0 || s.Count(ctx, types.RoleSupervisor) != 1 {
		t.Errorf("expected order to move to supervisor queue")
	}
}

func TestBoardStore_Replace(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, _ = s.Upsert(ctx, pending("stale", 10, 100))
	_, _ = s.Upsert(ctx, escalated("esc", 10, 100))

	closed := pending("done", 10, 100)
	closed.Status = "aprobado"
	err := s.Replace(ctx, types.RoleEvaluator, []model.Order{
		pending("fresh-1", 5, 100),
		pending("fresh-2", 50, 100),
		closed,
		{},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if _, _, err := s.Get(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Error("expected stale evaluator order to be dropped")
	}
	if _, _, err := s.Get(ctx, "done"); !errors.Is(err, ErrNotFound) {
		t.Error("expected closed order to be ignored")
	}
	if s.Count(ctx, types.RoleEvaluator) != 2 {
		t.Errorf("expected 2 evaluator orders, got %d", s.Count(ctx, types.RoleEvaluator))
	}
	if s.Count(ctx, types.RoleSupervisor) != 1 {
		t.Error("expected supervisor queue untouched")
	}

	if err := s.Replace(ctx, "ceo", nil); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestBoardStore_TopN(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, _ = s.Upsert(ctx, pending("low", 5, 100))
	_, _ = s.Upsert(ctx, pending("high", 150, 12000))
	_, _ = s.Upsert(ctx, escalated("urgent", 130, 25000))

	entries, skipped, err := s.TopN(ctx, board.View{
		Role:  types.RoleEvaluator,
		Now:   time.Now(),
		Limit: decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("topN: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("unexpected skipped orders: %v", skipped)
	}
	if len(entries) != 2 || entries[0].OrderID != "high" || entries[0].Score != 6 {
		t.Errorf("unexpected evaluator ranking: %+v", entries)
	}

	entries, _, err = s.TopN(ctx, board.View{Role: types.RoleSupervisor, Now: time.Now()})
	if err != nil {
		t.Fatalf("topN: %v", err)
	}
	if len(entries) != 1 || !entries[0].Urgent {
		t.Errorf("unexpected supervisor ranking: %+v", entries)
	}

	if _, _, err := s.TopN(ctx, board.View{Role: types.RoleEvaluator, Now: time.Now()}); !errors.Is(err, board.ErrInvalidView) {
		t.Errorf("expected ErrInvalidView for missing limit, got %v", err)
	}
}

func TestBoardStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("o-%d", i)
				_, _ = s.Upsert(ctx, pending(id, w, int64(i)))
				_, _, _ = s.TopN(ctx, board.View{Role: types.RoleEvaluator, Now: time.Now(), Limit: decimal.NewFromInt(5000)})
			}
		}(w)
	}
	wg.Wait()

	if n := s.Count(ctx, ""); n != 50 {
		t.Errorf("expected 50 distinct orders, got %d", n)
	}
}

func BenchmarkBoardStore_TopN(b *testing.B) {
	ctx := context.Background()
	s := NewBoardStore(ctx)
	defer s.Close()
	for i := 0; i < 2000; i++ {
		_, _ = s.Upsert(ctx, pending(fmt.Sprintf("o-%d", i), i%300, int64(i*10)))
	}
	view := board.View{Role: types.RoleEvaluator, Now: time.Now(), Limit: decimal.NewFromInt(5000), N: 50}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := s.TopN(ctx, view); err != nil {
			b.Fatal(err)
		}
	}
}
