package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ordertriage/internal/domain/board"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/okian/ordertriage/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

type slot struct {
	order model.Order
	role  types.Role
}

// BoardStore is a map-backed Store. Ranking happens on read, so writes
// never touch scores.
type BoardStore struct {
	mu   sync.RWMutex
	byID map[string]slot

	metricsUpdateInterval time.Duration
	stopChan              chan struct{}
	stopOnce              sync.Once
	wg                    sync.WaitGroup
}

// NewBoardStore creates an empty board and starts its metrics updater.
func NewBoardStore(ctx context.Context, opts ...Option) *BoardStore {
	s := &BoardStore{
		byID:                  make(map[string]slot),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// RoleOf returns the queue an order belongs on.
func RoleOf(o *model.Order) types.Role {
	if o.Escalated() {
		return types.RoleSupervisor
	}
	return types.RoleEvaluator
}

func (s *BoardStore) Upsert(_ context.Context, o model.Order) (bool, error) { //nolint:gocritic // hugeParam: stored by value
	if o.ID == "" {
		return false, fmt.Errorf("%w: missing id", ErrInvalidOrder)
	}
	s.mu.Lock()
	_, existed := s.byID[o.ID]
	s.byID[o.ID] = slot{order: o, role: RoleOf(&o)}
	s.mu.Unlock()

	metrics.RecordBoardUpsert()
	return !existed, nil
}

func (s *BoardStore) Remove(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	_, existed := s.byID[orderID]
	delete(s.byID, orderID)
	s.mu.Unlock()

	if existed {
		metrics.RecordBoardRemoval()
	}
	return existed, nil
}

func (s *BoardStore) Replace(_ context.Context, role types.Role, orders []model.Order) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	next := make(map[string]slot, len(orders))
	for _, o := range orders {
		if o.ID == "" || o.Closed() {
			continue
		}
		next[o.ID] = slot{order: o, role: role}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sl := range s.byID {
		if sl.role == role {
			delete(s.byID, id)
		}
	}
	for id, sl := range next {
		s.byID[id] = sl
	}
	return nil
}

func (s *BoardStore) Get(_ context.Context, orderID string) (model.Order, types.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.byID[orderID]
	if !ok {
		return model.Order{}, "", ErrNotFound
	}
	return sl.order, sl.role, nil
}

func (s *BoardStore) Orders(_ context.Context, role types.Role) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0, len(s.byID))
	for _, sl := range s.byID {
		if sl.role == role {
			out = append(out, sl.order)
		}
	}
	return out
}

func (s *BoardStore) TopN(ctx context.Context, view board.View) ([]types.Entry, []board.Skipped, error) {
	start := time.Now()
	entries, skipped, err := board.Rank(view, s.Orders(ctx, view.Role))
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	return entries, skipped, nil
}

func (s *BoardStore) Count(_ context.Context, role types.Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if role == "" {
		return len(s.byID)
	}
	n := 0
	for _, sl := range s.byID {
		if sl.role == role {
			n++
		}
	}
	return n
}

// Close stops the metrics updater.
func (s *BoardStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *BoardStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *BoardStore) updateMetrics(ctx context.Context) {
	metrics.UpdateBoardOrders(string(types.RoleEvaluator), s.Count(ctx, types.RoleEvaluator))
	metrics.UpdateBoardOrders(string(types.RoleSupervisor), s.Count(ctx, types.RoleSupervisor))
}
