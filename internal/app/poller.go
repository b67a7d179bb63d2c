package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/ordertriage/internal/adapters/backend"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/okian/ordertriage/pkg/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Source is the backend the board is rehydrated from.
type Source interface {
	PendingOrders(ctx context.Context) ([]model.Order, []backend.RecordError, error)
	EscalatedOrders(ctx context.Context) ([]model.Order, []backend.RecordError, error)
	ApprovalLimit(ctx context.Context) (decimal.Decimal, error)
}

// Refresh fetches both queues and the approval limit in parallel and
// replaces the board. A failed fetch keeps that part of the board as it
// was; the other parts are still applied.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.RLock()
	src, store, started := s.source, s.store, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if src == nil {
		return ErrNoSource
	}

	start := time.Now()
	var (
		g                       errgroup.Group
		pendErr, escErr, limErr error
	)
	g.Go(func() error {
		pendErr = s.refreshRole(ctx, store.Replace, types.RoleEvaluator, src.PendingOrders)
		return nil
	})
	g.Go(func() error {
		escErr = s.refreshRole(ctx, store.Replace, types.RoleSupervisor, src.EscalatedOrders)
		return nil
	})
	g.Go(func() error {
		limit, err := src.ApprovalLimit(ctx)
		if err != nil {
			limErr = fmt.Errorf("approval limit: %w", err)
			return nil
		}
		s.setLimit(limit)
		return nil
	})
	_ = g.Wait()

	err := errors.Join(pendErr, escErr, limErr)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.logger.Warn(ctx, "board refresh incomplete", logger.Error(err))
	}
	metrics.RecordPoll(outcome, float64(time.Since(start).Milliseconds()))
	return err
}

type fetchFunc func(context.Context) ([]model.Order, []backend.RecordError, error)

type replaceFunc func(context.Context, types.Role, []model.Order) error

func (s *Service) refreshRole(ctx context.Context, replace replaceFunc, role types.Role, fetch fetchFunc) error {
	orders, bad, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("%s orders: %w", role, err)
	}
	for _, rec := range bad {
		metrics.RecordErrorByComponent("backend", "decode")
		s.logger.Warn(ctx, "skipping backend record",
			logger.String("role", string(role)),
			logger.Int("index", rec.Index),
			logger.Error(rec.Err),
		)
	}
	if err := replace(ctx, role, orders); err != nil {
		return fmt.Errorf("%s replace: %w", role, err)
	}
	s.logger.Debug(ctx, "board refreshed",
		logger.String("role", string(role)),
		logger.Int("orders", len(orders)),
		logger.Int("skipped", len(bad)),
	)
	return nil
}

// cronLogger routes scheduler messages into the service logger.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(context.Background(), msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(context.Background(), msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
