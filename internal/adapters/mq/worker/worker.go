// Package worker applies queued push updates to the order board.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/okian/ordertriage/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Update abstracts what workers read off the queue.
type Update = model.Update

// Board is the last-write-wins order store the workers patch.
type Board interface {
	Upsert(ctx context.Context, o model.Order) (bool, error)
	Remove(ctx context.Context, orderID string) (bool, error)
}

// Queue defines how workers receive updates.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Update
}

// NoticeHandler receives system and emergency messages.
type NoticeHandler func(ctx context.Context, u Update)

// Worker processes updates until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for a single goroutine.
type InMemoryWorker struct {
	queue    Queue
	board    Board
	notice   NoticeHandler
	name     string
	onApply  func()
	shutdown chan struct{}
	done     chan struct{}
	logger   logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, board Board, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		board:    board,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run drains the queue until ctx is done, Shutdown is called, or the queue closes.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	updates := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			// One bad update never stops the loop.
			if err := w.apply(ctx, u); err != nil {
				w.logger.Error(ctx, "update skipped",
					logger.String("event_id", u.EventID),
					logger.String("kind", string(u.Kind)),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) apply(ctx context.Context, u Update) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	switch {
	case u.Kind.CarriesOrder():
		if err := w.applyOrder(ctx, u); err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "board_update")
			return err
		}
	case u.Kind == model.UpdateSystem || u.Kind == model.UpdateEmergency:
		metrics.RecordNotice(string(u.Kind))
		if u.Kind == model.UpdateEmergency {
			w.logger.Warn(ctx, "emergency message", logger.String("event_id", u.EventID), logger.String("message", u.Message))
		} else {
			w.logger.Info(ctx, "system message", logger.String("event_id", u.EventID), logger.String("message", u.Message))
		}
		if w.notice != nil {
			w.notice(ctx, u)
		}
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "unknown_kind")
		return fmt.Errorf("%w: %q", ErrUnknownKind, u.Kind)
	}

	metrics.RecordUpdateApplied(string(u.Kind))
	if w.onApply != nil {
		w.onApply()
	}
	return nil
}

func (w *InMemoryWorker) applyOrder(ctx context.Context, u Update) error { //nolint:gocritic // hugeParam
	if u.Order.ID == "" {
		return ErrMissingOrder
	}
	if u.Order.Closed() {
		if _, err := w.board.Remove(ctx, u.Order.ID); err != nil {
			return fmt.Errorf("remove order %s: %w", u.Order.ID, err)
		}
		return nil
	}
	if _, err := w.board.Upsert(ctx, u.Order); err != nil {
		return fmt.Errorf("upsert order %s: %w", u.Order.ID, err)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}

	processed atomic.Int64
	lastTick  time.Time

	logger logger.Logger
}

// NewPool creates workerCount workers. Values below 1 default to NumCPU*2.
func NewPool(workerCount int, queue Queue, board Board, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		lastTick: time.Now(),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{
			WithName("worker-" + strconv.Itoa(i)),
			withApplyHook(p.RecordProcessedMessage),
		}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, board, wopts...)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			if secs := now.Sub(p.lastTick).Seconds(); secs > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(p.processed.Swap(0)) / secs)
			}
			p.lastTick = now
		}
	}
}

// RecordProcessedMessage increments the processed message count.
func (p *Pool) RecordProcessedMessage() {
	p.processed.Add(1)
}

// Shutdown closes the queue, lets workers drain it, and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
