// Package service wires the board, the update pipeline, the backend poller
// and the push feed behind the operations the HTTP API needs.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/ordertriage/internal/adapters/feed"
	updatequeue "github.com/okian/ordertriage/internal/adapters/mq/queue"
	workerpool "github.com/okian/ordertriage/internal/adapters/mq/worker"
	repository "github.com/okian/ordertriage/internal/adapters/repository"
	"github.com/okian/ordertriage/internal/domain/board"
	"github.com/okian/ordertriage/internal/domain/dedupe"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/okian/ordertriage/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

const (
	defaultLimit      = 5000
	defaultNoticeCap  = 50
	stopTimeout       = 10 * time.Second
	defaultDedupeSize = 50_000
	defaultQueueSize  = 10_000
	workerMultiplier  = 2
)

// Service implements the API dependencies for the triage board.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	queue      updatequeue.Queue
	workerPool *workerpool.Pool
	scheduler  *cron.Cron
	subscriber *feed.Subscriber

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	noticeCap   int
	evaluatorID string
	source      Source
	schedule    cron.Schedule
	feedURL     string
	feedOpts    []feed.Option
	now         func() time.Time

	// State
	limit   decimal.Decimal
	notices []types.Notice
	started bool
	cancel  context.CancelFunc
	feedWG  sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * workerMultiplier,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		noticeCap:   defaultNoticeCap,
		limit:       decimal.NewFromInt(defaultLimit),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components, loads the board once and starts the
// workers, the poll schedule and the feed.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting triage service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewBoardStore(runCtx)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = updatequeue.NewInMemoryQueue(
		updatequeue.WithCapacity(s.queueSize),
		updatequeue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.store,
		workerpool.WithNoticeHandler(s.recordNotice),
	)
	s.workerPool.Start(runCtx)
	s.started = true
	s.mu.Unlock()

	if s.source != nil {
		// A backend that is down at startup must not keep the API from serving.
		_ = s.Refresh(ctx)
		if s.schedule != nil {
			s.startScheduler(runCtx)
		}
	}
	if s.feedURL != "" {
		s.startFeed(runCtx)
	}

	s.logger.Info(ctx, "triage service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("polling", s.schedule != nil && s.source != nil),
		logger.Bool("feed", s.feedURL != ""),
	)
	return nil
}

func (s *Service) startScheduler(ctx context.Context) {
	cl := cronLogger{l: s.logger.Named("poller")}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		_ = s.Refresh(ctx)
	}))
	c.Start()

	s.mu.Lock()
	s.scheduler = c
	s.mu.Unlock()
}

func (s *Service) startFeed(ctx context.Context) {
	sub := feed.NewSubscriber(s.feedURL, s.HandlePush, s.feedOpts...)
	s.mu.Lock()
	s.subscriber = sub
	s.mu.Unlock()

	s.feedWG.Add(1)
	go func() {
		defer s.feedWG.Done()
		if err := sub.Run(ctx); err != nil {
			metrics.RecordErrorByComponent("feed", "gave_up")
			s.logger.Error(ctx, "push feed stopped", logger.Error(err))
		}
	}()
}

// Stop shuts down the feed, the scheduler and the workers, in that order.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	sub, sched, pool, store, cancel := s.subscriber, s.scheduler, s.workerPool, s.store, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping triage service...")

	if sub != nil {
		sub.Stop()
		s.feedWG.Wait()
	}
	if sched != nil {
		<-sched.Stop().Done()
	}
	if pool != nil {
		stopCtx, stopCancel := context.WithTimeout(ctx, stopTimeout)
		if err := pool.Shutdown(stopCtx); err != nil {
			s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
		}
		stopCancel()
	}
	cancel()
	if store != nil {
		_ = store.Close()
	}
	s.logger.Info(ctx, "triage service stopped")
}

// SeenAndRecord atomically checks if an event id was seen and records it if not.
// Returns true if the event was already seen, false if it was newly recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordUpdateDuplicate()
	}
	return seen
}

// Unrecord removes an event ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// Enqueue submits an update for asynchronous application to the board.
func (s *Service) Enqueue(ctx context.Context, u model.Update) bool { //nolint:gocritic // hugeParam: queued by value
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return false
	}
	s.logger.Debug(ctx, "enqueueing update",
		logger.String("eventID", u.EventID),
		logger.String("kind", string(u.Kind)),
		logger.String("orderID", u.Order.ID),
	)
	return q.Enqueue(ctx, u)
}

// HandlePush is the feed handler: duplicates are dropped, everything else
// is queued for the workers.
func (s *Service) HandlePush(ctx context.Context, u model.Update) error { //nolint:gocritic // hugeParam
	if s.SeenAndRecord(ctx, u.EventID) {
		s.logger.Debug(ctx, "duplicate push update", logger.String("eventID", u.EventID))
		return nil
	}
	if !s.Enqueue(ctx, u) {
		s.Unrecord(ctx, u.EventID)
		return ErrQueueFull
	}
	return nil
}

// Queue ranks one role's board as of now. Orders that cannot be scored are
// logged and counted and left out; the rest of the queue is still returned.
func (s *Service) Queue(ctx context.Context, role types.Role, n int) ([]types.Entry, error) {
	s.mu.RLock()
	store, started := s.store, s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	view := board.View{
		Role:  role,
		Now:   s.now(),
		Limit: s.ApprovalLimit(),
		N:     n,
	}
	entries, skipped, err := store.TopN(ctx, view)
	if err != nil {
		return nil, err
	}
	for _, sk := range skipped {
		metrics.RecordScoringError(string(role), "invalid_input")
		s.logger.Warn(ctx, "order left out of queue",
			logger.String("role", string(role)),
			logger.String("orderID", sk.OrderID),
			logger.Error(sk.Err),
		)
	}
	for range entries {
		metrics.RecordOrderScored(string(role))
	}
	return entries, nil
}

// Order returns a single order from the board and the queue it sits in.
func (s *Service) Order(ctx context.Context, id string) (model.Order, types.Role, error) {
	s.mu.RLock()
	store, started := s.store, s.started
	s.mu.RUnlock()
	if !started {
		return model.Order{}, "", ErrNotStarted
	}
	return store.Get(ctx, id)
}

// ApprovalLimit returns the evaluator's current approval ceiling.
func (s *Service) ApprovalLimit() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limit
}

func (s *Service) setLimit(limit decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
}

// Notices returns the most recent system and emergency messages, newest first.
func (s *Service) Notices() []types.Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Notice, len(s.notices))
	for i, n := range s.notices {
		out[len(s.notices)-1-i] = n
	}
	return out
}

func (s *Service) recordNotice(_ context.Context, u model.Update) { //nolint:gocritic // hugeParam
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, types.Notice{
		EventID:    u.EventID,
		Kind:       string(u.Kind),
		Message:    u.Message,
		ReceivedAt: u.ReceivedAt,
	})
	if over := len(s.notices) - s.noticeCap; over > 0 {
		s.notices = append(s.notices[:0], s.notices[over:]...)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"evaluatorID":   s.evaluatorID,
		"approvalLimit": s.limit.String(),
		"notices":       len(s.notices),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["evaluatorOrders"] = s.store.Count(ctx, types.RoleEvaluator)
		stats["supervisorOrders"] = s.store.Count(ctx, types.RoleSupervisor)
		stats["seenEvents"] = s.deduper.Size()
		if s.subscriber != nil {
			stats["feedConnected"] = s.subscriber.Connected()
			stats["feedFailures"] = s.subscriber.Failures()
		}
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
