package service

import (
	"time"

	"github.com/okian/ordertriage/internal/adapters/feed"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of board workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEvaluator sets the evaluator whose queue is served and the approval
// limit used until the backend reports one.
func WithEvaluator(id string, limit decimal.Decimal) Option {
	return func(s *Service) {
		s.evaluatorID = id
		if limit.IsPositive() {
			s.limit = limit
		}
	}
}

// WithPoller refreshes the board from src on schedule. A nil schedule
// keeps the source for manual Refresh calls only.
func WithPoller(src Source, schedule cron.Schedule) Option {
	return func(s *Service) {
		s.source = src
		s.schedule = schedule
	}
}

// WithFeed subscribes to the push channel at url once started.
func WithFeed(url string, opts ...feed.Option) Option {
	return func(s *Service) {
		s.feedURL = url
		s.feedOpts = opts
	}
}

// WithNoticeBuffer sets how many system notices are kept.
func WithNoticeBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.noticeCap = n
		}
	}
}

// WithClock replaces time.Now for ranking.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
