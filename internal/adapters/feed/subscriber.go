// Package feed subscribes to the backend's WebSocket push channel and turns
// frames into board updates.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/okian/ordertriage/pkg/metrics"
	"nhooyr.io/websocket"
)

const (
	dialTimeout         = 15 * time.Second
	writeWait           = 5 * time.Second
	defaultPingInterval = 30 * time.Second
	defaultStableAfter  = 10 * time.Second
	readLimitBytes      = 1 << 20
)

// Handler receives every decoded update. An error is logged and the
// subscription continues.
type Handler func(ctx context.Context, u model.Update) error

// EvaluatorURL returns the push channel of one evaluator under base,
// e.g. ws://host/ws -> ws://host/ws/evaluador/12.
func EvaluatorURL(base, evaluatorID string) string {
	return strings.TrimRight(base, "/") + "/evaluador/" + url.PathEscape(evaluatorID)
}

// Subscriber keeps one WebSocket connection alive until stopped.
type Subscriber struct {
	url          string
	handler      Handler
	backoff      Backoff
	httpClient   *http.Client
	header       http.Header
	pingInterval time.Duration
	stableAfter  time.Duration
	location     *time.Location
	rnd          func() float64
	now          func() time.Time
	logger       logger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}

	connected atomic.Bool
	failures  atomic.Int64
}

// NewSubscriber creates a subscriber for url. Run must be called to connect.
func NewSubscriber(url string, handler Handler, opts ...Option) *Subscriber {
	s := &Subscriber{
		url:          url,
		handler:      handler,
		backoff:      DefaultBackoff(),
		pingInterval: defaultPingInterval,
		stableAfter:  defaultStableAfter,
		location:     time.Local,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("feed")
	}
	return s
}

// Connected reports whether a connection is currently open.
func (s *Subscriber) Connected() bool { return s.connected.Load() }

// Failures returns consecutive failed attempts since the last stable connection.
func (s *Subscriber) Failures() int { return int(s.failures.Load()) }

// Stop cancels Run, including a pending reconnect wait. Safe to call twice.
func (s *Subscriber) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run connects and reconnects until ctx is done, Stop is called, or the
// backoff gives up. It returns nil on a requested stop and ErrGaveUp when
// MaxAttempts consecutive attempts failed. A connection that drops before
// the stable period counts as a failed attempt.
func (s *Subscriber) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	attempt := 0
	for {
		held, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			if held >= s.stableAfter {
				attempt = 0
			} else {
				err = fmt.Errorf("%w after %s", errShortSession, held.Round(time.Millisecond))
			}
		}

		attempt++
		s.failures.Store(int64(attempt))
		if s.backoff.Exhausted(attempt) {
			s.logger.Error(ctx, "giving up on push feed", logger.Int("attempts", attempt-1), logger.Error(err))
			return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, attempt-1, err)
		}

		delay := s.backoff.Delay(attempt, s.rnd)
		s.logger.Warn(ctx, "push feed disconnected, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
		metrics.RecordFeedReconnect()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection. It returns how long the connection was held,
// with a nil error if it was established and later dropped, or the dial
// error otherwise.
func (s *Subscriber) session(ctx context.Context) (time.Duration, error) {
	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{
		HTTPClient: s.httpClient,
		HTTPHeader: s.header,
	})
	dialCancel()
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", s.url, err)
	}
	conn.SetReadLimit(readLimitBytes)
	start := time.Now()
	defer func() { _ = conn.CloseNow() }()

	s.connected.Store(true)
	metrics.UpdateFeedConnected(true)
	defer func() {
		s.connected.Store(false)
		metrics.UpdateFeedConnected(false)
	}()
	s.logger.Info(ctx, "push feed connected", logger.String("url", s.url))

	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()
	go s.keepalive(connCtx, conn)

	err = s.read(connCtx, conn)
	switch status := websocket.CloseStatus(err); {
	case ctx.Err() != nil:
		_ = conn.Close(websocket.StatusNormalClosure, "")
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		s.logger.Info(ctx, "push feed closed by server", logger.Int("status", int(status)))
	default:
		s.logger.Warn(ctx, "push feed read failed", logger.Error(err))
	}
	return time.Since(start), nil
}

func (s *Subscriber) read(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		u, ok, err := Decode(data, s.location, s.now())
		if err != nil {
			metrics.RecordErrorByComponent("feed", "decode")
			s.logger.Warn(ctx, "dropping feed message", logger.Error(err))
			continue
		}
		if !ok {
			continue
		}
		metrics.RecordFeedMessage(string(u.Kind))
		if err := s.handler(ctx, u); err != nil {
			s.logger.Warn(ctx, "feed handler failed",
				logger.String("event_id", u.EventID), logger.Error(err))
		}
	}
}

// keepalive sends the backend's application level ping.
func (s *Subscriber) keepalive(ctx context.Context, conn *websocket.Conn) {
	if s.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Write(wctx, websocket.MessageText, []byte(`{"type":"ping"}`))
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Debug(ctx, "keepalive failed", logger.Error(err))
				return
			}
		}
	}
}
