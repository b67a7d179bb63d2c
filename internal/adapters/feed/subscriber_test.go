package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/ordertriage/internal/adapters/feed"
	"github.com/okian/ordertriage/internal/domain/model"
	logging "github.com/okian/ordertriage/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
	"nhooyr.io/websocket"
)

var fastBackoff = feed.Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/evaluador/1"
}

type collector struct {
	mu      sync.Mutex
	updates []model.Update
}

func (c *collector) handle(_ context.Context, u model.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
	return nil
}

func (c *collector) kinds() []model.UpdateKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.UpdateKind, len(c.updates))
	for i, u := range c.updates {
		out[i] = u.Kind
	}
	return out
}

func TestSubscriberReconnects(t *testing.T) {
	Convey("Given a backend that drops the first connection", t, func() {
		_ = logging.Init()
		var conns atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			defer func() { _ = c.CloseNow() }()
			ctx := r.Context()

			if conns.Add(1) == 1 {
				_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"pedido_nuevo","data":{"id":1,"total":100,"created_at":"2025-03-01T10:00:00Z"}}`))
				_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"pong"}`))
				_ = c.Write(ctx, websocket.MessageText, []byte(`garbage`))
				_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"system_message","data":{"message":"mantenimiento"}}`))
				_ = c.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"pedido_actualizado","data":{"id":1,"total":100,"estado":"aprobado","created_at":"2025-03-01T10:00:00Z"}}`))
			for {
				if _, _, err := c.Read(ctx); err != nil {
					return
				}
			}
		}))
		defer srv.Close()

		col := &collector{}
		sub := feed.NewSubscriber(wsURL(srv), col.handle, feed.WithBackoff(fastBackoff), feed.WithPingInterval(0))

		Convey("When running until three updates arrive", func() {
			done := make(chan error, 1)
			go func() { done <- sub.Run(context.Background()) }()

			deadline := time.Now().Add(3 * time.Second)
			for len(col.kinds()) < 3 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			sub.Stop()
			sub.Stop()

			Convey("Then updates from both connections are delivered in order", func() {
				So(col.kinds(), ShouldResemble, []model.UpdateKind{
					model.UpdateNewOrder, model.UpdateSystem, model.UpdateOrderChanged,
				})
				So(conns.Load(), ShouldEqual, 2)
			})

			Convey("And Stop ends Run cleanly", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(3 * time.Second):
					So("Run did not return", ShouldBeEmpty)
				}
				So(sub.Connected(), ShouldBeFalse)
			})
		})
	})
}

func TestSubscriberGivesUp(t *testing.T) {
	Convey("Given an unreachable backend", t, func() {
		_ = logging.Init()
		srv := httptest.NewServer(http.NotFoundHandler())
		url := wsURL(srv)
		srv.Close()

		Convey("When the attempt cap is three", func() {
			b := fastBackoff
			b.MaxAttempts = 3
			sub := feed.NewSubscriber(url, (&collector{}).handle, feed.WithBackoff(b))
			err := sub.Run(context.Background())

			Convey("Then Run gives up", func() {
				So(errors.Is(err, feed.ErrGaveUp), ShouldBeTrue)
				So(sub.Failures(), ShouldEqual, 4)
			})
		})

		Convey("When waiting a long backoff", func() {
			sub := feed.NewSubscriber(url, (&collector{}).handle,
				feed.WithBackoff(feed.Backoff{Initial: time.Hour, Max: time.Hour, Multiplier: 2}))
			done := make(chan error, 1)
			go func() { done <- sub.Run(context.Background()) }()
			time.Sleep(50 * time.Millisecond)
			sub.Stop()

			Convey("Then Stop interrupts the wait", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					So("Run did not return", ShouldBeEmpty)
				}
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			sub := feed.NewSubscriber(url, (&collector{}).handle,
				feed.WithBackoff(feed.Backoff{Initial: time.Hour, Max: time.Hour, Multiplier: 2}))
			done := make(chan error, 1)
			go func() { done <- sub.Run(ctx) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			Convey("Then Run returns as well", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					So("Run did not return", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestSubscriberShortSessions(t *testing.T) {
	Convey("Given a backend that accepts and drops every connection", t, func() {
		_ = logging.Init()
		var conns atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			conns.Add(1)
			_ = c.Close(websocket.StatusGoingAway, "busy")
		}))
		defer srv.Close()

		Convey("When the attempt cap is three", func() {
			b := fastBackoff
			b.MaxAttempts = 3
			sub := feed.NewSubscriber(wsURL(srv), (&collector{}).handle,
				feed.WithBackoff(b), feed.WithPingInterval(0), feed.WithStableAfter(time.Minute))
			done := make(chan error, 1)
			go func() { done <- sub.Run(context.Background()) }()

			Convey("Then dropped connections count as failures and Run gives up", func() {
				select {
				case err := <-done:
					So(errors.Is(err, feed.ErrGaveUp), ShouldBeTrue)
					So(sub.Failures(), ShouldEqual, 4)
					So(conns.Load(), ShouldEqual, 4)
				case <-time.After(3 * time.Second):
					sub.Stop()
					So("Run kept reconnecting", ShouldBeEmpty)
				}
			})
		})

		Convey("When any connection counts as stable", func() {
			b := fastBackoff
			b.MaxAttempts = 1
			sub := feed.NewSubscriber(wsURL(srv), (&collector{}).handle,
				feed.WithBackoff(b), feed.WithPingInterval(0), feed.WithStableAfter(0))
			done := make(chan error, 1)
			go func() { done <- sub.Run(context.Background()) }()

			deadline := time.Now().Add(3 * time.Second)
			for conns.Load() < 5 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			sub.Stop()

			Convey("Then each reconnect starts a fresh policy", func() {
				So(conns.Load(), ShouldBeGreaterThanOrEqualTo, 5)
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(3 * time.Second):
					So("Run did not return", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestSubscriberStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	sub := feed.NewSubscriber(url, (&collector{}).handle,
		feed.WithBackoff(feed.Backoff{Initial: time.Hour, Max: time.Hour, Multiplier: 2}))
	done := make(chan error, 1)
	go func() { done <- sub.Run(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	sub.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
