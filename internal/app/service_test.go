package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/ordertriage/internal/app"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/priority"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

//nolint:gochecknoglobals // fixed test clock
var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func order(id string, minutesAgo int, amount int64) model.Order {
	return model.Order{
		ID:          id,
		Number:      "PED-" + id,
		CreatedAt:   now.Add(-time.Duration(minutesAgo) * time.Minute),
		TotalAmount: decimal.NewFromInt(amount),
	}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.ApprovalLimit().Equal(decimal.NewFromInt(5000)), ShouldBeTrue)
			So(svc.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithEvaluator("12", decimal.NewFromInt(8000)),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			So(svc.ApprovalLimit().Equal(decimal.NewFromInt(8000)), ShouldBeTrue)
			So(svc.GetStats()["evaluatorID"], ShouldEqual, "12")
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx := context.Background()

		Convey("When used before start", func() {
			_, err := svc.Queue(ctx, types.RoleEvaluator, 10)

			Convey("Then operations report it", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.Enqueue(ctx, model.Update{EventID: "x"}), ShouldBeFalse)
				So(errors.Is(svc.Refresh(ctx), service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting and stopping", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(errors.Is(svc.Refresh(ctx), service.ErrNoSource), ShouldBeTrue)

			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Updates(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithClock(clock),
			service.WithNoticeBuffer(2),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the same push update arrives twice", func() {
			u := model.Update{EventID: "e1", Kind: model.UpdateNewOrder, Order: order("1", 10, 100)}
			So(svc.HandlePush(ctx, u), ShouldBeNil)
			So(svc.HandlePush(ctx, u), ShouldBeNil)

			Convey("Then the order lands on the board once", func() {
				So(eventually(func() bool {
					entries, _ := svc.Queue(ctx, types.RoleEvaluator, 0)
					return len(entries) == 1
				}), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an order is approved", func() {
			So(svc.HandlePush(ctx, model.Update{EventID: "a", Kind: model.UpdateNewOrder, Order: order("7", 5, 10)}), ShouldBeNil)
			So(eventually(func() bool {
				_, _, err := svc.Order(ctx, "7")
				return err == nil
			}), ShouldBeTrue)

			closed := order("7", 5, 10)
			closed.Status = model.StatusApproved
			So(svc.HandlePush(ctx, model.Update{EventID: "b", Kind: model.UpdateOrderChanged, Order: closed}), ShouldBeNil)

			Convey("Then it drops off the board", func() {
				So(eventually(func() bool {
					_, _, err := svc.Order(ctx, "7")
					return err != nil
				}), ShouldBeTrue)
			})
		})

		Convey("When notices arrive", func() {
			for i, msg := range []string{"uno", "dos", "tres"} {
				u := model.Update{EventID: msg, Kind: model.UpdateSystem, Message: msg, ReceivedAt: now.Add(time.Duration(i) * time.Second)}
				So(svc.HandlePush(ctx, u), ShouldBeNil)
			}

			Convey("Then only the newest are kept, newest first", func() {
				So(eventually(func() bool { return len(svc.Notices()) == 2 }), ShouldBeTrue)
				So(eventually(func() bool {
					n := svc.Notices()
					return len(n) == 2 && n[0].Message == "tres" && n[1].Message == "dos"
				}), ShouldBeTrue)
			})
		})
	})
}

func TestService_Queue(t *testing.T) {
	Convey("Given a board with pending and escalated orders", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithClock(clock))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		esc := order("s1", 200, 25000)
		esc.EscalatedAt = now.Add(-130 * time.Minute)
		bad := order("bad", 10, 100)
		bad.CreatedAt = time.Time{}

		for i, o := range []model.Order{order("new", 45, 2000), order("old", 150, 12000), bad, esc} {
			So(svc.Enqueue(ctx, model.Update{EventID: string(rune('a' + i)), Kind: model.UpdateNewOrder, Order: o}), ShouldBeTrue)
		}
		So(eventually(func() bool { return svc.GetStats()["evaluatorOrders"] == 3 }), ShouldBeTrue)
		So(eventually(func() bool { return svc.GetStats()["supervisorOrders"] == 1 }), ShouldBeTrue)

		Convey("When ranking the evaluator queue", func() {
			entries, err := svc.Queue(ctx, types.RoleEvaluator, 0)

			Convey("Then the unscoreable order is left out and the rest ranked", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].OrderID, ShouldEqual, "old")
				So(entries[0].Score, ShouldEqual, 6)
				So(entries[0].Level, ShouldEqual, priority.LevelHigh)
				So(entries[0].NeedsEscalation, ShouldBeTrue)
				So(entries[1].OrderID, ShouldEqual, "new")
				So(entries[1].Score, ShouldEqual, 1)
			})
		})

		Convey("When ranking the supervisor queue", func() {
			entries, err := svc.Queue(ctx, types.RoleSupervisor, 0)

			Convey("Then urgency is measured from escalation", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].ElapsedMinutes, ShouldEqual, 130)
				So(entries[0].Score, ShouldEqual, 4)
				So(entries[0].Urgent, ShouldBeTrue)
			})
		})

		Convey("When asking for an unknown role", func() {
			_, err := svc.Queue(ctx, types.Role("ceo"), 0)

			Convey("Then the view is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
