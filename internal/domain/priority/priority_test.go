package priority_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/ordertriage/internal/domain/priority"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestEvaluatorPriority(t *testing.T) {
	Convey("Given an evaluator with a 5000 approval limit", t, func() {
		limit := dec(5000)

		Convey("When an old order is more than twice the limit", func() {
			score, err := priority.EvaluatorPriority(150, dec(12000), limit)

			Convey("Then both tiers add 3 and the order is high", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 6)
				So(priority.Classify(score), ShouldEqual, priority.LevelHigh)
			})
		})

		Convey("When a recent order is below half the limit", func() {
			score, err := priority.EvaluatorPriority(45, dec(2000), limit)

			Convey("Then only the time tier counts and the order is low", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 1)
				So(priority.Classify(score), ShouldEqual, priority.LevelLow)
			})
		})

		Convey("When the inputs sit exactly on the thresholds", func() {
			Convey("Then the comparisons are strict", func() {
				cases := []struct {
					elapsed int
					amount  float64
					want    int
				}{
					{30, 2500, 0},
					{31, 2500.01, 2},
					{60, 5000, 2},
					{61, 5000.01, 4},
					{120, 10000, 4},
					{121, 10000.01, 6},
					{0, 0, 0},
				}
				for _, c := range cases {
					got, err := priority.EvaluatorPriority(c.elapsed, dec(c.amount), limit)
					So(err, ShouldBeNil)
					So(got, ShouldEqual, c.want)
				}
			})
		})

		Convey("When scanning elapsed and amount", func() {
			Convey("Then the score stays in range and never decreases", func() {
				amounts := []float64{0, 1000, 2500, 2600, 5000, 5001, 10000, 10001, 1e6}
				for _, a := range amounts {
					prev := -1
					for e := 0; e <= 300; e += 5 {
						s, err := priority.EvaluatorPriority(e, dec(a), limit)
						So(err, ShouldBeNil)
						So(s, ShouldBeBetweenOrEqual, 0, priority.MaxScore)
						So(s, ShouldBeGreaterThanOrEqualTo, prev)
						prev = s
					}
				}
				for e := 0; e <= 300; e += 30 {
					prev := -1
					for _, a := range amounts {
						s, err := priority.EvaluatorPriority(e, dec(a), limit)
						So(err, ShouldBeNil)
						So(s, ShouldBeGreaterThanOrEqualTo, prev)
						prev = s
					}
				}
			})
		})

		Convey("When called twice with the same inputs", func() {
			a, errA := priority.EvaluatorPriority(75, dec(7000), limit)
			b, errB := priority.EvaluatorPriority(75, dec(7000), limit)

			Convey("Then the results match", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldEqual, b)
			})
		})

		Convey("When the inputs are invalid", func() {
			_, errElapsed := priority.EvaluatorPriority(-1, dec(100), limit)
			_, errAmount := priority.EvaluatorPriority(10, dec(-1), limit)
			_, errLimit := priority.EvaluatorPriority(10, dec(100), decimal.Zero)

			Convey("Then InvalidInput is returned", func() {
				So(errors.Is(errElapsed, priority.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errAmount, priority.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errLimit, priority.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestSupervisorUrgency(t *testing.T) {
	Convey("Given an escalated order", t, func() {
		Convey("When it waited 130 minutes and carries 25000", func() {
			urgency, err := priority.SupervisorUrgency(130, dec(25000))

			Convey("Then urgency is 4 and the card is flagged", func() {
				So(err, ShouldBeNil)
				So(urgency, ShouldEqual, 4)
				So(priority.IsUrgent(urgency), ShouldBeTrue)
				So(priority.Classify(urgency), ShouldEqual, priority.LevelHigh)
			})
		})

		Convey("When it is fresh and small", func() {
			urgency, err := priority.SupervisorUrgency(10, dec(9000))

			Convey("Then urgency is 0", func() {
				So(err, ShouldBeNil)
				So(urgency, ShouldEqual, 0)
				So(priority.IsUrgent(urgency), ShouldBeFalse)
			})
		})

		Convey("When compared with the evaluator scheme", func() {
			sup, _ := priority.SupervisorUrgency(100, dec(15000))
			eval, _ := priority.EvaluatorPriority(100, dec(15000), dec(5000))

			Convey("Then the thresholds differ", func() {
				So(sup, ShouldEqual, 2)
				So(eval, ShouldEqual, 5)
			})
		})

		Convey("When scanning elapsed minutes", func() {
			Convey("Then urgency is monotonic and bounded", func() {
				prev := -1
				for e := 0; e <= 400; e += 10 {
					u, err := priority.SupervisorUrgency(e, dec(60000))
					So(err, ShouldBeNil)
					So(u, ShouldBeBetweenOrEqual, 3, priority.MaxScore)
					So(u, ShouldBeGreaterThanOrEqualTo, prev)
					prev = u
				}
			})
		})

		Convey("When the inputs are invalid", func() {
			_, errElapsed := priority.SupervisorUrgency(-5, dec(10))
			_, errAmount := priority.SupervisorUrgency(5, dec(-10))

			Convey("Then InvalidInput is returned", func() {
				So(errors.Is(errElapsed, priority.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errAmount, priority.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestElapsedMinutesAndAmount(t *testing.T) {
	Convey("Given a fixed clock", t, func() {
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("Then elapsed minutes are floored", func() {
			m, err := priority.ElapsedMinutes(now, now.Add(-90*time.Second))
			So(err, ShouldBeNil)
			So(m, ShouldEqual, 1)

			m, err = priority.ElapsedMinutes(now, now.Add(-150*time.Minute))
			So(err, ShouldBeNil)
			So(m, ShouldEqual, 150)
		})

		Convey("Then a future timestamp counts as zero", func() {
			m, err := priority.ElapsedMinutes(now, now.Add(time.Hour))
			So(err, ShouldBeNil)
			So(m, ShouldEqual, 0)
		})

		Convey("Then a missing timestamp is rejected", func() {
			_, err := priority.ElapsedMinutes(now, time.Time{})
			So(errors.Is(err, priority.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then non-finite and negative amounts are rejected", func() {
			for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.01} {
				_, err := priority.Amount(f)
				So(errors.Is(err, priority.ErrInvalidInput), ShouldBeTrue)
			}
			d, err := priority.Amount(1250.5)
			So(err, ShouldBeNil)
			So(d.Equal(dec(1250.5)), ShouldBeTrue)
		})
	})
}

func TestBandsAndBadges(t *testing.T) {
	Convey("Given scores and waits", t, func() {
		Convey("Then scores map to bands", func() {
			So(priority.Classify(0), ShouldEqual, priority.LevelLow)
			So(priority.Classify(1), ShouldEqual, priority.LevelLow)
			So(priority.Classify(2), ShouldEqual, priority.LevelMedium)
			So(priority.Classify(3), ShouldEqual, priority.LevelMedium)
			So(priority.Classify(4), ShouldEqual, priority.LevelHigh)
			So(priority.Classify(6), ShouldEqual, priority.LevelHigh)
		})

		Convey("Then waits map to badges", func() {
			So(priority.WaitBadge(10), ShouldEqual, priority.BadgeNormal)
			So(priority.WaitBadge(45), ShouldEqual, priority.BadgeNormal)
			So(priority.WaitBadge(46), ShouldEqual, priority.BadgeUrgent)
			So(priority.WaitBadge(120), ShouldEqual, priority.BadgeUrgent)
			So(priority.WaitBadge(121), ShouldEqual, priority.BadgeUrgent)
			So(priority.WaitBadge(150), ShouldEqual, priority.BadgeUrgent)
			So(priority.WaitBadge(179), ShouldEqual, priority.BadgeUrgent)
			So(priority.WaitBadge(180), ShouldEqual, priority.BadgeCritical)
			So(priority.WaitBadge(300), ShouldEqual, priority.BadgeCritical)
		})

		Convey("Then the approval limit is inclusive", func() {
			So(priority.WithinLimit(dec(5000), dec(5000)), ShouldBeTrue)
			So(priority.WithinLimit(dec(5000.01), dec(5000)), ShouldBeFalse)
		})
	})
}

func TestSort(t *testing.T) {
	Convey("Given a mixed list", t, func() {
		base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		items := []priority.Ranked{
			{ID: "c", Score: 2, Reference: base.Add(10 * time.Minute)},
			{ID: "a", Score: 5, Reference: base.Add(30 * time.Minute)},
			{ID: "d", Score: 2, Reference: base},
			{ID: "b", Score: 5, Reference: base.Add(5 * time.Minute)},
			{ID: "f", Score: 0, Reference: base},
			{ID: "e", Score: 0, Reference: base},
		}

		Convey("When sorting", func() {
			priority.Sort(items)

			Convey("Then higher scores come first and oldest wins ties", func() {
				ids := make([]string, len(items))
				for i, it := range items {
					ids[i] = it.ID
				}
				So(ids, ShouldResemble, []string{"b", "a", "d", "c", "e", "f"})
			})
		})
	})
}
