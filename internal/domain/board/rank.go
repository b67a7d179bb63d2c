// Package board turns the stored orders of a queue into a ranked list.
//
// Nothing here is cached: every call recomputes elapsed time against
// View.Now, so the same orders rank differently as the clock moves.
package board

import (
	"fmt"
	"time"

	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/priority"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/shopspring/decimal"
)

// View carries everything a ranking pass depends on.
type View struct {
	Role  types.Role
	Now   time.Time
	Limit decimal.Decimal // evaluator approval limit; ignored for supervisors
	N     int             // 0 returns every entry
}

// Validate checks that the view can be ranked.
func (v View) Validate() error {
	if !v.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidView, v.Role)
	}
	if v.Now.IsZero() {
		return fmt.Errorf("%w: missing clock", ErrInvalidView)
	}
	if v.N < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidView, v.N)
	}
	if v.Role == types.RoleEvaluator && !v.Limit.IsPositive() {
		return fmt.Errorf("%w: approval limit must be positive", ErrInvalidView)
	}
	return nil
}

// Skipped records an order left out of a ranking and why.
type Skipped struct {
	OrderID string
	Err     error
}

// Rank scores every order for the view and returns them best first. Orders
// that cannot be scored are reported in skipped and never abort the pass.
func Rank(v View, orders []model.Order) (entries []types.Entry, skipped []Skipped, err error) {
	if err := v.Validate(); err != nil {
		return nil, nil, err
	}

	scored := make(map[string]types.Entry, len(orders))
	ranked := make([]priority.Ranked, 0, len(orders))
	for i := range orders {
		e, err := score(v, &orders[i])
		if err != nil {
			skipped = append(skipped, Skipped{OrderID: orders[i].ID, Err: err})
			continue
		}
		scored[e.OrderID] = e
		ranked = append(ranked, priority.Ranked{ID: e.OrderID, Score: e.Score, Reference: e.Reference})
	}

	priority.Sort(ranked)
	if v.N > 0 && len(ranked) > v.N {
		ranked = ranked[:v.N]
	}

	entries = make([]types.Entry, len(ranked))
	for i, r := range ranked {
		e := scored[r.ID]
		e.Rank = i + 1
		entries[i] = e
	}
	return entries, skipped, nil
}

// Reference returns the timestamp an order is aged from in the given role.
func Reference(role types.Role, o *model.Order) time.Time {
	if role == types.RoleSupervisor {
		return o.EscalatedAt
	}
	return o.CreatedAt
}

func score(v View, o *model.Order) (types.Entry, error) {
	if o.ID == "" {
		return types.Entry{}, fmt.Errorf("%w: order without id", priority.ErrInvalidInput)
	}
	ref := Reference(v.Role, o)
	elapsed, err := priority.ElapsedMinutes(v.Now, ref)
	if err != nil {
		return types.Entry{}, err
	}

	e := types.Entry{
		OrderID:        o.ID,
		Number:         o.Number,
		ClientName:     o.ClientName,
		Amount:         o.TotalAmount,
		Reference:      ref,
		ElapsedMinutes: elapsed,
		AsOf:           v.Now,
	}

	switch v.Role {
	case types.RoleSupervisor:
		e.Score, err = priority.SupervisorUrgency(elapsed, o.TotalAmount)
		e.Urgent = priority.IsUrgent(e.Score)
	default:
		e.Score, err = priority.EvaluatorPriority(elapsed, o.TotalAmount, v.Limit)
		e.Badge = priority.WaitBadge(elapsed)
		e.NeedsEscalation = !priority.WithinLimit(o.TotalAmount, v.Limit)
	}
	if err != nil {
		return types.Entry{}, err
	}
	e.Level = priority.Classify(e.Score)
	return e, nil
}
