package testorders

import (
	"errors"
	"fmt"

	"github.com/okian/ordertriage/internal/domain/priority"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/shopspring/decimal"
)

var errUnsorted = errors.New("queue not properly sorted")

// verifyQueue checks a served queue against local scoring: every entry's
// score must match what the scoring functions give for its own elapsed
// minutes and amount, and the list must be in priority order.
func verifyQueue(role types.Role, entries []types.Entry, limit decimal.Decimal) error {
	for i := range entries {
		e := &entries[i]
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d", i, e.Rank)
		}

		var want int
		var err error
		if role == types.RoleSupervisor {
			want, err = priority.SupervisorUrgency(e.ElapsedMinutes, e.Amount)
		} else {
			want, err = priority.EvaluatorPriority(e.ElapsedMinutes, e.Amount, limit)
		}
		if err != nil {
			return fmt.Errorf("order %s: %w", e.OrderID, err)
		}
		if want != e.Score {
			return fmt.Errorf("order %s: score %d, expected %d", e.OrderID, e.Score, want)
		}
		if e.Level != priority.Classify(e.Score) {
			return fmt.Errorf("order %s: level %s for score %d", e.OrderID, e.Level, e.Score)
		}

		if i == 0 {
			continue
		}
		prev := &entries[i-1]
		if priority.Less(
			priority.Ranked{ID: e.OrderID, Score: e.Score, Reference: e.Reference},
			priority.Ranked{ID: prev.OrderID, Score: prev.Score, Reference: prev.Reference},
		) {
			return fmt.Errorf("%w: entry %d outranks entry %d", errUnsorted, i, i-1)
		}
	}
	return nil
}
