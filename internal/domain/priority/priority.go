// Package priority ranks pending and escalated orders by how long they have
// waited and how much money they carry.
//
// There are two scoring schemes and they are deliberately kept apart:
// EvaluatorPriority compares the amount against the evaluator's approval
// limit, SupervisorUrgency uses fixed organisational thresholds. Both are pure
// and must be recomputed on every ranking pass because elapsed time moves.
package priority

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Time tier thresholds in minutes.
const (
	evaluatorCriticalMinutes = 120
	evaluatorHighMinutes     = 60
	evaluatorMediumMinutes   = 30

	supervisorCriticalMinutes = 240
	supervisorHighMinutes     = 120
	supervisorMediumMinutes   = 60
)

// MaxScore is the largest value either scheme can produce.
const MaxScore = 6

//nolint:gochecknoglobals // fixed thresholds shared by every call
var (
	supervisorCriticalAmount = decimal.NewFromInt(50_000)
	supervisorHighAmount     = decimal.NewFromInt(20_000)
	supervisorMediumAmount   = decimal.NewFromInt(10_000)

	two  = decimal.NewFromInt(2)
	half = decimal.NewFromFloat(0.5)
)

// ElapsedMinutes returns whole minutes between since and now, floored.
// A since in the future (client clock skew) counts as zero minutes.
func ElapsedMinutes(now, since time.Time) (int, error) {
	if since.IsZero() {
		return 0, fmt.Errorf("%w: missing reference timestamp", ErrInvalidInput)
	}
	d := now.Sub(since)
	if d <= 0 {
		return 0, nil
	}
	return int(d / time.Minute), nil
}

// Amount converts a float currency value into a decimal, rejecting values
// that would poison a score.
func Amount(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: amount %v is not finite", ErrInvalidInput, f)
	}
	if f < 0 {
		return decimal.Zero, fmt.Errorf("%w: amount %v is negative", ErrInvalidInput, f)
	}
	return decimal.NewFromFloat(f), nil
}

// EvaluatorPriority scores an order for a credit evaluator. The amount tier
// is relative to the evaluator's approval limit. Result is in [0, MaxScore].
func EvaluatorPriority(elapsedMinutes int, amount, limit decimal.Decimal) (int, error) {
	if elapsedMinutes < 0 {
		return 0, fmt.Errorf("%w: elapsed minutes %d", ErrInvalidInput, elapsedMinutes)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: amount %s", ErrInvalidInput, amount)
	}
	if !limit.IsPositive() {
		return 0, fmt.Errorf("%w: approval limit %s", ErrInvalidInput, limit)
	}

	score := 0
	switch {
	case elapsedMinutes > evaluatorCriticalMinutes:
		score += 3
	case elapsedMinutes > evaluatorHighMinutes:
		score += 2
	case elapsedMinutes > evaluatorMediumMinutes:
		score++
	}

	switch {
	case amount.GreaterThan(limit.Mul(two)):
		score += 3
	case amount.GreaterThan(limit):
		score += 2
	case amount.GreaterThan(limit.Mul(half)):
		score++
	}
	return score, nil
}

// SupervisorUrgency scores an escalated order for a supervisor. Elapsed time
// is measured from escalation, and the amount tier uses absolute thresholds.
func SupervisorUrgency(elapsedMinutes int, amount decimal.Decimal) (int, error) {
	if elapsedMinutes < 0 {
		return 0, fmt.Errorf("%w: elapsed minutes %d", ErrInvalidInput, elapsedMinutes)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: amount %s", ErrInvalidInput, amount)
	}

	urgency := 0
	switch {
	case elapsedMinutes > supervisorCriticalMinutes:
		urgency += 3
	case elapsedMinutes > supervisorHighMinutes:
		urgency += 2
	case elapsedMinutes > supervisorMediumMinutes:
		urgency++
	}

	switch {
	case amount.GreaterThan(supervisorCriticalAmount):
		urgency += 3
	case amount.GreaterThan(supervisorHighAmount):
		urgency += 2
	case amount.GreaterThan(supervisorMediumAmount):
		urgency++
	}
	return urgency, nil
}

// WithinLimit reports whether an evaluator may approve amount on their own.
// Orders above the limit have to be escalated to a supervisor.
func WithinLimit(amount, limit decimal.Decimal) bool {
	return amount.LessThanOrEqual(limit)
}
