// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/ordertriage/internal/domain/priority"
	"github.com/shopspring/decimal"
)

// Role selects which scoring scheme ranks a queue.
type Role string

// Dashboard roles that own a queue.
const (
	RoleEvaluator  Role = "evaluator"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r names a known queue.
func (r Role) Valid() bool {
	return r == RoleEvaluator || r == RoleSupervisor
}

// Entry represents one ranked row of a queue. Score-derived fields are
// computed at read time and are only valid for the instant in AsOf.
type Entry struct {
	Rank            int             `json:"rank"`
	OrderID         string          `json:"order_id"`
	Number          string          `json:"numero_pedido,omitempty"`
	ClientName      string          `json:"cliente_nombre,omitempty"`
	Amount          decimal.Decimal `json:"total"`
	Reference       time.Time       `json:"reference_at"`
	ElapsedMinutes  int             `json:"elapsed_minutes"`
	Score           int             `json:"score"`
	Level           priority.Level  `json:"level"`
	Badge           priority.Badge  `json:"badge,omitempty"`
	Urgent          bool            `json:"urgent,omitempty"`
	NeedsEscalation bool            `json:"needs_escalation,omitempty"`
	AsOf            time.Time       `json:"as_of"`
}

// Notice is a system or emergency broadcast kept for operators.
type Notice struct {
	EventID    string    `json:"event_id"`
	Kind       string    `json:"type"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}
