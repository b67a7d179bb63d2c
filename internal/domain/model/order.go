// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"

	"github.com/okian/ordertriage/internal/domain/geofence"
	"github.com/shopspring/decimal"
)

// Order is the transient view-model of a sales order. It is rebuilt from
// the backend on every fetch and never persisted here.
type Order struct {
	ID               string
	Number           string
	ClientName       string
	ClientRUC        string
	SellerName       string
	Status           string
	CreatedAt        time.Time
	TotalAmount      decimal.Decimal
	EscalatedAt      time.Time // zero unless escalated
	EscalationReason string
	ClientLocation   *geofence.Point
}

// Escalated reports whether the order was routed to a supervisor.
func (o Order) Escalated() bool {
	return !o.EscalatedAt.IsZero()
}

// Closed reports whether the order left the evaluation workflow and should
// drop off every board.
func (o Order) Closed() bool {
	switch strings.ToLower(strings.TrimSpace(o.Status)) {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// Backend order states that end the workflow.
const (
	StatusApproved  = "aprobado"
	StatusRejected  = "rechazado"
	StatusCancelled = "cancelado"
)

// Evaluator is a credit evaluator and their approval ceiling.
type Evaluator struct {
	ID    string
	Limit decimal.Decimal
}
