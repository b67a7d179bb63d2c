package testorders

import (
	"time"

	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/shopspring/decimal"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumOrders      int           // Number of orders to generate
	DuplicateRatio float64       // Share of submissions replayed with the same event id
	EscalatedRatio float64       // Share of orders generated as escalated
	TopN           int           // Number of queue entries to fetch and verify
	Workers        int           // Number of concurrent submitters
	Timeout        time.Duration // HTTP request timeout
	Settle         time.Duration // Wait between submitting and verifying
	Seed           uint64        // 0 picks a random seed
	OutputFile     string        // Optional JSON dump of generated orders
	Verbose        bool          // Enable verbose logging
}

// OrderPayload is the backend order shape POST /orders accepts.
type OrderPayload struct {
	ID          string          `json:"id"`
	Number      string          `json:"numero_pedido"`
	ClientName  string          `json:"cliente_nombre"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   string          `json:"created_at"`
	EscalatedAt string          `json:"fecha_escalacion,omitempty"`
	Reason      string          `json:"motivo_escalacion,omitempty"`
}

// Submission is one POST /orders body.
type Submission struct {
	EventID string       `json:"event_id"`
	Type    string       `json:"type"`
	Order   OrderPayload `json:"order"`
}

// AckResponse represents the response from order submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// QueueResponse mirrors GET /queue/{role}.
type QueueResponse struct {
	Role    types.Role    `json:"role"`
	Count   int           `json:"count"`
	Entries []types.Entry `json:"entries"`
}

// Stats holds run statistics
type Stats struct {
	OrdersGenerated   int
	Submitted         int
	Accepted          int
	Duplicate         int
	Failed            int
	EvaluatorEntries  int
	SupervisorEntries int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
