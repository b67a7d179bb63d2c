package model

import "time"

// UpdateKind mirrors the backend push message type.
type UpdateKind string

// Push message types.
const (
	UpdateNewOrder     UpdateKind = "pedido_nuevo"
	UpdateOrderChanged UpdateKind = "pedido_actualizado"
	UpdateSystem       UpdateKind = "system_message"
	UpdateEmergency    UpdateKind = "emergency"
)

// CarriesOrder reports whether messages of this kind patch the board.
func (k UpdateKind) CarriesOrder() bool {
	return k == UpdateNewOrder || k == UpdateOrderChanged
}

// Update is a single change flowing from the push feed or the HTTP API to
// the board workers.
type Update struct {
	EventID    string // unique id for idempotency
	Kind       UpdateKind
	Order      Order
	Message    string // text of system and emergency messages
	ReceivedAt time.Time
}
