package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/ordertriage/internal/adapters/backend"
	"github.com/okian/ordertriage/internal/adapters/feed"
	repository "github.com/okian/ordertriage/internal/adapters/repository"
	"github.com/okian/ordertriage/internal/domain/dedupe"
	"github.com/okian/ordertriage/internal/domain/geofence"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/shopspring/decimal"
)

const maxOrderBody = 1 << 20

// OrderDependencies defines the interface for order update dependencies.
type OrderDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, u model.Update) bool
	Order(ctx context.Context, id string) (model.Order, types.Role, error)
}

// OrdersHandler accepts order updates and serves single orders.
type OrdersHandler struct {
	deps     OrderDependencies
	location *time.Location
	now      func() time.Time
}

// NewOrdersHandler creates a new orders handler. Naive timestamps in
// payloads are read in loc.
func NewOrdersHandler(deps OrderDependencies, loc *time.Location) *OrdersHandler {
	if loc == nil {
		loc = time.Local
	}
	return &OrdersHandler{deps: deps, location: loc, now: time.Now}
}

// orderRequest mirrors the OpenAPI schema for POST /orders. Order uses the
// backend's own order shape.
type orderRequest struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"type"`
	Order   json.RawMessage `json:"order"`
	Message string          `json:"message"`
}

func (req *orderRequest) toUpdate(loc *time.Location, now time.Time, raw []byte) (model.Update, error) {
	kind := model.UpdateKind(strings.TrimSpace(req.Type))
	if kind == "" {
		kind = model.UpdateNewOrder
	}
	u := model.Update{
		EventID:    strings.TrimSpace(req.EventID),
		Kind:       kind,
		Message:    req.Message,
		ReceivedAt: now,
	}
	if u.EventID == "" {
		u.EventID = feed.EventID("", raw)
	}

	switch kind {
	case model.UpdateNewOrder, model.UpdateOrderChanged:
		if len(req.Order) == 0 {
			return model.Update{}, errors.New("missing order")
		}
		o, err := backend.DecodeOrder(req.Order, loc)
		if err != nil {
			return model.Update{}, err
		}
		if o.CreatedAt.IsZero() && !o.Closed() {
			return model.Update{}, errors.New("missing created_at")
		}
		if o.TotalAmount.IsNegative() {
			return model.Update{}, errors.New("negative total")
		}
		u.Order = o
	case model.UpdateSystem, model.UpdateEmergency:
		if strings.TrimSpace(req.Message) == "" {
			return model.Update{}, errors.New("missing message")
		}
	default:
		return model.Update{}, errors.New("unknown type " + string(kind))
	}
	return u, nil
}

// HandlePostOrder handles POST /orders requests.
func (h *OrdersHandler) HandlePostOrder(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_order"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := readBody(r, maxOrderBody)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var req orderRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	u, err := req.toUpdate(h.location, h.now(), raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), u.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, EventID: u.EventID})
		return
	}

	// Try to enqueue for async processing
	if ok := h.deps.Enqueue(r.Context(), u); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), u.EventID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: u.EventID})
}

// orderResponse is the read shape of a board order. Scores are not part
// of it; they only exist in a ranked queue.
type orderResponse struct {
	ID               string          `json:"id"`
	Queue            types.Role      `json:"queue"`
	Number           string          `json:"numero_pedido,omitempty"`
	ClientName       string          `json:"cliente_nombre,omitempty"`
	ClientRUC        string          `json:"cliente_ruc,omitempty"`
	SellerName       string          `json:"vendedor_nombre,omitempty"`
	Status           string          `json:"estado,omitempty"`
	Total            decimal.Decimal `json:"total"`
	CreatedAt        time.Time       `json:"created_at"`
	EscalatedAt      *time.Time      `json:"fecha_escalacion,omitempty"`
	EscalationReason string          `json:"motivo_escalacion,omitempty"`
	ClientLocation   *geofence.Point `json:"cliente_ubicacion,omitempty"`
}

// HandleGetOrder handles GET /orders/{id} requests.
func (h *OrdersHandler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_order"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/orders/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	o, role, err := h.deps.Order(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	resp := orderResponse{
		ID:               o.ID,
		Queue:            role,
		Number:           o.Number,
		ClientName:       o.ClientName,
		ClientRUC:        o.ClientRUC,
		SellerName:       o.SellerName,
		Status:           o.Status,
		Total:            o.TotalAmount,
		CreatedAt:        o.CreatedAt,
		EscalationReason: o.EscalationReason,
		ClientLocation:   o.ClientLocation,
	}
	if o.Escalated() {
		at := o.EscalatedAt
		resp.EscalatedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}
