package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/ordertriage/internal/domain/geofence"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/shopspring/decimal"
)

// envelope is the {success, message, data} wrapper every endpoint returns.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// flexID accepts both numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// clientDTO is an object in list endpoints but a bare name in push payloads.
type clientDTO struct {
	Name      string   `json:"nombre_comercial"`
	LegalName string   `json:"razon_social"`
	RUC       string   `json:"ruc"`
	Latitude  *float64 `json:"latitud"`
	Longitude *float64 `json:"longitud"`
}

func (c *clientDTO) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &c.Name)
	}
	type alias clientDTO
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = clientDTO(a)
	return nil
}

type sellerDTO struct {
	Name     string `json:"nombre"`
	FullName string `json:"nombre_completo"`
}

func (s *sellerDTO) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &s.FullName)
	}
	type alias sellerDTO
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = sellerDTO(a)
	return nil
}

type orderDTO struct {
	ID               flexID           `json:"id"`
	PedidoID         flexID           `json:"pedido_id"`
	Number           string           `json:"numero_pedido"`
	Client           clientDTO        `json:"cliente"`
	ClientName       string           `json:"cliente_nombre"`
	ClientRUC        string           `json:"cliente_ruc"`
	Seller           sellerDTO        `json:"vendedor"`
	SellerName       string           `json:"vendedor_nombre"`
	Total            *decimal.Decimal `json:"total"`
	TotalAmount      *decimal.Decimal `json:"total_amount"`
	Status           string           `json:"estado"`
	CreatedAt        string           `json:"created_at"`
	EscalatedAt      string           `json:"fecha_escalacion"`
	EscalationReason string           `json:"motivo_escalacion"`
}

// DecodeOrder turns one backend order object into a model.Order. Naive
// timestamps are read in loc.
func DecodeOrder(raw json.RawMessage, loc *time.Location) (model.Order, error) {
	raw = unwrapString(raw)
	var d orderDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Order{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return d.toModel(loc)
}

func (d *orderDTO) toModel(loc *time.Location) (model.Order, error) {
	o := model.Order{
		ID:               string(d.ID),
		Number:           d.Number,
		ClientName:       firstNonEmpty(d.ClientName, d.Client.Name, d.Client.LegalName),
		ClientRUC:        firstNonEmpty(d.ClientRUC, d.Client.RUC),
		SellerName:       firstNonEmpty(d.SellerName, d.Seller.FullName, d.Seller.Name),
		Status:           d.Status,
		EscalationReason: d.EscalationReason,
	}
	if o.ID == "" {
		o.ID = string(d.PedidoID)
	}
	if o.ID == "" {
		return model.Order{}, fmt.Errorf("%w: order without id", ErrDecode)
	}

	switch {
	case d.Total != nil:
		o.TotalAmount = *d.Total
	case d.TotalAmount != nil:
		o.TotalAmount = *d.TotalAmount
	default:
		return model.Order{}, fmt.Errorf("%w: order %s has no total", ErrDecode, o.ID)
	}

	var err error
	if o.CreatedAt, err = ParseTimestamp(d.CreatedAt, loc); err != nil {
		return model.Order{}, fmt.Errorf("%w: order %s created_at: %v", ErrDecode, o.ID, err)
	}
	if o.EscalatedAt, err = ParseTimestamp(d.EscalatedAt, loc); err != nil {
		return model.Order{}, fmt.Errorf("%w: order %s fecha_escalacion: %v", ErrDecode, o.ID, err)
	}

	if d.Client.Latitude != nil && d.Client.Longitude != nil {
		o.ClientLocation = &geofence.Point{Latitude: *d.Client.Latitude, Longitude: *d.Client.Longitude}
	}
	return o, nil
}

//nolint:gochecknoglobals // accepted timestamp layouts, most specific first
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp accepts RFC 3339 or the backend's naive ISO format, which
// carries no zone and is read in loc. An empty string yields the zero time.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %s", strconv.Quote(s))
}

// unwrapString handles payloads the backend double-encodes as a JSON string.
func unwrapString(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return raw
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return raw
	}
	return json.RawMessage(inner)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
