package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ordertriage/internal/adapters/backend"
	"github.com/okian/ordertriage/internal/domain/model"
)

// KindPong answers the keepalive ping and is never forwarded.
const KindPong = "pong"

type message struct {
	Type    string          `json:"type"`
	EventID string          `json:"event_id"`
	Data    json.RawMessage `json:"data"`
}

type noticeData struct {
	Message string `json:"message"`
}

//nolint:gochecknoglobals // namespace for content derived event ids
var eventNamespace = uuid.MustParse("6f1c2a0e-8d3b-4f7a-9c55-2b1e0d4a7c31")

// EventID returns the id a message is deduplicated by: the sender's own id
// when present, otherwise a name-based UUID of the raw bytes so a replayed
// frame maps to the same id.
func EventID(explicit string, raw []byte) string {
	if explicit != "" {
		return explicit
	}
	return uuid.NewSHA1(eventNamespace, raw).String()
}

// Decode parses one text frame. ok is false for frames that carry nothing
// for the board, such as pong.
func Decode(raw []byte, loc *time.Location, now time.Time) (u model.Update, ok bool, err error) {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		return model.Update{}, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	u = model.Update{
		EventID:    EventID(m.EventID, raw),
		Kind:       model.UpdateKind(m.Type),
		ReceivedAt: now,
	}

	switch u.Kind {
	case model.UpdateNewOrder, model.UpdateOrderChanged:
		o, err := backend.DecodeOrder(m.Data, loc)
		if err != nil {
			return model.Update{}, false, fmt.Errorf("%w: %s: %v", ErrMalformed, m.Type, err)
		}
		u.Order = o
	case model.UpdateSystem, model.UpdateEmergency:
		var n noticeData
		if len(m.Data) > 0 {
			if err := json.Unmarshal(m.Data, &n); err != nil {
				return model.Update{}, false, fmt.Errorf("%w: %s: %v", ErrMalformed, m.Type, err)
			}
		}
		u.Message = n.Message
	case KindPong:
		return model.Update{}, false, nil
	default:
		return model.Update{}, false, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
	return u, true, nil
}
