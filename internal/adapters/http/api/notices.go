package api

import (
	"net/http"

	"github.com/okian/ordertriage/internal/domain/types"
)

// NoticesDependencies exposes recent system and emergency messages.
type NoticesDependencies interface {
	Notices() []types.Notice
}

// NoticesHandler handles notice requests.
type NoticesHandler struct {
	deps NoticesDependencies
}

// NewNoticesHandler creates a new notices handler.
func NewNoticesHandler(deps NoticesDependencies) *NoticesHandler {
	return &NoticesHandler{deps: deps}
}

// HandleNotices handles GET /notices requests.
func (h *NoticesHandler) HandleNotices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := h.deps.Notices()
	if n == nil {
		n = []types.Notice{}
	}
	writeJSON(w, http.StatusOK, n)
}
