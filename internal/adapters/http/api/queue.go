package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/ordertriage/internal/domain/board"
	"github.com/okian/ordertriage/internal/domain/types"
)

// QueueDependencies defines the interface for queue reads.
type QueueDependencies interface {
	Queue(ctx context.Context, role types.Role, n int) ([]Entry, error)
}

// QueueHandler serves the ranked evaluator and supervisor queues.
type QueueHandler struct {
	deps     QueueDependencies
	maxLimit int
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(deps QueueDependencies, maxLimit int) *QueueHandler {
	return &QueueHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type queueResponse struct {
	Role    types.Role `json:"role"`
	Count   int        `json:"count"`
	Entries []Entry    `json:"entries"`
}

// HandleEvaluator handles GET /queue/evaluator?limit=N requests. The queue
// is the configured evaluator's; there is no per-request evaluator.
func (h *QueueHandler) HandleEvaluator(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, types.RoleEvaluator, "api.get_queue_evaluator")
}

// HandleSupervisor handles GET /queue/supervisor?limit=N requests.
func (h *QueueHandler) HandleSupervisor(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, types.RoleSupervisor, "api.get_queue_supervisor")
}

func (h *QueueHandler) serve(w http.ResponseWriter, r *http.Request, role types.Role, op string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := h.deps.Queue(r.Context(), role, n)
	if err != nil {
		if errors.Is(err, board.ErrInvalidView) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, queueResponse{Role: role, Count: len(entries), Entries: entries})
}

var (
	errBadLimit      = errors.New("limit must be a positive integer")
	errLimitExceeded = errors.New("limit exceeds maximum")
)

// parseLimit reads ?limit; absent means maxLimit.
func parseLimit(r *http.Request, maxLimit int) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return maxLimit, nil
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		return 0, errBadLimit
	}
	if n > maxLimit {
		return 0, errLimitExceeded
	}
	return n, nil
}
