package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/okian/ordertriage/internal/adapters/report"
	"github.com/okian/ordertriage/internal/domain/types"
)

// ReportHandler exports ranked queues as spreadsheets.
type ReportHandler struct {
	deps     QueueDependencies
	location *time.Location
}

// NewReportHandler creates a new report handler writing times in loc.
func NewReportHandler(deps QueueDependencies, loc *time.Location) *ReportHandler {
	return &ReportHandler{deps: deps, location: loc}
}

// HandleQueueReport handles GET /reports/queue.xlsx?role=evaluator|supervisor.
func (h *ReportHandler) HandleQueueReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.report_queue"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	role := types.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = types.RoleEvaluator
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	entries, err := h.deps.Queue(r.Context(), role, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	// Render fully before writing so a failure can still be a clean 500.
	var buf bytes.Buffer
	if err := report.Write(&buf, role, entries, h.location); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="queue-`+string(role)+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
