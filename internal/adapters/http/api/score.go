package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/okian/ordertriage/internal/domain/priority"
	"github.com/okian/ordertriage/pkg/metrics"
	"github.com/shopspring/decimal"
)

// ScoreHandler scores a single order without touching the board.
type ScoreHandler struct {
	now func() time.Time
}

// NewScoreHandler creates a new score handler. now resolves "since".
func NewScoreHandler(now func() time.Time) *ScoreHandler {
	if now == nil {
		now = time.Now
	}
	return &ScoreHandler{now: now}
}

// scoreRequest carries either elapsed_minutes or since, never both.
type scoreRequest struct {
	ElapsedMinutes *int             `json:"elapsed_minutes"`
	Since          *time.Time       `json:"since"`
	Amount         *decimal.Decimal `json:"amount"`
	Limit          *decimal.Decimal `json:"limit"`
}

var (
	errElapsedChoice = errors.New("exactly one of elapsed_minutes or since is required")
	errMissingAmount = errors.New("missing amount")
	errMissingLimit  = errors.New("missing limit")
)

func (req *scoreRequest) elapsed(now time.Time) (int, error) {
	switch {
	case req.ElapsedMinutes != nil && req.Since == nil:
		return *req.ElapsedMinutes, nil
	case req.Since != nil && req.ElapsedMinutes == nil:
		return priority.ElapsedMinutes(now, *req.Since)
	default:
		return 0, errElapsedChoice
	}
}

type evaluatorScoreResponse struct {
	Score          int            `json:"score"`
	Level          priority.Level `json:"level"`
	ElapsedMinutes int            `json:"elapsed_minutes"`
	Badge          priority.Badge `json:"badge"`
	WithinLimit    bool           `json:"within_limit"`
}

type supervisorScoreResponse struct {
	Urgency        int            `json:"urgency"`
	Level          priority.Level `json:"level"`
	ElapsedMinutes int            `json:"elapsed_minutes"`
	Urgent         bool           `json:"urgent"`
}

// HandleEvaluator handles POST /score/evaluator requests.
func (h *ScoreHandler) HandleEvaluator(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_evaluator"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	elapsed, err := req.elapsed(h.now())
	if err == nil && req.Amount == nil {
		err = errMissingAmount
	}
	if err == nil && req.Limit == nil {
		err = errMissingLimit
	}
	if err != nil {
		scoreFailed(w, op, "evaluator", err)
		return
	}

	score, err := priority.EvaluatorPriority(elapsed, *req.Amount, *req.Limit)
	if err != nil {
		scoreFailed(w, op, "evaluator", err)
		return
	}
	metrics.RecordOrderScored("evaluator")
	writeJSON(w, http.StatusOK, evaluatorScoreResponse{
		Score:          score,
		Level:          priority.Classify(score),
		ElapsedMinutes: elapsed,
		Badge:          priority.WaitBadge(elapsed),
		WithinLimit:    priority.WithinLimit(*req.Amount, *req.Limit),
	})
}

// HandleSupervisor handles POST /score/supervisor requests.
func (h *ScoreHandler) HandleSupervisor(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_supervisor"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	elapsed, err := req.elapsed(h.now())
	if err == nil && req.Amount == nil {
		err = errMissingAmount
	}
	if err != nil {
		scoreFailed(w, op, "supervisor", err)
		return
	}

	urgency, err := priority.SupervisorUrgency(elapsed, *req.Amount)
	if err != nil {
		scoreFailed(w, op, "supervisor", err)
		return
	}
	metrics.RecordOrderScored("supervisor")
	writeJSON(w, http.StatusOK, supervisorScoreResponse{
		Urgency:        urgency,
		Level:          priority.Classify(urgency),
		ElapsedMinutes: elapsed,
		Urgent:         priority.IsUrgent(urgency),
	})
}

func scoreFailed(w http.ResponseWriter, op, role string, err error) {
	metrics.RecordScoringError(role, "invalid_input")
	writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
}
