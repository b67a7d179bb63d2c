// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/ordertriage/internal/domain/dedupe"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an update for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, u model.Update) bool

	// Read operations rank the board as of the call.
	Queue(ctx context.Context, role types.Role, n int) ([]Entry, error)
	Order(ctx context.Context, id string) (model.Order, types.Role, error)
	Notices() []types.Notice
}

// Entry mirrors the read shape returned by queue queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	ordersHandler   *OrdersHandler
	queueHandler    *QueueHandler
	scoreHandler    *ScoreHandler
	geofenceHandler *GeofenceHandler
	reportHandler   *ReportHandler
	noticesHandler  *NoticesHandler
}

// Option applies a configuration option to the Server.
type Option func(*options)

type options struct {
	location *time.Location
	now      func() time.Time
}

// WithLocation sets the zone naive order timestamps are read in and
// report timestamps are written in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithClock replaces time.Now for scoring requests that send timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of queue reads.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, opts ...Option) *Server {
	o := options{location: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		ordersHandler:   NewOrdersHandler(deps, o.location),
		queueHandler:    NewQueueHandler(deps, maxLimit),
		scoreHandler:    NewScoreHandler(o.now),
		geofenceHandler: NewGeofenceHandler(),
		reportHandler:   NewReportHandler(deps, o.location),
		noticesHandler:  NewNoticesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/orders", MetricsMiddleware(s.ordersHandler.HandlePostOrder, "orders"))
	mux.HandleFunc("/orders/", MetricsMiddleware(s.ordersHandler.HandleGetOrder, "order"))
	mux.HandleFunc("/queue/evaluator", MetricsMiddleware(s.queueHandler.HandleEvaluator, "queue_evaluator"))
	mux.HandleFunc("/queue/supervisor", MetricsMiddleware(s.queueHandler.HandleSupervisor, "queue_supervisor"))
	mux.HandleFunc("/score/evaluator", MetricsMiddleware(s.scoreHandler.HandleEvaluator, "score_evaluator"))
	mux.HandleFunc("/score/supervisor", MetricsMiddleware(s.scoreHandler.HandleSupervisor, "score_supervisor"))
	mux.HandleFunc("/geofence/check", MetricsMiddleware(s.geofenceHandler.HandleCheck, "geofence_check"))
	mux.HandleFunc("/reports/queue.xlsx", MetricsMiddleware(s.reportHandler.HandleQueueReport, "report_queue"))
	mux.HandleFunc("/notices", MetricsMiddleware(s.noticesHandler.HandleNotices, "notices"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	EventID   string `json:"event_id,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
