package api

import (
	"net/http"

	"github.com/okian/ordertriage/internal/domain/geofence"
	"github.com/okian/ordertriage/pkg/metrics"
)

// GeofenceHandler compares an agent's GPS fix with a customer location.
type GeofenceHandler struct{}

// NewGeofenceHandler creates a new geofence handler.
func NewGeofenceHandler() *GeofenceHandler {
	return &GeofenceHandler{}
}

type geofenceRequest struct {
	Agent    *geofence.Point `json:"agent"`
	Customer *geofence.Point `json:"customer"`
}

type geofenceResponse struct {
	geofence.Report
	Warn bool `json:"warn"`
}

// HandleCheck handles POST /geofence/check requests. The verdict is
// advisory: a low match or poor accuracy is still a 200.
func (h *GeofenceHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.geofence_check"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req geofenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Agent == nil || req.Customer == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rep, err := geofence.Evaluate(*req.Agent, *req.Customer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}
	metrics.RecordGeofenceCheck(string(rep.Confidence))
	writeJSON(w, http.StatusOK, geofenceResponse{Report: rep, Warn: rep.Warn()})
}
