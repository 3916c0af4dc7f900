package api

import (
	"context"
	"net/http"

	"github.com/okian/attrib/internal/domain/types"
	"github.com/okian/attrib/pkg/logger"
)

// LocationPredictor predicts the waypoint between two observed locations.
type LocationPredictor interface {
	PredictLocation(ctx context.Context, req types.LocationRequest) (types.LocationResponse, error)
}

// LocationHandler handles location attribution requests.
type LocationHandler struct {
	deps         LocationPredictor
	maxBodyBytes int64
	log          logger.Logger
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(deps LocationPredictor, maxBodyBytes int64, log logger.Logger) *LocationHandler {
	return &LocationHandler{deps: deps, maxBodyBytes: maxBodyBytes, log: log}
}

// HandlePredictLocation handles POST /predict/location requests.
// The query time must parse; every other timestamp is lenient.
func (h *LocationHandler) HandlePredictLocation(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_location"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.LocationRequest
	if err := decodeRequest(w, r, op, h.maxBodyBytes, types.LocationRequestKeys, &req); err != nil {
		writeFailure(r.Context(), w, h.log, err)
		return
	}
	if !req.StartTime.Valid {
		writeFailure(r.Context(), w, h.log, NewKind(op, ErrBadRequest, invalidStartMessage))
		return
	}
	resp, err := h.deps.PredictLocation(r.Context(), req)
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
