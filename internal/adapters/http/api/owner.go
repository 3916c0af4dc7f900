package api

import (
	"context"
	"net/http"

	"github.com/okian/attrib/internal/domain/types"
	"github.com/okian/attrib/pkg/logger"
)

// OwnerPredictor ranks candidate owners for anchor events.
type OwnerPredictor interface {
	PredictOwner(ctx context.Context, req types.OwnerRequest) (types.OwnerResponse, error)
}

// OwnerHandler handles owner attribution requests.
type OwnerHandler struct {
	deps         OwnerPredictor
	maxBodyBytes int64
	log          logger.Logger
}

// NewOwnerHandler creates a new owner handler.
func NewOwnerHandler(deps OwnerPredictor, maxBodyBytes int64, log logger.Logger) *OwnerHandler {
	return &OwnerHandler{deps: deps, maxBodyBytes: maxBodyBytes, log: log}
}

// HandlePredictOwner handles POST /predict/owner requests.
func (h *OwnerHandler) HandlePredictOwner(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_owner"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.OwnerRequest
	if err := decodeRequest(w, r, op, h.maxBodyBytes, types.OwnerRequestKeys, &req); err != nil {
		writeFailure(r.Context(), w, h.log, err)
		return
	}
	resp, err := h.deps.PredictOwner(r.Context(), req)
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
