// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/attrib/internal/app"
	"github.com/okian/attrib/internal/domain/types"
	"github.com/okian/attrib/pkg/logger"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	OwnerPredictor
	LocationPredictor
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	ownerHandler    *OwnerHandler
	locationHandler *LocationHandler
}

// Option configures the Server.
type Option func(*options)

type options struct {
	maxBodyBytes int64
	logger       logger.Logger
}

// WithMaxBodyBytes caps the size of prediction request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used for unexpected errors.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("http")
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		ownerHandler:    NewOwnerHandler(deps, o.maxBodyBytes, o.logger),
		locationHandler: NewLocationHandler(deps, o.maxBodyBytes, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict/owner", MetricsMiddleware(s.ownerHandler.HandlePredictOwner, "predict_owner"))
	mux.HandleFunc("/predict/location", MetricsMiddleware(s.locationHandler.HandlePredictLocation, "predict_location"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// writeFailure maps a handler error to its status code. Unexpected errors
// are logged and hidden behind a generic message.
func writeFailure(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	var unavailable *service.UnavailableError
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &unavailable):
		writeError(w, http.StatusInternalServerError, unavailable)
	default:
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New(internalServerMessage))
	}
}

// decodeRequest reads a JSON object from r, checks that every key in
// required is present, then decodes the same bytes into dst.
func decodeRequest(w http.ResponseWriter, r *http.Request, op string, limit int64, required []string, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrBodyTooLarge, bodyTooLargeMessage, err)
		}
		return WrapKind(op, ErrBadRequest, malformedBodyMessage, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &fields); err != nil {
		return WrapKind(op, ErrBadRequest, malformedBodyMessage, err)
	}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return NewKind(op, ErrBadRequest, missingKeysMessage)
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return WrapKind(op, ErrBadRequest, malformedBodyMessage, err)
	}
	return nil
}
