// Package service provides the immutable serving context that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/attrib/internal/adapters/repository"
	"github.com/okian/attrib/internal/domain/features"
	"github.com/okian/attrib/internal/domain/model"
	"github.com/okian/attrib/internal/domain/ranking"
	"github.com/okian/attrib/internal/domain/scoring"
	"github.com/okian/attrib/internal/domain/types"
	"github.com/okian/attrib/internal/training"
	"github.com/okian/attrib/pkg/logger"
	"github.com/okian/attrib/pkg/metrics"
)

// Prediction kinds used in logs and metrics.
const (
	KindOwner    = "owner"
	KindLocation = "location"
)

// Messages returned while artifacts are missing.
const (
	OwnerUnavailableMessage    = "Model not trained. Run 'attrib train' first."
	LocationUnavailableMessage = "Model artifacts not loaded. Please train the model first."
	NoConfidentLocationReason  = "Not enough historical data to predict a likely journey."
	locationReasonTemplate     = "The most likely path from '%s' to '%s' is via this location. Model confidence: %.0f%%."
)

// ErrModelUnavailable matches every UnavailableError.
var ErrModelUnavailable = errors.New("model unavailable")

// UnavailableError reports that an endpoint's artifacts were never loaded.
type UnavailableError struct {
	Kind    string
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrModelUnavailable) hold.
func (e *UnavailableError) Is(target error) bool { return target == ErrModelUnavailable }

// Service answers owner and location attribution requests from artifacts
// loaded once at start-up. It is never mutated after construction, so
// concurrent requests need no locking.
type Service struct {
	owner           *training.OwnerArtifacts
	ownerVersion    string
	location        *training.LocationArtifacts
	locationVersion string
	scorer          *scoring.Scorer

	journeyWeight   float64
	habitWeight     float64
	rejectedWeights []float64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOwnerArtifacts installs a trained owner classifier.
func WithOwnerArtifacts(a *training.OwnerArtifacts, version string) Option {
	return func(s *Service) {
		if a != nil && a.Model != nil && a.Scaler != nil {
			s.owner, s.ownerVersion = a, version
		}
	}
}

// WithLocationArtifacts installs a transition graph and habit classifier.
func WithLocationArtifacts(a *training.LocationArtifacts, version string) Option {
	return func(s *Service) {
		if a != nil && a.Graph != nil && a.Model != nil && a.Scaler != nil && a.Encoder != nil {
			s.location, s.locationVersion = a, version
		}
	}
}

// WithBlendWeights overrides the journey and habit weights. An invalid
// blend is ignored with a warning, keeping the defaults.
func WithBlendWeights(journeyWeight, habitWeight float64) Option {
	return func(s *Service) {
		if !scoring.ValidWeights(journeyWeight, habitWeight) {
			s.rejectedWeights = []float64{journeyWeight, habitWeight}
			return
		}
		s.journeyWeight = journeyWeight
		s.habitWeight = habitWeight
	}
}

// New constructs a Service. Endpoints whose artifacts were not supplied fail
// with an UnavailableError.
func New(opts ...Option) *Service {
	s := &Service{
		journeyWeight: scoring.DefaultJourneyWeight,
		habitWeight:   scoring.DefaultHabitWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.rejectedWeights != nil {
		s.logger.Warn(context.Background(), "invalid blend weights ignored",
			logger.Float64("journey_weight", s.rejectedWeights[0]),
			logger.Float64("habit_weight", s.rejectedWeights[1]),
		)
	}
	if s.location != nil {
		s.scorer = scoring.New(s.location.Graph, s.location.Pipeline(),
			scoring.WithWeights(s.journeyWeight, s.habitWeight))
	}

	metrics.SetArtifactLoaded(repository.OwnerModel, s.owner != nil)
	metrics.SetArtifactLoaded(repository.OwnerScaler, s.owner != nil)
	for _, name := range []string{repository.LocationModel, repository.LocationScaler, repository.LocationEncoder, repository.TransitionGraph} {
		metrics.SetArtifactLoaded(name, s.location != nil)
	}
	if s.location != nil {
		metrics.UpdateTransitionGraphEdges(s.location.Graph.Edges())
	}
	return s
}

// Load reads every artifact from store and builds the serving context.
// Missing artifacts disable the matching endpoint; any other failure is
// returned.
func Load(ctx context.Context, store repository.Store, opts ...Option) (*Service, error) {
	owner, ownerVersion, err := training.LoadOwner(ctx, store)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load owner artifacts: %w", err)
	}
	location, locationVersion, err := training.LoadLocation(ctx, store)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load location artifacts: %w", err)
	}

	s := New(append(opts,
		WithOwnerArtifacts(owner, ownerVersion),
		WithLocationArtifacts(location, locationVersion),
	)...)

	if s.owner == nil {
		s.logger.Warn(ctx, "owner artifacts missing; /predict/owner disabled")
	}
	if s.location == nil {
		s.logger.Warn(ctx, "location artifacts missing; /predict/location disabled")
	}
	s.logger.Info(ctx, "serving context ready",
		logger.Bool("owner", s.owner != nil),
		logger.String("owner_version", s.ownerVersion),
		logger.Bool("location", s.location != nil),
		logger.String("location_version", s.locationVersion),
	)
	return s, nil
}

// PredictOwner ranks the candidate users for the anchor events.
func (s *Service) PredictOwner(ctx context.Context, req types.OwnerRequest) (resp types.OwnerResponse, err error) {
	start := time.Now()
	defer func() { s.observe(KindOwner, start, err) }()

	if s.owner == nil {
		return types.OwnerResponse{}, &UnavailableError{Kind: KindOwner, Message: OwnerUnavailableMessage}
	}
	if err := ctx.Err(); err != nil {
		return types.OwnerResponse{}, err
	}

	onSkip := func(sk features.Skip) {
		metrics.RecordEvidenceSkipped(string(sk.Kind))
		s.logger.Debug(ctx, "evidence record skipped",
			logger.String("kind", string(sk.Kind)),
			logger.String("reason", sk.Reason),
		)
	}
	vectors := make([]features.OwnerVector, len(req.CandidateUsers))
	rows := make([][]float64, len(req.CandidateUsers))
	for i, c := range req.CandidateUsers {
		vectors[i] = features.ExtractOwner(req.AnchorEvents, c, req.AllEvidence, onSkip)
		rows[i] = vectors[i].Row()
	}

	resp.Predictions = []types.OwnerPrediction{}
	if len(rows) == 0 {
		return resp, nil
	}

	scaled, err := s.owner.Scaler.Transform(rows)
	if err != nil {
		return types.OwnerResponse{}, fmt.Errorf("scale owner features: %w", err)
	}
	proba, err := s.owner.Model.PredictProba(scaled)
	if err != nil {
		return types.OwnerResponse{}, fmt.Errorf("predict owner: %w", err)
	}
	positive := make([]float64, len(proba))
	for i, p := range proba {
		positive[i] = p[len(p)-1]
	}

	ranked, err := ranking.Rank(req.CandidateUsers, vectors, positive)
	if err != nil {
		return types.OwnerResponse{}, err
	}
	metrics.RecordCandidatesScored(len(ranked))

	for _, c := range ranked {
		resp.Predictions = append(resp.Predictions, types.OwnerPrediction{
			User:     c.Subject.Ref(),
			Score:    c.Score,
			Evidence: c.Evidence,
		})
	}
	return resp, nil
}

// PredictLocation predicts the waypoint between two observed locations.
func (s *Service) PredictLocation(ctx context.Context, req types.LocationRequest) (resp types.LocationResponse, err error) {
	start := time.Now()
	defer func() { s.observe(KindLocation, start, err) }()

	if s.scorer == nil {
		return types.LocationResponse{}, &UnavailableError{Kind: KindLocation, Message: LocationUnavailableMessage}
	}

	res, err := s.scorer.Score(ctx, scoring.Input{
		Start:     req.StartTime.Time,
		Activity:  req.HistoricalActivity,
		Locations: req.AllLocations,
		Before:    req.LocationBefore.Name,
		After:     req.LocationAfter.Name,
	})
	if err != nil {
		return types.LocationResponse{}, err
	}
	if !res.Confident {
		metrics.RecordNoConfidentPrediction()
		return types.LocationResponse{Reason: NoConfidentLocationReason}, nil
	}

	var predicted *model.Location
	for i := range req.AllLocations {
		if req.AllLocations[i].Name == res.Best {
			loc := req.AllLocations[i]
			predicted = &loc
			break
		}
	}
	return types.LocationResponse{
		Prediction: predicted,
		Reason:     fmt.Sprintf(locationReasonTemplate, req.LocationBefore.Name, req.LocationAfter.Name, res.Confidence*100),
	}, nil
}

func (s *Service) observe(kind string, start time.Time, err error) {
	metrics.RecordPredictionLatency(kind, float64(time.Since(start).Microseconds())/1000)
	switch {
	case err == nil:
		metrics.RecordPrediction(kind, "ok")
	case errors.Is(err, ErrModelUnavailable):
		metrics.RecordPrediction(kind, "unavailable")
	default:
		metrics.RecordPrediction(kind, "error")
	}
}

// GetStats returns a summary of the serving context for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"ownerEnabled":    s.owner != nil,
		"locationEnabled": s.location != nil,
		"journeyWeight":   s.journeyWeight,
		"habitWeight":     s.habitWeight,
	}
	if s.owner != nil {
		stats["ownerVersion"] = s.ownerVersion
	}
	if s.location != nil {
		stats["locationVersion"] = s.locationVersion
		stats["graphNodes"] = s.location.Graph.Nodes()
		stats["graphEdges"] = s.location.Graph.Edges()
		stats["habitClasses"] = len(s.location.Encoder.Labels)
	}
	return stats
}
