package training

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/attrib/internal/adapters/repository"
	"github.com/okian/attrib/internal/domain/journey"
	"github.com/okian/attrib/internal/learn"
)

// Encode serialises the trained artifacts as JSON payloads keyed by artifact
// name. A nil group is left out.
func Encode(owner *OwnerArtifacts, location *LocationArtifacts) (map[string][]byte, error) {
	values := make(map[string]any, 6)
	if owner != nil {
		values[repository.OwnerModel] = owner.Model
		values[repository.OwnerScaler] = owner.Scaler
	}
	if location != nil {
		values[repository.LocationModel] = location.Model
		values[repository.LocationScaler] = location.Scaler
		values[repository.LocationEncoder] = location.Encoder
		values[repository.TransitionGraph] = location.Graph
	}
	out := make(map[string][]byte, len(values))
	for name, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = b
	}
	return out, nil
}

// load decodes artifact name from store into v and returns its version.
func load(ctx context.Context, store repository.Store, name string, v any) (string, error) {
	a, err := store.Load(ctx, name)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(a.Payload, v); err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return a.Version, nil
}

// LoadOwner reads the owner classifier. It fails with
// repository.ErrNotFound when either half was never saved.
func LoadOwner(ctx context.Context, store repository.Store) (*OwnerArtifacts, string, error) {
	out := &OwnerArtifacts{Scaler: &learn.Scaler{}, Model: &learn.Logistic{}}
	version, err := load(ctx, store, repository.OwnerModel, out.Model)
	if err != nil {
		return nil, "", err
	}
	if _, err := load(ctx, store, repository.OwnerScaler, out.Scaler); err != nil {
		return nil, "", err
	}
	return out, version, nil
}

// LoadLocation reads the transition graph and habit classifier.
func LoadLocation(ctx context.Context, store repository.Store) (*LocationArtifacts, string, error) {
	out := &LocationArtifacts{
		Graph:   journey.Graph{},
		Scaler:  &learn.Scaler{},
		Model:   &learn.Softmax{},
		Encoder: &learn.LabelEncoder{},
	}
	version, err := load(ctx, store, repository.TransitionGraph, &out.Graph)
	if err != nil {
		return nil, "", err
	}
	parts := map[string]any{
		repository.LocationModel:   out.Model,
		repository.LocationScaler:  out.Scaler,
		repository.LocationEncoder: out.Encoder,
	}
	for name, v := range parts {
		if _, err := load(ctx, store, name, v); err != nil {
			return nil, "", err
		}
	}
	out.Encoder = out.Encoder.Index()
	return out, version, nil
}

// Pipeline returns the serving form of the habit classifier.
func (a *LocationArtifacts) Pipeline() learn.LabeledPipeline {
	return learn.LabeledPipeline{Scaler: a.Scaler, Model: a.Model, Encoder: a.Encoder}
}
