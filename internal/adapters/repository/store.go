// Package repository persists trained artifacts as opaque, versioned blobs.
package repository

import (
	"context"
	"time"
)

// Artifact names produced by training and read at start-up.
const (
	OwnerModel      = "owner_model"
	OwnerScaler     = "owner_scaler"
	LocationModel   = "location_model"
	LocationScaler  = "location_scaler"
	LocationEncoder = "location_encoder"
	TransitionGraph = "transition_graph"
)

// Artifact is one stored blob.
type Artifact struct {
	Name      string
	Version   string
	Payload   []byte
	CreatedAt time.Time
}

// Store provides read/write access to trained artifacts.
type Store interface {
	// SaveAll replaces the given artifacts in one transaction under a single
	// new version and returns that version.
	SaveAll(ctx context.Context, payloads map[string][]byte) (string, error)

	// Load returns the artifact called name.
	// Returns ErrNotFound if it was never saved.
	Load(ctx context.Context, name string) (Artifact, error)

	// List returns every stored artifact without payloads, ordered by name.
	List(ctx context.Context) ([]Artifact, error)

	// Close releases the underlying database.
	Close() error
}
