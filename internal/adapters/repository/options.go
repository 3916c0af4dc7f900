package repository

import (
	"time"

	"github.com/google/uuid"
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithVersioner overrides how artifact versions are minted.
func WithVersioner(next func() string) Option {
	return func(s *SQLiteStore) {
		if next != nil {
			s.nextVersion = next
		}
	}
}

func newVersion() string {
	return uuid.NewString()
}
