package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/attrib/internal/adapters/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts ...repository.Option) (*repository.SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "artifacts.db")
	s, err := repository.Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestOpen_CreatesDatabase(t *testing.T) {
	_, path := openTestStore(t)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := repository.Open(context.Background(), "")
	assert.ErrorIs(t, err, repository.ErrInvalidPath)
}

func TestLoad_Missing(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Load(context.Background(), repository.OwnerModel)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSaveAll_ReplacesWholesale(t *testing.T) {
	versions := []string{"v1", "v2"}
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s, _ := openTestStore(t,
		repository.WithVersioner(func() string {
			v := versions[0]
			versions = versions[1:]
			return v
		}),
		repository.WithClock(func() time.Time { return at }),
	)
	ctx := context.Background()

	v, err := s.SaveAll(ctx, map[string][]byte{
		repository.TransitionGraph: []byte(`{"A":{"B":1}}`),
		repository.OwnerModel:      []byte(`{"weights":[1]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	v, err = s.SaveAll(ctx, map[string][]byte{repository.TransitionGraph: []byte(`{"A":{"B":2}}`)})
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	a, err := s.Load(ctx, repository.TransitionGraph)
	require.NoError(t, err)
	assert.Equal(t, "v2", a.Version)
	assert.JSONEq(t, `{"A":{"B":2}}`, string(a.Payload))
	assert.True(t, a.CreatedAt.Equal(at))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, repository.OwnerModel, list[0].Name)
	assert.Equal(t, "v1", list[0].Version)
	assert.Nil(t, list[0].Payload)
}

func TestSaveAll_Empty(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.SaveAll(context.Background(), nil)
	assert.ErrorIs(t, err, repository.ErrEmptySave)
}

func TestOpen_Reopen(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()
	_, err := s.SaveAll(ctx, map[string][]byte{repository.OwnerScaler: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := repository.Open(ctx, path)
	require.NoError(t, err)
	defer again.Close()
	a, err := again.Load(ctx, repository.OwnerScaler)
	require.NoError(t, err)
	assert.NotEmpty(t, a.Version)
}
