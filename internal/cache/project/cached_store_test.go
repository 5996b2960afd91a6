package project

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	projectrepo "ghimport/internal/gateway/repository/project"
	"ghimport/internal/github"
)

type countingRepo struct {
	Repository
	lists int
	gets  int
}

func (c *countingRepo) List(ctx context.Context, userID string) ([]ImportedProject, error) {
	c.lists++
	return c.Repository.List(ctx, userID)
}

func (c *countingRepo) Get(ctx context.Context, userID, id string) (ImportedProject, error) {
	c.gets++
	return c.Repository.Get(ctx, userID, id)
}

func newCached(t *testing.T) (*CachedStore, *countingRepo) {
	t.Helper()
	origin := &countingRepo{Repository: projectrepo.NewFileStore(filepath.Join(t.TempDir(), "p.json"))}
	return NewCachedStore(origin, CacheConfig{}), origin
}

func project(id, user string, repoID int64) ImportedProject {
	return ImportedProject{
		ID:         id,
		UserID:     user,
		Repository: github.Repository{ID: repoID, FullName: "octo/r"},
		Branch:     "main",
		ImportedAt: time.Now(),
	}
}

func TestCachedStore_ListIsCachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	s, origin := newCached(t)

	_, _, err := s.Add(ctx, project("a", "alice", 1))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		list, err := s.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)
	}
	assert.Equal(t, 1, origin.lists)

	// served from the entries List primed
	_, err = s.Get(ctx, "alice", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, origin.gets)

	_, _, err = s.Add(ctx, project("b", "alice", 2))
	require.NoError(t, err)
	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, origin.lists)

	updated, err := s.Update(ctx, "a", func(p *ImportedProject) { p.Status = projectrepo.StatusSuccess })
	require.NoError(t, err)
	assert.Equal(t, projectrepo.StatusSuccess, updated.Status)
	got, err := s.Get(ctx, "alice", "a")
	require.NoError(t, err)
	assert.Equal(t, projectrepo.StatusSuccess, got.Status)

	require.NoError(t, s.Remove(ctx, "alice", "a"))
	_, err = s.Get(ctx, "alice", "a")
	assert.ErrorIs(t, err, projectrepo.ErrNotFound)
	list, err = s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCachedStore_GetIsUserScoped(t *testing.T) {
	ctx := context.Background()
	s, _ := newCached(t)
	_, _, err := s.Add(ctx, project("a", "alice", 1))
	require.NoError(t, err)
	_, err = s.Get(ctx, "alice", "a")
	require.NoError(t, err)

	_, err = s.Get(ctx, "bob", "a")
	assert.ErrorIs(t, err, projectrepo.ErrNotFound)
}

func TestCachedStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newCached(t)
	_, _, err := s.Add(ctx, project("a", "alice", 1))
	require.NoError(t, err)

	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	list[0].Branch = "mutated"

	again, err := s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "main", again[0].Branch)
}
