// Package project is a read-through cache in front of the imported project
// repository.
package project

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	projectrepo "ghimport/internal/gateway/repository/project"
)

type ImportedProject = projectrepo.ImportedProject
type Repository = projectrepo.Repository

type CacheConfig struct {
	ProjectTTL        time.Duration
	ProjectMaxEntries int
	ListTTL           time.Duration
	ListMaxEntries    int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ProjectTTL:        5 * time.Minute,
		ProjectMaxEntries: 2048,
		ListTTL:           30 * time.Second,
		ListMaxEntries:    1024,
	}
}

type CachedStore struct {
	origin Repository

	byProject  *expirable.LRU[string, ImportedProject]
	byUserList *expirable.LRU[string, []ImportedProject]
}

var _ Repository = (*CachedStore)(nil)

func NewCachedStore(origin Repository, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.ProjectTTL <= 0 {
		cfg.ProjectTTL = def.ProjectTTL
	}
	if cfg.ProjectMaxEntries <= 0 {
		cfg.ProjectMaxEntries = def.ProjectMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = def.ListMaxEntries
	}
	return &CachedStore{
		origin:     origin,
		byProject:  expirable.NewLRU[string, ImportedProject](cfg.ProjectMaxEntries, nil, cfg.ProjectTTL),
		byUserList: expirable.NewLRU[string, []ImportedProject](cfg.ListMaxEntries, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Add(ctx context.Context, p ImportedProject) (string, bool, error) {
	id, created, err := s.origin.Add(ctx, p)
	if err != nil {
		return "", false, err
	}
	if created {
		s.byUserList.Remove(p.UserID)
	}
	return id, created, nil
}

func (s *CachedStore) Get(ctx context.Context, userID, id string) (ImportedProject, error) {
	if p, ok := s.byProject.Get(id); ok && p.UserID == userID {
		return p, nil
	}
	p, err := s.origin.Get(ctx, userID, id)
	if err != nil {
		return ImportedProject{}, err
	}
	s.byProject.Add(id, p)
	return p, nil
}

func (s *CachedStore) List(ctx context.Context, userID string) ([]ImportedProject, error) {
	if list, ok := s.byUserList.Get(userID); ok {
		return cloneProjects(list), nil
	}
	list, err := s.origin.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	copied := cloneProjects(list)
	s.byUserList.Add(userID, copied)
	for _, p := range copied {
		s.byProject.Add(p.ID, p)
	}
	return cloneProjects(copied), nil
}

func (s *CachedStore) Remove(ctx context.Context, userID, id string) error {
	if err := s.origin.Remove(ctx, userID, id); err != nil {
		return err
	}
	s.byProject.Remove(id)
	s.byUserList.Remove(userID)
	return nil
}

func (s *CachedStore) Update(ctx context.Context, id string, update func(*ImportedProject)) (ImportedProject, error) {
	p, err := s.origin.Update(ctx, id, update)
	if err != nil {
		return ImportedProject{}, err
	}
	s.byProject.Add(id, p)
	s.byUserList.Remove(p.UserID)
	return p, nil
}

func (s *CachedStore) Close() error {
	s.byProject.Purge()
	s.byUserList.Purge()
	return s.origin.Close()
}

func cloneProjects(in []ImportedProject) []ImportedProject {
	out := make([]ImportedProject, len(in))
	copy(out, in)
	return out
}
