package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every project in one JSON file, rewritten on each change.
type FileStore struct {
	path string

	loadOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
	byID     map[string]ImportedProject
}

var _ Repository = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		byID: make(map[string]ImportedProject),
	}
}

func (s *FileStore) Add(_ context.Context, p ImportedProject) (string, bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return "", false, err
	}
	p = normalize(p)
	if p.ID == "" {
		return "", false, fmt.Errorf("add project: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if sameImport(existing, p) {
			return existing.ID, false, nil
		}
	}
	s.byID[p.ID] = p
	if err := s.saveLocked(); err != nil {
		delete(s.byID, p.ID)
		return "", false, err
	}
	return p.ID, true, nil
}

func (s *FileStore) Get(_ context.Context, userID, id string) (ImportedProject, error) {
	if err := s.ensureLoaded(); err != nil {
		return ImportedProject{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok || p.UserID != userID {
		return ImportedProject{}, ErrNotFound
	}
	return p, nil
}

func (s *FileStore) List(_ context.Context, userID string) ([]ImportedProject, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]ImportedProject, 0)
	for _, p := range s.byID {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *FileStore) Remove(_ context.Context, userID, id string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(s.byID, id)
	if err := s.saveLocked(); err != nil {
		s.byID[id] = p
		return err
	}
	return nil
}

func (s *FileStore) Update(_ context.Context, id string, update func(*ImportedProject)) (ImportedProject, error) {
	if err := s.ensureLoaded(); err != nil {
		return ImportedProject{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[id]
	if !ok {
		return ImportedProject{}, ErrNotFound
	}
	next := prev
	update(&next)
	next.ID = prev.ID
	next.UserID = prev.UserID
	next = normalize(next)
	s.byID[id] = next
	if err := s.saveLocked(); err != nil {
		s.byID[id] = prev
		return ImportedProject{}, err
	}
	return next, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) ensureLoaded() error {
	s.loadOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		data, err := os.ReadFile(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				return
			}
			s.loadErr = fmt.Errorf("read project store: %w", err)
			return
		}
		if len(data) == 0 {
			return
		}

		var projects []ImportedProject
		if err := json.Unmarshal(data, &projects); err != nil {
			s.loadErr = fmt.Errorf("unmarshal project store: %w", err)
			return
		}
		for _, p := range projects {
			p = normalize(p)
			s.byID[p.ID] = p
		}
	})
	return s.loadErr
}

func (s *FileStore) saveLocked() error {
	projects := make([]ImportedProject, 0, len(s.byID))
	for _, p := range s.byID {
		projects = append(projects, p)
	}
	sortNewestFirst(projects)

	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create project store dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project store: %w", err)
	}
	return os.Rename(tmp, s.path)
}
