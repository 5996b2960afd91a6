// Package project persists the repositories a user has imported.
package project

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"ghimport/internal/github"
)

var ErrNotFound = errors.New("project not found")

type Status string

const (
	StatusImporting Status = "importing"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// ImportedProject is one (repository, branch) pair a user imported.
type ImportedProject struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Repository github.Repository `json:"repository"`
	Branch     string            `json:"branch"`
	ImportedAt time.Time         `json:"imported_at"`
	Status     Status            `json:"status"`
	Error      string            `json:"error,omitempty"`
}

// Repository stores imported projects. Every read and write is scoped to a
// user, except Update which is used by the background import job.
type Repository interface {
	// Add stores p unless the user already imported the same repository
	// and branch, in which case the existing ID is returned with
	// created=false.
	Add(ctx context.Context, p ImportedProject) (id string, created bool, err error)
	Get(ctx context.Context, userID, id string) (ImportedProject, error)
	// List returns the user's projects, newest first.
	List(ctx context.Context, userID string) ([]ImportedProject, error)
	Remove(ctx context.Context, userID, id string) error
	Update(ctx context.Context, id string, update func(*ImportedProject)) (ImportedProject, error)
	Close() error
}

func normalize(p ImportedProject) ImportedProject {
	p.ID = strings.TrimSpace(p.ID)
	p.UserID = strings.TrimSpace(p.UserID)
	p.Branch = strings.TrimSpace(p.Branch)
	if p.Status == "" {
		p.Status = StatusImporting
	}
	if !p.ImportedAt.IsZero() {
		p.ImportedAt = p.ImportedAt.UTC().Truncate(time.Millisecond)
	}
	return p
}

func sameImport(a, b ImportedProject) bool {
	return a.UserID == b.UserID && a.Repository.ID == b.Repository.ID && a.Branch == b.Branch
}

func sortNewestFirst(list []ImportedProject) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ImportedAt.After(list[j].ImportedAt)
	})
}
