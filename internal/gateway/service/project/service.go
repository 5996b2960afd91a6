// Package project implements importing repositories: deduplicated
// persistence, the background snapshot job and its status events.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	projectrepo "ghimport/internal/gateway/repository/project"
	"ghimport/internal/gateway/repository/snapshot"
	"ghimport/internal/github"
	"ghimport/internal/logging"
)

const (
	defaultJobTimeout  = time.Minute
	statusWriteTimeout = 5 * time.Second
)

// interruptedMessage marks imports whose job died with an earlier process.
const interruptedMessage = "import interrupted"

var ErrInvalidImport = errors.New("repository and branch are required")

type ImportedProject = projectrepo.ImportedProject

// Caller identifies who is importing and the token used for GitHub.
type Caller struct {
	UserID string
	Token  string
}

type ImportResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

type Options struct {
	Logger     *zap.Logger
	JobTimeout time.Duration
	Now        func() time.Time
}

// Service owns imported projects and the snapshot job.
type Service struct {
	repo      projectrepo.Repository
	snapshots *snapshot.Store
	gh        github.API
	events    *Events
	log       *zap.Logger
	now       func() time.Time
	timeout   time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	jobs    sync.WaitGroup

	// mu orders running against status events: an id is in running from
	// before its row exists until its terminal event was published.
	mu      sync.Mutex
	running map[string]struct{}
}

func New(repo projectrepo.Repository, snapshots *snapshot.Store, gh github.API, opts Options) *Service {
	opts.Logger = logging.OrNop(opts.Logger)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		repo:      repo,
		snapshots: snapshots,
		gh:        gh,
		events:    NewEvents(),
		log:       opts.Logger,
		now:       opts.Now,
		timeout:   opts.JobTimeout,
		baseCtx:   ctx,
		cancel:    cancel,
		running:   make(map[string]struct{}),
	}
}

// NewID builds the project id: repository id, branch and import time in
// unix milliseconds.
func NewID(repoID int64, branch string, at time.Time) string {
	return fmt.Sprintf("%d-%s-%d", repoID, branch, at.UnixMilli())
}

// Import records (repo, branch) for the caller. Re-importing returns the
// existing project id with Created false and starts nothing.
func (s *Service) Import(ctx context.Context, caller Caller, repo github.Repository, branch string) (ImportResult, error) {
	branch = strings.TrimSpace(branch)
	if repo.ID == 0 || strings.TrimSpace(repo.FullName) == "" || branch == "" {
		return ImportResult{}, ErrInvalidImport
	}
	now := s.now()
	p := ImportedProject{
		ID:         NewID(repo.ID, branch, now),
		UserID:     caller.UserID,
		Repository: repo,
		Branch:     branch,
		ImportedAt: now,
		Status:     projectrepo.StatusImporting,
	}
	s.mu.Lock()
	s.running[p.ID] = struct{}{}
	s.mu.Unlock()

	id, created, err := s.repo.Add(ctx, p)
	if err != nil || !created {
		s.mu.Lock()
		delete(s.running, p.ID)
		s.mu.Unlock()
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("add project: %w", err)
	}
	if !created {
		return ImportResult{ID: id}, nil
	}

	s.log.Info("project imported",
		zap.String("project_id", id),
		zap.String("repository", repo.FullName),
		zap.String("branch", branch))
	s.mu.Lock()
	s.publish(id, projectrepo.StatusImporting, "")
	s.mu.Unlock()

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.capture(caller, p)
	}()
	return ImportResult{ID: id, Created: true}, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]ImportedProject, error) {
	list, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i], err = s.settle(ctx, list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (ImportedProject, error) {
	p, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return ImportedProject{}, err
	}
	return s.settle(ctx, p)
}

func (s *Service) isRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[id]
	return ok
}

// settle fails an importing project that no job of this process owns. The
// stored row is only changed while it still reads importing, so a job that
// finished in the meantime keeps its result.
func (s *Service) settle(ctx context.Context, p ImportedProject) (ImportedProject, error) {
	if p.Status != projectrepo.StatusImporting || s.isRunning(p.ID) {
		return p, nil
	}
	next, err := s.repo.Update(ctx, p.ID, func(cur *ImportedProject) {
		if cur.Status == projectrepo.StatusImporting {
			cur.Status = projectrepo.StatusError
			cur.Error = interruptedMessage
		}
	})
	if err != nil {
		return ImportedProject{}, fmt.Errorf("settle project %s: %w", p.ID, err)
	}
	if next.Error == interruptedMessage {
		s.log.Warn("stale import marked interrupted", zap.String("project_id", p.ID))
	}
	return next, nil
}

// Remove deletes the project and its snapshot.
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	if err := s.repo.Remove(ctx, userID, id); err != nil {
		return err
	}
	s.events.Forget(id, s.now())
	if s.snapshots != nil {
		if err := s.snapshots.Delete(ctx, userID, id); err != nil {
			s.log.Warn("delete snapshot failed", zap.String("project_id", id), zap.Error(err))
		}
	}
	return nil
}

// Snapshot returns what was captured when the project was imported.
func (s *Service) Snapshot(ctx context.Context, userID, id string) (snapshot.Snapshot, error) {
	if _, err := s.repo.Get(ctx, userID, id); err != nil {
		return snapshot.Snapshot{}, err
	}
	if s.snapshots == nil {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}
	return s.snapshots.Get(ctx, userID, id)
}

// Subscribe streams status changes of one of the user's projects. The
// channel closes once the import finished or ctx is done.
func (s *Service) Subscribe(ctx context.Context, userID, id string) (<-chan Event, error) {
	p, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if _, ok := s.running[id]; ok {
		defer s.mu.Unlock()
		return s.events.Subscribe(ctx, id, s.eventOf(p)), nil
	}
	s.mu.Unlock()

	// No job: what is stored is final once settled.
	if p, err = s.repo.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	if p, err = s.settle(ctx, p); err != nil {
		return nil, err
	}
	return s.events.Subscribe(ctx, id, s.eventOf(p)), nil
}

func (s *Service) eventOf(p ImportedProject) Event {
	return Event{ProjectID: p.ID, Status: p.Status, Error: p.Error, At: s.now()}
}

// Close cancels running jobs and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.jobs.Wait()
}

// Wait blocks until every started job finished.
func (s *Service) Wait() {
	s.jobs.Wait()
}

func (s *Service) capture(caller Caller, p ImportedProject) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()

	err := s.takeSnapshot(ctx, caller.Token, p)
	status, msg := projectrepo.StatusSuccess, ""
	if err != nil {
		status, msg = projectrepo.StatusError, err.Error()
		s.log.Warn("import snapshot failed", zap.String("project_id", p.ID), zap.Error(err))
	}

	// ctx may be expired or cancelled by Close; the result is still stored.
	wctx, wcancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer wcancel()
	_, uerr := s.repo.Update(wctx, p.ID, func(cur *ImportedProject) {
		cur.Status = status
		cur.Error = msg
	})

	removed := errors.Is(uerr, projectrepo.ErrNotFound)
	if removed && s.snapshots != nil {
		_ = s.snapshots.Delete(wctx, p.UserID, p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, p.ID)
	switch {
	case removed:
		s.events.Forget(p.ID, s.now())
	case uerr != nil:
		s.log.Error("update import status failed", zap.String("project_id", p.ID), zap.Error(uerr))
		s.publish(p.ID, projectrepo.StatusError, uerr.Error())
	default:
		s.publish(p.ID, status, msg)
	}
}

func (s *Service) takeSnapshot(ctx context.Context, token string, p ImportedProject) error {
	owner, name, err := github.ParseFullName(p.Repository.FullName)
	if err != nil {
		return err
	}
	snap := snapshot.Snapshot{
		ProjectID:  p.ID,
		UserID:     p.UserID,
		Repository: p.Repository,
		Branch:     p.Branch,
		CapturedAt: s.now().UTC(),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		root, err := s.gh.Contents(gctx, token, owner, name, "", p.Branch)
		if err != nil {
			return fmt.Errorf("list root: %w", err)
		}
		snap.Root = root
		return nil
	})
	g.Go(func() error {
		langs, err := s.gh.Languages(gctx, token, owner, name)
		if err != nil {
			return fmt.Errorf("languages: %w", err)
		}
		snap.Languages = langs
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.Put(ctx, snap)
}

func (s *Service) publish(id string, status projectrepo.Status, msg string) {
	s.events.Publish(Event{ProjectID: id, Status: status, Error: msg, At: s.now()})
}
