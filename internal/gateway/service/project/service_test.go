package project

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	projectrepo "ghimport/internal/gateway/repository/project"
	"ghimport/internal/gateway/repository/snapshot"
	"ghimport/internal/github"
)

type fakeGitHub struct {
	github.API

	mu      sync.Mutex
	block   chan struct{}
	langErr error
	tokens  []string
}

func (f *fakeGitHub) Contents(ctx context.Context, token, owner, repo, path, ref string) ([]github.Content, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []github.Content{{Name: "README.md", Path: "README.md", Type: github.ContentTypeFile}}, nil
}

func (f *fakeGitHub) Languages(ctx context.Context, token, owner, repo string) (github.Languages, error) {
	if f.langErr != nil {
		return nil, f.langErr
	}
	return github.Languages{"Go": 10}, nil
}

type fixture struct {
	svc   *Service
	gh    *fakeGitHub
	snaps *snapshot.Store
	repo  projectrepo.Repository
}

func newFixture(t *testing.T, gh *fakeGitHub) fixture {
	t.Helper()
	return newFixtureWith(t, gh, projectrepo.NewFileStore(filepath.Join(t.TempDir(), "projects.json")), Options{})
}

func newFixtureWith(t *testing.T, gh *fakeGitHub, repo projectrepo.Repository, opts Options) fixture {
	t.Helper()
	snaps, err := snapshot.NewStore(snapshot.NewMemoryBlobs())
	require.NoError(t, err)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	opts.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Millisecond)
		return clock
	}
	svc := New(repo, snaps, gh, opts)
	t.Cleanup(svc.Close)
	return fixture{svc: svc, gh: gh, snaps: snaps, repo: repo}
}

func openSQLite(t *testing.T) projectrepo.Repository {
	t.Helper()
	repo, err := projectrepo.Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("event stream did not close, got %+v", got)
		}
	}
}

var hello = github.Repository{ID: 42, Name: "hello", FullName: "octo/hello", DefaultBranch: "main"}

func TestImport_CreatesAndSnapshots(t *testing.T) {
	f := newFixture(t, &fakeGitHub{})
	ctx := context.Background()
	caller := Caller{UserID: "alice", Token: "tok"}

	res, err := f.svc.Import(ctx, caller, hello, "main")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Regexp(t, `^42-main-\d+$`, res.ID)

	f.svc.Wait()
	p, err := f.svc.Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	assert.Equal(t, projectrepo.StatusSuccess, p.Status)
	assert.Empty(t, p.Error)

	snap, err := f.svc.Snapshot(ctx, "alice", res.ID)
	require.NoError(t, err)
	assert.Equal(t, "main", snap.Branch)
	assert.Len(t, snap.Root, 1)
	assert.Equal(t, github.Languages{"Go": 10}, snap.Languages)
	assert.Equal(t, []string{"tok"}, f.gh.tokens)

	_, err = f.svc.Snapshot(ctx, "bob", res.ID)
	assert.ErrorIs(t, err, projectrepo.ErrNotFound)
}

func TestImport_Deduplicates(t *testing.T) {
	f := newFixture(t, &fakeGitHub{})
	ctx := context.Background()
	caller := Caller{UserID: "alice", Token: "tok"}

	first, err := f.svc.Import(ctx, caller, hello, "main")
	require.NoError(t, err)
	again, err := f.svc.Import(ctx, caller, hello, "main")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.ID, again.ID)

	other, err := f.svc.Import(ctx, caller, hello, "dev")
	require.NoError(t, err)
	assert.True(t, other.Created)

	f.svc.Wait()
	list, err := f.svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, other.ID, list[0].ID, "newest first")
	assert.Len(t, f.gh.tokens, 2, "no job for the duplicate")
}

func TestImport_Validation(t *testing.T) {
	f := newFixture(t, &fakeGitHub{})
	_, err := f.svc.Import(context.Background(), Caller{UserID: "alice"}, hello, " ")
	assert.ErrorIs(t, err, ErrInvalidImport)
	_, err = f.svc.Import(context.Background(), Caller{UserID: "alice"}, github.Repository{}, "main")
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestImport_FailureMarksError(t *testing.T) {
	f := newFixture(t, &fakeGitHub{langErr: errors.New("rate limited")})
	ctx := context.Background()

	res, err := f.svc.Import(ctx, Caller{UserID: "alice", Token: "tok"}, hello, "main")
	require.NoError(t, err)
	f.svc.Wait()

	p, err := f.svc.Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	assert.Equal(t, projectrepo.StatusError, p.Status)
	assert.Contains(t, p.Error, "rate limited")

	_, err = f.svc.Snapshot(ctx, "alice", res.ID)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestSubscribe_SeesImportingThenSuccess(t *testing.T) {
	gh := &fakeGitHub{block: make(chan struct{})}
	f := newFixture(t, gh)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := f.svc.Import(ctx, Caller{UserID: "alice", Token: "tok"}, hello, "main")
	require.NoError(t, err)

	events, err := f.svc.Subscribe(ctx, "alice", res.ID)
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, projectrepo.StatusImporting, first.Status)
	close(gh.block)

	var last Event
	for ev := range events {
		last = ev
	}
	assert.Equal(t, projectrepo.StatusSuccess, last.Status)
	assert.Equal(t, res.ID, last.ProjectID)

	_, err = f.svc.Subscribe(ctx, "bob", res.ID)
	assert.ErrorIs(t, err, projectrepo.ErrNotFound)
}

func TestRemove_DeletesSnapshot(t *testing.T) {
	f := newFixture(t, &fakeGitHub{})
	ctx := context.Background()

	res, err := f.svc.Import(ctx, Caller{UserID: "alice", Token: "tok"}, hello, "main")
	require.NoError(t, err)
	f.svc.Wait()

	require.NoError(t, f.svc.Remove(ctx, "alice", res.ID))
	_, err = f.snaps.Get(ctx, "alice", res.ID)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
	assert.ErrorIs(t, f.svc.Remove(ctx, "alice", res.ID), projectrepo.ErrNotFound)
}

func TestNewID(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "42-main-1700000000123", NewID(42, "main", at))
}

func TestImport_TimeoutIsStored(t *testing.T) {
	f := newFixtureWith(t, &fakeGitHub{block: make(chan struct{})}, openSQLite(t), Options{JobTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	res, err := f.svc.Import(ctx, Caller{UserID: "alice", Token: "tok"}, hello, "main")
	require.NoError(t, err)
	f.svc.Wait()

	p, err := f.repo.Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	assert.Equal(t, projectrepo.StatusError, p.Status)
	assert.Contains(t, p.Error, context.DeadlineExceeded.Error())
}

func TestClose_StoresCancelledImport(t *testing.T) {
	f := newFixtureWith(t, &fakeGitHub{block: make(chan struct{})}, openSQLite(t), Options{})
	ctx := context.Background()

	res, err := f.svc.Import(ctx, Caller{UserID: "alice", Token: "tok"}, hello, "main")
	require.NoError(t, err)
	f.svc.Close()

	p, err := f.repo.Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	assert.Equal(t, projectrepo.StatusError, p.Status)
	assert.Contains(t, p.Error, context.Canceled.Error())
}

func TestSubscribe_RemovedWhileImporting(t *testing.T) {
	gh := &fakeGitHub{block: make(chan struct{})}
	f := newFixture(t, gh)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := f.svc.Import(ctx, Caller{UserID: "alice", Token: "tok"}, hello, "main")
	require.NoError(t, err)
	events, err := f.svc.Subscribe(ctx, "alice", res.ID)
	require.NoError(t, err)
	assert.Equal(t, projectrepo.StatusImporting, (<-events).Status)

	require.NoError(t, f.svc.Remove(ctx, "alice", res.ID))
	close(gh.block)

	got := drain(t, events)
	require.Len(t, got, 1)
	assert.Equal(t, StatusRemoved, got[0].Status)

	f.svc.Wait()
	assert.Zero(t, f.svc.events.Len())
	_, err = f.snaps.Get(ctx, "alice", res.ID)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestStaleImport_SettledByNextProcess(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()
	// left behind by a process that died mid-import
	_, _, err := repo.Add(ctx, ImportedProject{
		ID: "42-main-1", UserID: "alice", Repository: hello, Branch: "main",
		ImportedAt: time.UnixMilli(1), Status: projectrepo.StatusImporting,
	})
	require.NoError(t, err)

	f := newFixtureWith(t, &fakeGitHub{}, repo, Options{})

	events, err := f.svc.Subscribe(ctx, "alice", "42-main-1")
	require.NoError(t, err)
	got := drain(t, events)
	require.Len(t, got, 1)
	assert.Equal(t, projectrepo.StatusError, got[0].Status)
	assert.Equal(t, "import interrupted", got[0].Error)

	list, err := f.svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, projectrepo.StatusError, list[0].Status)
	assert.Zero(t, f.svc.events.Len())

	again, err := f.svc.Import(ctx, Caller{UserID: "alice", Token: "tok"}, hello, "main")
	require.NoError(t, err)
	assert.False(t, again.Created)
}

func TestSubscribe_FinishedImportSendsOneEvent(t *testing.T) {
	f := newFixture(t, &fakeGitHub{})
	ctx := context.Background()
	res, err := f.svc.Import(ctx, Caller{UserID: "alice", Token: "tok"}, hello, "main")
	require.NoError(t, err)
	f.svc.Wait()

	events, err := f.svc.Subscribe(ctx, "alice", res.ID)
	require.NoError(t, err)
	got := drain(t, events)
	require.Len(t, got, 1)
	assert.Equal(t, projectrepo.StatusSuccess, got[0].Status)
	assert.Zero(t, f.svc.events.Len())
}
