package client

import (
	"context"
	"sync"

	"ghimport/internal/gateway/handler"
	"ghimport/internal/github"
)

// State is a point-in-time view of a Resource.
type State[T any] struct {
	Data    T
	Loading bool
	Err     string
}

// Resource holds the last fetched value of one gateway resource. On failure
// Data goes back to its empty value and Err carries a message fit for
// display.
type Resource[T any] struct {
	fetch  func(ctx context.Context) (T, error)
	empty  T
	errMsg string

	mu    sync.Mutex
	state State[T]
}

func NewResource[T any](empty T, errMsg string, fetch func(ctx context.Context) (T, error)) *Resource[T] {
	return &Resource[T]{
		fetch:  fetch,
		empty:  empty,
		errMsg: errMsg,
		state:  State[T]{Data: empty},
	}
}

// Fetch loads the resource. The returned error is the underlying cause;
// Snapshot().Err holds the display message.
func (r *Resource[T]) Fetch(ctx context.Context) error {
	r.mu.Lock()
	r.state.Loading = true
	r.state.Err = ""
	r.mu.Unlock()

	data, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Loading = false
	if err != nil {
		r.state.Data = r.empty
		r.state.Err = r.errMsg
		return err
	}
	r.state.Data = data
	return nil
}

func (r *Resource[T]) Snapshot() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (c *Client) Repos() *Resource[[]github.Repository] {
	return NewResource([]github.Repository{}, "Failed to load repositories. Please try again.", c.Repositories)
}

func (c *Client) BranchList(owner, repo string) *Resource[[]github.Branch] {
	return NewResource([]github.Branch{}, "Failed to load branches", func(ctx context.Context) ([]github.Branch, error) {
		return c.Branches(ctx, owner, repo)
	})
}

func (c *Client) LanguageData(owner, repo string) *Resource[github.Languages] {
	return NewResource(github.Languages{}, "Failed to load language data", func(ctx context.Context) (github.Languages, error) {
		return c.Languages(ctx, owner, repo)
	})
}

func (c *Client) ContributorList(owner, repo string) *Resource[[]github.Contributor] {
	return NewResource([]github.Contributor{}, "Failed to fetch contributors", func(ctx context.Context) ([]github.Contributor, error) {
		return c.Contributors(ctx, owner, repo)
	})
}

func (c *Client) ContributorStatsData(owner, repo string) *Resource[[]github.ContributorStats] {
	return NewResource([]github.ContributorStats{}, "Failed to fetch contributor stats", func(ctx context.Context) ([]github.ContributorStats, error) {
		return c.ContributorStats(ctx, owner, repo)
	})
}

func (c *Client) CommitActivityData(owner, repo string) *Resource[[]github.CommitActivity] {
	return NewResource([]github.CommitActivity{}, "Failed to fetch commit activity", func(ctx context.Context) ([]github.CommitActivity, error) {
		return c.CommitActivity(ctx, owner, repo)
	})
}

func (c *Client) ProjectList() *Resource[[]handler.ProjectView] {
	return NewResource([]handler.ProjectView{}, "Failed to load imported projects", c.Projects)
}
