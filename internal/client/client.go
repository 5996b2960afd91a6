// Package client talks to a running gateway with a GitHub bearer token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ghimport/internal/filetree"
	"ghimport/internal/gateway/handler"
	"ghimport/internal/gateway/repository/snapshot"
	projectsvc "ghimport/internal/gateway/service/project"
	"ghimport/internal/github"
)

const DefaultBaseURL = "http://localhost:8081"

type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("gateway responded %d: %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("gateway responded %d: %s", e.Status, e.Message)
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: u, token: strings.TrimSpace(opts.Token), http: hc}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e handler.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			apiErr.Message, apiErr.Details = e.Error, e.Details
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func repoPath(owner, repo, suffix string) string {
	return "/api/github/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + suffix
}

func (c *Client) Status(ctx context.Context) (bool, error) {
	var out handler.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out); err != nil {
		return false, err
	}
	return out.Authenticated, nil
}

func (c *Client) Repositories(ctx context.Context) ([]github.Repository, error) {
	var out []github.Repository
	err := c.do(ctx, http.MethodGet, "/api/github/repos", nil, nil, &out)
	return out, err
}

func (c *Client) Branches(ctx context.Context, owner, repo string) ([]github.Branch, error) {
	var out []github.Branch
	err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "/branches"), nil, nil, &out)
	return out, err
}

func (c *Client) Contents(ctx context.Context, owner, repo, path, ref string) ([]github.Content, error) {
	var out []github.Content
	q := url.Values{}
	if path != "" {
		q.Set("path", path)
	}
	if ref != "" {
		q.Set("ref", ref)
	}
	err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "/contents"), q, nil, &out)
	return out, err
}

func (c *Client) Contributors(ctx context.Context, owner, repo string) ([]github.Contributor, error) {
	var out []github.Contributor
	err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "/contributors"), nil, nil, &out)
	return out, err
}

func (c *Client) Languages(ctx context.Context, owner, repo string) (github.Languages, error) {
	var out github.Languages
	err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "/languages"), nil, nil, &out)
	return out, err
}

func (c *Client) ContributorStats(ctx context.Context, owner, repo string) ([]github.ContributorStats, error) {
	var out []github.ContributorStats
	err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "/stats/contributors"), nil, nil, &out)
	return out, err
}

func (c *Client) CommitActivity(ctx context.Context, owner, repo string) ([]github.CommitActivity, error) {
	var out []github.CommitActivity
	err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "/stats/commit_activity"), nil, nil, &out)
	return out, err
}

func (c *Client) File(ctx context.Context, owner, repo, ref, path string) (handler.FileResponse, error) {
	var out handler.FileResponse
	q := url.Values{"path": {path}}
	if ref != "" {
		q.Set("ref", ref)
	}
	err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "/file"), q, nil, &out)
	return out, err
}

// TreeLoader lists folders through the contents endpoint so a local
// filetree.Tree can be browsed lazily.
func (c *Client) TreeLoader(owner, repo, ref string) filetree.Loader {
	return filetree.LoaderFunc(func(ctx context.Context, path string) ([]github.Content, error) {
		return c.Contents(ctx, owner, repo, path, ref)
	})
}

func (c *Client) Projects(ctx context.Context) ([]handler.ProjectView, error) {
	var out []handler.ProjectView
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, nil, &out)
	return out, err
}

func (c *Client) Project(ctx context.Context, id string) (handler.ProjectView, error) {
	var out handler.ProjectView
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) Import(ctx context.Context, repo github.Repository, branch string) (projectsvc.ImportResult, error) {
	var out projectsvc.ImportResult
	in := handler.ImportRequest{Repository: repo, Branch: branch}
	err := c.do(ctx, http.MethodPost, "/api/projects", nil, in, &out)
	return out, err
}

func (c *Client) RemoveProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) Snapshot(ctx context.Context, id string) (snapshot.Snapshot, error) {
	var out snapshot.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id)+"/snapshot", nil, nil, &out)
	return out, err
}
