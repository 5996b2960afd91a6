// Package github is the narrow slice of the GitHub REST API the gateway
// proxies. Every call takes the caller's OAuth token; responses are reshaped
// into the local types in types.go.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

const (
	DefaultUserAgent = "ghimport"
	perPage          = 100
)

// API is what the HTTP handlers and the import service depend on.
type API interface {
	Me(ctx context.Context, token string) (Me, error)
	Profile(ctx context.Context, token string) (map[string]any, error)
	Repositories(ctx context.Context, token string) ([]Repository, error)
	Branches(ctx context.Context, token, owner, repo string) ([]Branch, error)
	Contents(ctx context.Context, token, owner, repo, path, ref string) ([]Content, error)
	Contributors(ctx context.Context, token, owner, repo string) ([]Contributor, error)
	Languages(ctx context.Context, token, owner, repo string) (Languages, error)
	ContributorStats(ctx context.Context, token, owner, repo string) ([]ContributorStats, error)
	CommitActivity(ctx context.Context, token, owner, repo string) ([]CommitActivity, error)
}

type Options struct {
	// BaseURL overrides https://api.github.com/.
	BaseURL   string
	UserAgent string
	// HTTPClient is the transport the per-token clients are layered on.
	HTTPClient *http.Client
}

type Client struct {
	baseURL    *url.URL
	userAgent  string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

func New(opts Options) (*Client, error) {
	c := &Client{
		userAgent:  strings.TrimSpace(opts.UserAgent),
		httpClient: opts.HTTPClient,
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if raw := strings.TrimSpace(opts.BaseURL); raw != "" {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		c.baseURL = u
	}
	return c, nil
}

func (c *Client) client(ctx context.Context, token string) *gh.Client {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	g := gh.NewClient(oauth2.NewClient(ctx, src))
	g.UserAgent = c.userAgent
	if c.baseURL != nil {
		g.BaseURL = c.baseURL
	}
	return g
}

func (c *Client) Me(ctx context.Context, token string) (Me, error) {
	u, _, err := c.client(ctx, token).Users.Get(ctx, "")
	if err != nil {
		return Me{}, classify("get user", err)
	}
	return Me{
		ID:        u.GetID(),
		Login:     u.GetLogin(),
		AvatarURL: u.GetAvatarURL(),
		Name:      u.Name,
	}, nil
}

// Profile returns the raw /user document so callers can pick arbitrary
// fields out of it.
func (c *Client) Profile(ctx context.Context, token string) (map[string]any, error) {
	g := c.client(ctx, token)
	req, err := g.NewRequest(http.MethodGet, "user", nil)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile := map[string]any{}
	if _, err := g.Do(ctx, req, &profile); err != nil {
		return nil, classify("get profile", err)
	}
	return profile, nil
}

func (c *Client) Repositories(ctx context.Context, token string) ([]Repository, error) {
	repos, _, err := c.client(ctx, token).Repositories.ListByAuthenticatedUser(ctx, &gh.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, classify("list repositories", err)
	}
	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, toRepository(r))
	}
	return out, nil
}

func (c *Client) Branches(ctx context.Context, token, owner, repo string) ([]Branch, error) {
	branches, _, err := c.client(ctx, token).Repositories.ListBranches(ctx, owner, repo, &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, classify("list branches", err)
	}
	out := make([]Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, Branch{Name: b.GetName(), Protected: b.GetProtected()})
	}
	return out, nil
}

// Contents lists a directory or fetches a single file. The result is always
// a slice; a file comes back as a one-element slice.
func (c *Client) Contents(ctx context.Context, token, owner, repo, path, ref string) ([]Content, error) {
	var opts *gh.RepositoryContentGetOptions
	if ref = strings.TrimSpace(ref); ref != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: ref}
	}
	file, dir, _, err := c.client(ctx, token).Repositories.GetContents(ctx, owner, repo, strings.Trim(path, "/"), opts)
	if err != nil {
		return nil, classify("get contents", err)
	}
	if file != nil {
		return []Content{toContent(file)}, nil
	}
	out := make([]Content, 0, len(dir))
	for _, item := range dir {
		out = append(out, toContent(item))
	}
	return out, nil
}

func (c *Client) Contributors(ctx context.Context, token, owner, repo string) ([]Contributor, error) {
	list, _, err := c.client(ctx, token).Repositories.ListContributors(ctx, owner, repo, &gh.ListContributorsOptions{
		Anon:        "1",
		ListOptions: gh.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, classify("list contributors", err)
	}
	out := make([]Contributor, 0, len(list))
	for _, ct := range list {
		login := ct.GetLogin()
		if login == "" {
			// anonymous contributors only carry a name/email
			login = ct.GetName()
		}
		out = append(out, Contributor{
			Login:         login,
			AvatarURL:     ct.GetAvatarURL(),
			HTMLURL:       ct.GetHTMLURL(),
			Contributions: ct.GetContributions(),
		})
	}
	return out, nil
}

func (c *Client) Languages(ctx context.Context, token, owner, repo string) (Languages, error) {
	langs, _, err := c.client(ctx, token).Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return nil, classify("list languages", err)
	}
	if langs == nil {
		langs = map[string]int{}
	}
	return Languages(langs), nil
}

func (c *Client) ContributorStats(ctx context.Context, token, owner, repo string) ([]ContributorStats, error) {
	stats, _, err := c.client(ctx, token).Repositories.ListContributorsStats(ctx, owner, repo)
	if err != nil {
		return nil, classify("contributor stats", err)
	}
	out := make([]ContributorStats, 0, len(stats))
	for _, s := range stats {
		item := ContributorStats{Total: s.GetTotal(), Weeks: make([]WeekStat, 0, len(s.Weeks))}
		if s.Author != nil {
			item.Author = &Author{
				Login:     s.Author.GetLogin(),
				AvatarURL: s.Author.GetAvatarURL(),
				HTMLURL:   s.Author.GetHTMLURL(),
			}
		}
		for _, w := range s.Weeks {
			item.Weeks = append(item.Weeks, WeekStat{
				W: unixOrZero(w.GetWeek()),
				A: w.GetAdditions(),
				D: w.GetDeletions(),
				C: w.GetCommits(),
			})
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) CommitActivity(ctx context.Context, token, owner, repo string) ([]CommitActivity, error) {
	weeks, _, err := c.client(ctx, token).Repositories.ListCommitActivity(ctx, owner, repo)
	if err != nil {
		return nil, classify("commit activity", err)
	}
	out := make([]CommitActivity, 0, len(weeks))
	for _, w := range weeks {
		days := append([]int(nil), w.Days...)
		if days == nil {
			days = []int{}
		}
		out = append(out, CommitActivity{
			Days:  days,
			Total: w.GetTotal(),
			Week:  unixOrZero(w.GetWeek()),
		})
	}
	return out, nil
}

func toRepository(r *gh.Repository) Repository {
	var updated string
	if ts := r.GetUpdatedAt(); !ts.IsZero() {
		updated = ts.UTC().Format(time.RFC3339)
	}
	return Repository{
		ID:            r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.Description,
		Private:       r.GetPrivate(),
		UpdatedAt:     updated,
		DefaultBranch: r.GetDefaultBranch(),
	}
}

func toContent(c *gh.RepositoryContent) Content {
	return Content{
		Name:        c.GetName(),
		Path:        c.GetPath(),
		Type:        c.GetType(),
		Size:        c.GetSize(),
		SHA:         c.GetSHA(),
		Content:     rawContent(c),
		Encoding:    c.GetEncoding(),
		DownloadURL: c.GetDownloadURL(),
		URL:         c.GetURL(),
		GitURL:      c.GetGitURL(),
		HTMLURL:     c.GetHTMLURL(),
	}
}

// rawContent keeps the payload as GitHub sent it (base64); GetContent
// would decode it.
func rawContent(c *gh.RepositoryContent) string {
	if c.Content == nil {
		return ""
	}
	return *c.Content
}

func unixOrZero(ts gh.Timestamp) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.Unix()
}
