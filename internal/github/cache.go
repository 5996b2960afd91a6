package github

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached memoizes read-only calls per token for a short TTL. Errors are
// never cached, so a pending statistics answer is retried on the next call.
type Cached struct {
	next  API
	cache *expirable.LRU[string, any]
}

var _ API = (*Cached)(nil)

func NewCached(next API, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

func (c *Cached) Len() int { return c.cache.Len() }

func cacheKey(token string, parts ...string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8]) + "|" + strings.Join(parts, "|")
}

func cachedCall[T any](c *Cached, key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.cache.Add(key, v)
	return v, nil
}

// Me is not cached: the status check must see a revoked token right away.
func (c *Cached) Me(ctx context.Context, token string) (Me, error) {
	return c.next.Me(ctx, token)
}

func (c *Cached) Profile(ctx context.Context, token string) (map[string]any, error) {
	return cachedCall(c, cacheKey(token, "profile"), func() (map[string]any, error) {
		return c.next.Profile(ctx, token)
	})
}

func (c *Cached) Repositories(ctx context.Context, token string) ([]Repository, error) {
	return cachedCall(c, cacheKey(token, "repos"), func() ([]Repository, error) {
		return c.next.Repositories(ctx, token)
	})
}

func (c *Cached) Branches(ctx context.Context, token, owner, repo string) ([]Branch, error) {
	return cachedCall(c, cacheKey(token, "branches", owner, repo), func() ([]Branch, error) {
		return c.next.Branches(ctx, token, owner, repo)
	})
}

func (c *Cached) Contents(ctx context.Context, token, owner, repo, path, ref string) ([]Content, error) {
	return cachedCall(c, cacheKey(token, "contents", owner, repo, path, ref), func() ([]Content, error) {
		return c.next.Contents(ctx, token, owner, repo, path, ref)
	})
}

func (c *Cached) Contributors(ctx context.Context, token, owner, repo string) ([]Contributor, error) {
	return cachedCall(c, cacheKey(token, "contributors", owner, repo), func() ([]Contributor, error) {
		return c.next.Contributors(ctx, token, owner, repo)
	})
}

func (c *Cached) Languages(ctx context.Context, token, owner, repo string) (Languages, error) {
	return cachedCall(c, cacheKey(token, "languages", owner, repo), func() (Languages, error) {
		return c.next.Languages(ctx, token, owner, repo)
	})
}

func (c *Cached) ContributorStats(ctx context.Context, token, owner, repo string) ([]ContributorStats, error) {
	return cachedCall(c, cacheKey(token, "stats/contributors", owner, repo), func() ([]ContributorStats, error) {
		return c.next.ContributorStats(ctx, token, owner, repo)
	})
}

func (c *Cached) CommitActivity(ctx context.Context, token, owner, repo string) ([]CommitActivity, error) {
	return cachedCall(c, cacheKey(token, "stats/commit_activity", owner, repo), func() ([]CommitActivity, error) {
		return c.next.CommitActivity(ctx, token, owner, repo)
	})
}
