package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cached serves safety-analysis lookups (open pull requests and recent
// commits per branch) from an in-process cache. Invalidate drops a branch's
// entries when a webhook reports activity on it.
type Cached struct {
	SourceControl
	cache *ristretto.Cache[string, any]
	ttl   time.Duration

	mu          sync.Mutex
	generations map[string]uint64
}

var _ SourceControl = (*Cached)(nil)

// NewCached wraps sc with a cache holding up to maxEntries lookups for ttl.
func NewCached(sc SourceControl, maxEntries int64, ttl time.Duration) (*Cached, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,

		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating provider cache: %w", err)
	}
	return &Cached{
		SourceControl: sc,
		cache:         c,
		ttl:           ttl,
		generations:   make(map[string]uint64),
	}, nil
}

// Invalidate forgets cached lookups for branch.
func (c *Cached) Invalidate(branch string) {
	c.mu.Lock()
	c.generations[branch]++
	c.mu.Unlock()
}

// Close releases the cache.
func (c *Cached) Close() {
	c.cache.Close()
}

func (c *Cached) key(kind, branch string, extra int64) string {
	c.mu.Lock()
	gen := c.generations[branch]
	c.mu.Unlock()
	return fmt.Sprintf("%s|%d|%d|%s", kind, gen, extra, branch)
}

func (c *Cached) store(key string, v any) {
	c.cache.SetWithTTL(key, v, 1, c.ttl)
	c.cache.Wait()
}

// ListOpenPullRequests returns cached open pull requests for branch.
func (c *Cached) ListOpenPullRequests(ctx context.Context, branch string) ([]PullRequest, error) {
	key := c.key("prs", branch, 0)
	if v, ok := c.cache.Get(key); ok {
		return v.([]PullRequest), nil
	}

	prs, err := c.SourceControl.ListOpenPullRequests(ctx, branch)
	if err != nil {
		return nil, err
	}
	c.store(key, prs)
	return prs, nil
}

// ListRecentCommits returns cached commits for branch. The window start is
// keyed at minute resolution.
func (c *Cached) ListRecentCommits(ctx context.Context, branch string, since time.Time) ([]Commit, error) {
	key := c.key("commits", branch, since.Truncate(time.Minute).Unix())
	if v, ok := c.cache.Get(key); ok {
		return v.([]Commit), nil
	}

	commits, err := c.SourceControl.ListRecentCommits(ctx, branch, since)
	if err != nil {
		return nil, err
	}
	c.store(key, commits)
	return commits, nil
}

// MergePullRequest merges through the wrapped provider and invalidates the
// target branch.
func (c *Cached) MergePullRequest(ctx context.Context, id, mergedBy string) (*PullRequest, error) {
	pr, err := c.SourceControl.MergePullRequest(ctx, id, mergedBy)
	if err != nil {
		return nil, err
	}
	c.Invalidate(pr.TargetBranch)
	return pr, nil
}

// CreatePullRequest opens through the wrapped provider and invalidates the
// target branch.
func (c *Cached) CreatePullRequest(ctx context.Context, req NewPullRequest) (*PullRequest, error) {
	pr, err := c.SourceControl.CreatePullRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	c.Invalidate(pr.TargetBranch)
	return pr, nil
}
