// Package local is an in-memory source-control provider for running without
// a GitHub or GitLab repository.
package local

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/provider"
)

var _ provider.SourceControl = (*Provider)(nil)

// Provider keeps pull requests and commits in memory.
type Provider struct {
	mu      sync.Mutex
	baseURL string
	nextPR  int
	prs     map[string]*provider.PullRequest
	commits map[string][]provider.Commit
	now     func() time.Time
}

// Option configures the local provider.
type Option func(*Provider)

// WithBaseURL sets the URL pull request links are built under.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// New creates an empty local provider. Pull request ids start at PR-101.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL: "http://scm.local",
		nextPR:  100,
		prs:     make(map[string]*provider.PullRequest),
		commits: make(map[string][]provider.Commit),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "local"
}

// RecordCommit appends a commit to branch.
func (p *Provider) RecordCommit(branch string, c provider.Commit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = p.now()
	}
	p.commits[branch] = append(p.commits[branch], c)
}

// CreatePullRequest opens a pull request.
func (p *Provider) CreatePullRequest(ctx context.Context, req provider.NewPullRequest) (*provider.PullRequest, error) {
	if req.SourceBranch == "" {
		return nil, fmt.Errorf("source branch: %w", domain.ErrParameterMissing)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextPR++
	id := fmt.Sprintf("PR-%d", p.nextPR)
	pr := &provider.PullRequest{
		ID:           id,
		Title:        req.Title,
		Description:  req.Description,
		SourceBranch: req.SourceBranch,
		TargetBranch: req.TargetBranch,
		State:        provider.StateOpen,
		Author:       req.Author,
		URL:          p.baseURL + "/pull/" + id,
		CreatedAt:    p.now(),
	}
	p.prs[id] = pr

	out := *pr
	return &out, nil
}

// ListUserPullRequests returns pull requests authored by author, newest first.
func (p *Provider) ListUserPullRequests(ctx context.Context, author string) ([]provider.PullRequest, error) {
	return p.filter(func(pr *provider.PullRequest) bool {
		return pr.Author == author
	}), nil
}

// MergePullRequest merges an open pull request and records a merge commit on
// its target branch.
func (p *Provider) MergePullRequest(ctx context.Context, id, mergedBy string) (*provider.PullRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pr, ok := p.prs[strings.ToUpper(id)]
	if !ok {
		return nil, fmt.Errorf("pull request %s: %w", id, domain.ErrNotFound)
	}
	if pr.State != provider.StateOpen {
		return nil, fmt.Errorf("pull request %s is %s: %w", pr.ID, pr.State, domain.ErrInvalidState)
	}

	now := p.now()
	pr.State = provider.StateMerged
	pr.MergedAt = &now
	pr.MergedBy = mergedBy
	p.commits[pr.TargetBranch] = append(p.commits[pr.TargetBranch], provider.Commit{
		SHA:       fmt.Sprintf("merge-%s", strings.ToLower(pr.ID)),
		Message:   fmt.Sprintf("Merge %s from %s", pr.ID, pr.SourceBranch),
		Author:    mergedBy,
		CreatedAt: now,
	})

	out := *pr
	return &out, nil
}

// GetBranchStatus returns every pull request raised from branch.
func (p *Provider) GetBranchStatus(ctx context.Context, branch string) (*provider.BranchStatus, error) {
	return &provider.BranchStatus{
		Branch: branch,
		PullRequests: p.filter(func(pr *provider.PullRequest) bool {
			return pr.SourceBranch == branch
		}),
	}, nil
}

// ListOpenPullRequests returns open pull requests targeting branch. An empty
// branch matches every open pull request.
func (p *Provider) ListOpenPullRequests(ctx context.Context, branch string) ([]provider.PullRequest, error) {
	return p.filter(func(pr *provider.PullRequest) bool {
		return pr.State == provider.StateOpen && (branch == "" || pr.TargetBranch == branch)
	}), nil
}

// ListRecentCommits returns commits on branch after since, newest first.
func (p *Provider) ListRecentCommits(ctx context.Context, branch string, since time.Time) ([]provider.Commit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []provider.Commit
	for _, c := range p.commits[branch] {
		if c.CreatedAt.After(since) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (p *Provider) filter(keep func(*provider.PullRequest) bool) []provider.PullRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []provider.PullRequest
	for _, pr := range p.prs {
		if keep(pr) {
			out = append(out, *pr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return prNumber(out[i].ID) > prNumber(out[j].ID)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// prNumber returns the numeric suffix of a PR-<n> id, or 0.
func prNumber(id string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(id), "PR-"))
	return n
}
