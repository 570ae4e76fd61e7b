package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/provider"
	"github.com/xanzy/go-gitlab"
)

var _ provider.SourceControl = (*GitLabProvider)(nil)

// GitLabProvider implements provider.SourceControl for one GitLab project.
type GitLabProvider struct {
	client  *gitlab.Client
	token   string
	project string // owner/repo
}

// Option configures the GitLab provider.
type Option func(*GitLabProvider)

// WithBaseURL sets a custom base URL (for self-hosted GitLab and testing).
func WithBaseURL(baseURL string) Option {
	return func(p *GitLabProvider) {
		p.client, _ = gitlab.NewClient(p.token, gitlab.WithBaseURL(strings.TrimRight(baseURL, "/")+"/api/v4"))
	}
}

// New creates a GitLab provider for the project owner/repo.
func New(token, owner, repo string, opts ...Option) *GitLabProvider {
	client, _ := gitlab.NewClient(token)
	p := &GitLabProvider{client: client, token: token, project: owner + "/" + repo}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the provider name.
func (p *GitLabProvider) Name() string {
	return "gitlab"
}

// CreatePullRequest opens a merge request.
func (p *GitLabProvider) CreatePullRequest(ctx context.Context, req provider.NewPullRequest) (*provider.PullRequest, error) {
	mr, _, err := p.client.MergeRequests.CreateMergeRequest(p.project, &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(req.Title),
		Description:  gitlab.Ptr(req.Description),
		SourceBranch: gitlab.Ptr(req.SourceBranch),
		TargetBranch: gitlab.Ptr(req.TargetBranch),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, classify("creating merge request", err)
	}
	out := convertMR(mr)
	return &out, nil
}

// ListUserPullRequests returns merge requests authored by author.
func (p *GitLabProvider) ListUserPullRequests(ctx context.Context, author string) ([]provider.PullRequest, error) {
	return p.listMRs(ctx, &gitlab.ListProjectMergeRequestsOptions{
		AuthorUsername: gitlab.Ptr(author),
		OrderBy:        gitlab.Ptr("created_at"),
		Sort:           gitlab.Ptr("desc"),
	})
}

// MergePullRequest accepts the merge request with IID id ("7", "!7" or "PR-7").
func (p *GitLabProvider) MergePullRequest(ctx context.Context, id, mergedBy string) (*provider.PullRequest, error) {
	iid, err := strconv.Atoi(strings.TrimLeft(strings.ToUpper(strings.TrimSpace(id)), "PR-!#"))
	if err != nil {
		return nil, fmt.Errorf("merge request %q: %w", id, domain.ErrNotFound)
	}

	mr, _, err := p.client.MergeRequests.GetMergeRequest(p.project, iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, classify("fetching merge request", err)
	}
	if mr.State != "opened" {
		return nil, fmt.Errorf("merge request !%d is %s: %w", iid, mr.State, domain.ErrInvalidState)
	}

	mr, _, err = p.client.MergeRequests.AcceptMergeRequest(p.project, iid, &gitlab.AcceptMergeRequestOptions{
		MergeCommitMessage: gitlab.Ptr(fmt.Sprintf("Merged by %s via voice command", mergedBy)),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, classify("accepting merge request", err)
	}

	out := convertMR(mr)
	if out.MergedBy == "" {
		out.MergedBy = mergedBy
	}
	return &out, nil
}

// GetBranchStatus returns merge requests whose source is branch.
func (p *GitLabProvider) GetBranchStatus(ctx context.Context, branch string) (*provider.BranchStatus, error) {
	mrs, err := p.listMRs(ctx, &gitlab.ListProjectMergeRequestsOptions{
		SourceBranch: gitlab.Ptr(branch),
	})
	if err != nil {
		return nil, err
	}
	return &provider.BranchStatus{Branch: branch, PullRequests: mrs}, nil
}

// ListOpenPullRequests returns open merge requests targeting branch.
func (p *GitLabProvider) ListOpenPullRequests(ctx context.Context, branch string) ([]provider.PullRequest, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{State: gitlab.Ptr("opened")}
	if branch != "" {
		opts.TargetBranch = gitlab.Ptr(branch)
	}
	return p.listMRs(ctx, opts)
}

// ListRecentCommits returns up to five commits on branch after since.
func (p *GitLabProvider) ListRecentCommits(ctx context.Context, branch string, since time.Time) ([]provider.Commit, error) {
	commits, _, err := p.client.Commits.ListCommits(p.project, &gitlab.ListCommitsOptions{
		RefName:     gitlab.Ptr(branch),
		Since:       gitlab.Ptr(since),
		ListOptions: gitlab.ListOptions{PerPage: 5},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, classify("listing commits", err)
	}

	out := make([]provider.Commit, len(commits))
	for i, c := range commits {
		out[i] = provider.Commit{
			SHA:     c.ID,
			Message: c.Title,
			Author:  c.AuthorName,
		}
		if c.CreatedAt != nil {
			out[i].CreatedAt = *c.CreatedAt
		}
	}
	return out, nil
}

func (p *GitLabProvider) listMRs(ctx context.Context, opts *gitlab.ListProjectMergeRequestsOptions) ([]provider.PullRequest, error) {
	opts.ListOptions = gitlab.ListOptions{PerPage: 50}
	mrs, _, err := p.client.MergeRequests.ListProjectMergeRequests(p.project, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, classify("listing merge requests", err)
	}

	out := make([]provider.PullRequest, len(mrs))
	for i, mr := range mrs {
		out[i] = convertMR(mr)
	}
	return out, nil
}

func convertMR(mr *gitlab.MergeRequest) provider.PullRequest {
	out := provider.PullRequest{
		ID:           strconv.Itoa(mr.IID),
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		State:        normalizeState(mr.State),
		URL:          mr.WebURL,
		MergedAt:     mr.MergedAt,
	}
	if mr.Author != nil {
		out.Author = mr.Author.Username
	}
	if mr.MergedBy != nil {
		out.MergedBy = mr.MergedBy.Username
	}
	if mr.CreatedAt != nil {
		out.CreatedAt = *mr.CreatedAt
	}
	return out
}

func normalizeState(state string) string {
	switch state {
	case "opened":
		return provider.StateOpen
	case "merged":
		return provider.StateMerged
	default:
		return provider.StateClosed
	}
}

// classify maps API failures onto the domain errors, like the GitHub provider.
func classify(op string, err error) error {
	var apiErr *gitlab.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		switch code := apiErr.Response.StatusCode; {
		case code == http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		case code == http.StatusMethodNotAllowed, code == http.StatusNotAcceptable, code == http.StatusConflict:
			return fmt.Errorf("%s: %s: %w", op, apiErr.Message, domain.ErrInvalidState)
		case code >= 500:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrUnavailable, err)
}
