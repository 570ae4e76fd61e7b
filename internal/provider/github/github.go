package github

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
	"github.com/google/go-github/v60/github"
)

var _ provider.SourceControl = (*GitHubProvider)(nil)

// GitHubProvider implements provider.SourceControl for one GitHub repository.
type GitHubProvider struct {
	client *github.Client
	owner  string
	repo   string
}

// Option configures the GitHub provider.
type Option func(*GitHubProvider)

// WithBaseURL sets a custom base URL (for GitHub Enterprise and testing).
func WithBaseURL(url string) Option {
	return func(p *GitHubProvider) {
		p.client.BaseURL, _ = p.client.BaseURL.Parse(strings.TrimRight(url, "/") + "/")
	}
}

// New creates a GitHub provider for owner/repo.
func New(token, owner, repo string, opts ...Option) *GitHubProvider {
	httpClient := &http.Client{
		Transport: &tokenTransport{token: token},
		Timeout:   30 * time.Second,
	}

	p := &GitHubProvider{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// tokenTransport adds authorization header to requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// Name returns the provider name.
func (p *GitHubProvider) Name() string {
	return "github"
}

// CreatePullRequest opens a pull request from req.SourceBranch.
func (p *GitHubProvider) CreatePullRequest(ctx context.Context, req provider.NewPullRequest) (*provider.PullRequest, error) {
	pr, _, err := p.client.PullRequests.Create(ctx, p.owner, p.repo, &github.NewPullRequest{
		Title: github.String(req.Title),
		Head:  github.String(req.SourceBranch),
		Base:  github.String(req.TargetBranch),
		Body:  github.String(req.Description),
	})
	if err != nil {
		return nil, classify("creating pull request", err)
	}
	out := convertPR(pr)
	return &out, nil
}

// ListUserPullRequests returns the repository's pull requests opened by author.
func (p *GitHubProvider) ListUserPullRequests(ctx context.Context, author string) ([]provider.PullRequest, error) {
	prs, err := p.listPulls(ctx, &github.PullRequestListOptions{
		State:     "all",
		Sort:      "created",
		Direction: "desc",
	})
	if err != nil {
		return nil, err
	}

	var out []provider.PullRequest
	for _, pr := range prs {
		if strings.EqualFold(pr.Author, author) {
			out = append(out, pr)
		}
	}
	return out, nil
}

// MergePullRequest merges the pull request numbered id ("42", "#42" or "PR-42").
func (p *GitHubProvider) MergePullRequest(ctx context.Context, id, mergedBy string) (*provider.PullRequest, error) {
	number, err := parseNumber(id)
	if err != nil {
		return nil, err
	}

	pr, _, err := p.client.PullRequests.Get(ctx, p.owner, p.repo, number)
	if err != nil {
		return nil, classify("fetching pull request", err)
	}
	if pr.GetState() != "open" {
		return nil, fmt.Errorf("pull request %d is %s: %w", number, pr.GetState(), domain.ErrInvalidState)
	}

	msg := fmt.Sprintf("Merged by %s via voice command", mergedBy)
	result, _, err := p.client.PullRequests.Merge(ctx, p.owner, p.repo, number, msg, nil)
	if err != nil {
		return nil, classify("merging pull request", err)
	}
	if !result.GetMerged() {
		return nil, fmt.Errorf("pull request %d not merged: %s: %w", number, result.GetMessage(), domain.ErrInvalidState)
	}

	out := convertPR(pr)
	now := time.Now()
	out.State = provider.StateMerged
	out.MergedAt = &now
	out.MergedBy = mergedBy
	return &out, nil
}

// GetBranchStatus returns the pull requests whose head is branch.
func (p *GitHubProvider) GetBranchStatus(ctx context.Context, branch string) (*provider.BranchStatus, error) {
	prs, err := p.listPulls(ctx, &github.PullRequestListOptions{
		State: "all",
		Head:  p.owner + ":" + branch,
	})
	if err != nil {
		return nil, err
	}
	return &provider.BranchStatus{Branch: branch, PullRequests: prs}, nil
}

// ListOpenPullRequests returns open pull requests whose base is branch.
func (p *GitHubProvider) ListOpenPullRequests(ctx context.Context, branch string) ([]provider.PullRequest, error) {
	return p.listPulls(ctx, &github.PullRequestListOptions{
		State: "open",
		Base:  branch,
	})
}

// ListRecentCommits returns up to five commits on branch after since.
func (p *GitHubProvider) ListRecentCommits(ctx context.Context, branch string, since time.Time) ([]provider.Commit, error) {
	commits, _, err := p.client.Repositories.ListCommits(ctx, p.owner, p.repo, &github.CommitsListOptions{
		SHA:         branch,
		Since:       since,
		ListOptions: github.ListOptions{PerPage: 5},
	})
	if err != nil {
		return nil, classify("listing commits", err)
	}

	out := make([]provider.Commit, len(commits))
	for i, c := range commits {
		out[i] = provider.Commit{
			SHA:       c.GetSHA(),
			Message:   c.GetCommit().GetMessage(),
			Author:    c.GetCommit().GetAuthor().GetName(),
			CreatedAt: c.GetCommit().GetAuthor().GetDate().Time,
		}
	}
	return out, nil
}

func (p *GitHubProvider) listPulls(ctx context.Context, opts *github.PullRequestListOptions) ([]provider.PullRequest, error) {
	opts.ListOptions = github.ListOptions{PerPage: 50}
	prs, _, err := p.client.PullRequests.List(ctx, p.owner, p.repo, opts)
	if err != nil {
		return nil, classify("listing pull requests", err)
	}

	out := make([]provider.PullRequest, len(prs))
	for i, pr := range prs {
		out[i] = convertPR(pr)
	}
	return out, nil
}

func convertPR(pr *github.PullRequest) provider.PullRequest {
	state := provider.StateOpen
	switch {
	case pr.GetMerged() || pr.MergedAt != nil:
		state = provider.StateMerged
	case pr.GetState() == "closed":
		state = provider.StateClosed
	}

	out := provider.PullRequest{
		ID:           strconv.Itoa(pr.GetNumber()),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		State:        state,
		Author:       pr.GetUser().GetLogin(),
		URL:          pr.GetHTMLURL(),
		CreatedAt:    pr.GetCreatedAt().Time,
		MergedBy:     pr.GetMergedBy().GetLogin(),
	}
	if pr.MergedAt != nil {
		t := pr.MergedAt.Time
		out.MergedAt = &t
	}
	return out
}

func parseNumber(id string) (int, error) {
	s := strings.TrimLeft(strings.ToUpper(strings.TrimSpace(id)), "PR-#")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("pull request %q: %w", id, domain.ErrNotFound)
	}
	return n, nil
}

// classify maps API failures onto the domain errors: 404 is ErrNotFound,
// 405/409/422 are ErrInvalidState and 5xx or transport failures are
// ErrUnavailable.
func classify(op string, err error) error {
	var apiErr *github.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		switch code := apiErr.Response.StatusCode; {
		case code == http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		case code == http.StatusMethodNotAllowed, code == http.StatusConflict, code == http.StatusUnprocessableEntity:
			return fmt.Errorf("%s: %s: %w", op, apiErr.Message, domain.ErrInvalidState)
		case code >= 500:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrUnavailable, err)
}
