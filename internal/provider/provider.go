package provider

import (
	"context"
	"time"
)

// SourceControl defines the source-control operations the command pipeline
// uses. Implementations are bound to one repository.
type SourceControl interface {
	// Name returns the provider name (local, github, gitlab).
	Name() string

	// CreatePullRequest opens a pull request.
	CreatePullRequest(ctx context.Context, req NewPullRequest) (*PullRequest, error)

	// ListUserPullRequests returns pull requests authored by the user, newest first.
	ListUserPullRequests(ctx context.Context, author string) ([]PullRequest, error)

	// MergePullRequest merges an open pull request.
	MergePullRequest(ctx context.Context, id, mergedBy string) (*PullRequest, error)

	// GetBranchStatus returns the pull requests whose source is branch.
	GetBranchStatus(ctx context.Context, branch string) (*BranchStatus, error)

	// ListOpenPullRequests returns open pull requests targeting branch.
	ListOpenPullRequests(ctx context.Context, branch string) ([]PullRequest, error)

	// ListRecentCommits returns commits on branch made after since.
	ListRecentCommits(ctx context.Context, branch string, since time.Time) ([]Commit, error)
}
