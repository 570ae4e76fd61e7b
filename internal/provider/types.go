package provider

import "time"

// Pull request states, normalized across providers.
const (
	StateOpen   = "OPEN"
	StateMerged = "MERGED"
	StateClosed = "CLOSED"
)

// PullRequest represents a merge request/pull request.
type PullRequest struct {
	ID           string // PR-101 (local), PR number (GitHub) or MR IID (GitLab)
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
	State        string
	Author       string
	URL          string
	CreatedAt    time.Time
	MergedAt     *time.Time
	MergedBy     string
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
	Author       string
}

// Commit represents a commit on a branch.
type Commit struct {
	SHA       string
	Message   string
	Author    string
	CreatedAt time.Time
}

// BranchStatus summarizes the pull requests raised from a branch.
type BranchStatus struct {
	Branch       string
	PullRequests []PullRequest
}
