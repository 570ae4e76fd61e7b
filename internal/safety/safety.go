// Package safety scores how ready a branch is to deploy.
package safety

import (
	"fmt"

	"github.com/drewdunne/voiceops/internal/provider"
)

// Band is the readiness label derived from a score.
type Band string

const (
	BandSafe    Band = "SAFE"
	BandCaution Band = "CAUTION"
	BandRisk    Band = "RISK"
)

// Score deductions.
const (
	protectedBranchPenalty = 10
	openPRPenalty          = 5
	noRecentCommitsPenalty = 15
)

// Assessment is the outcome of scoring a branch.
type Assessment struct {
	Branch            string
	BranchProtected   bool
	OpenPRCount       int
	RecentCommitCount int
	Score             int
	Band              Band
	Reasons           []string
}

// Assess scores branch from its open pull requests and recent commits. The
// score starts at 100 and is clamped to [0, 100]. Assess does not modify its
// inputs.
func Assess(branch string, openPRs []provider.PullRequest, recentCommits []provider.Commit) Assessment {
	a := Assessment{
		Branch:            branch,
		BranchProtected:   isProtected(branch),
		OpenPRCount:       len(openPRs),
		RecentCommitCount: len(recentCommits),
		Score:             100,
	}

	if a.BranchProtected {
		a.Score -= protectedBranchPenalty
		a.Reasons = append(a.Reasons, fmt.Sprintf("protected branch %s (-%d)", branch, protectedBranchPenalty))
	}
	if a.OpenPRCount > 0 {
		penalty := openPRPenalty * a.OpenPRCount
		a.Score -= penalty
		a.Reasons = append(a.Reasons, fmt.Sprintf("%d open pull requests (-%d)", a.OpenPRCount, penalty))
	}
	if a.RecentCommitCount == 0 {
		a.Score -= noRecentCommitsPenalty
		a.Reasons = append(a.Reasons, fmt.Sprintf("no recent commits (-%d)", noRecentCommitsPenalty))
	}

	a.Score = max(0, min(100, a.Score))
	a.Band = BandFor(a.Score)
	return a
}

// BandFor maps a score to its band: 80 and above is SAFE, 60 to 79 is
// CAUTION, below 60 is RISK.
func BandFor(score int) Band {
	switch {
	case score >= 80:
		return BandSafe
	case score >= 60:
		return BandCaution
	default:
		return BandRisk
	}
}

func isProtected(branch string) bool {
	return branch == "main" || branch == "master"
}

// Recommendations lists follow-ups for the assessment.
func (a Assessment) Recommendations() []string {
	var recs []string
	if a.BranchProtected {
		recs = append(recs, "Verify branch protection rules")
	} else {
		recs = append(recs, "Review feature branch changes before release")
	}
	if a.OpenPRCount > 0 {
		recs = append(recs, "Check for pending pull requests")
	}
	if a.RecentCommitCount == 0 {
		recs = append(recs, "Confirm the branch is current")
	} else {
		recs = append(recs, "Review recent commits")
	}
	if a.Band != BandSafe {
		recs = append(recs, "Run full test suite")
	}
	return recs
}

// StatusLine describes the band in words.
func (a Assessment) StatusLine() string {
	switch a.Band {
	case BandSafe:
		return "Safe for deployment"
	case BandCaution:
		return "Proceed with caution"
	default:
		return "High risk - review required"
	}
}
