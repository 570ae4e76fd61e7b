package safety

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/drewdunne/voiceops/internal/provider"
	"golang.org/x/sync/errgroup"
)

// DefaultWindow is how far back commits count as recent.
const DefaultWindow = 7 * 24 * time.Hour

// Analyzer gathers scoring inputs from source control.
type Analyzer struct {
	scm    provider.SourceControl
	window time.Duration
	now    func() time.Time
}

// NewAnalyzer creates an analyzer. A zero window uses DefaultWindow.
func NewAnalyzer(scm provider.SourceControl, window time.Duration) *Analyzer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Analyzer{scm: scm, window: window, now: time.Now}
}

// Analyze fetches open pull requests and recent commits for branch
// concurrently and scores them.
func (a *Analyzer) Analyze(ctx context.Context, branch string) (Assessment, error) {
	var (
		prs     []provider.PullRequest
		commits []provider.Commit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prs, err = a.scm.ListOpenPullRequests(gctx, branch)
		if err != nil {
			return fmt.Errorf("listing open pull requests for %s: %w", branch, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		commits, err = a.scm.ListRecentCommits(gctx, branch, a.now().Add(-a.window))
		if err != nil {
			return fmt.Errorf("listing recent commits for %s: %w", branch, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Assessment{}, err
	}

	return Assess(branch, prs, commits), nil
}

// Report renders an assessment as the readiness narrative shown to callers.
func Report(a Assessment) string {
	var b strings.Builder
	b.WriteString("Deployment Readiness Analysis:\n")

	b.WriteString("• Branch Protection: ")
	if a.BranchProtected {
		b.WriteString("Protected (requires PR approval)\n")
	} else {
		b.WriteString("Feature branch (review recommended)\n")
	}

	b.WriteString("• Pending Pull Requests: ")
	if a.OpenPRCount == 0 {
		b.WriteString("None (safe to deploy)\n")
	} else {
		fmt.Fprintf(&b, "%d open PRs (review recommended)\n", a.OpenPRCount)
	}

	b.WriteString("• Recent Activity: ")
	if a.RecentCommitCount == 0 {
		b.WriteString("No recent commits\n")
	} else {
		fmt.Fprintf(&b, "%d recent commits\n", a.RecentCommitCount)
	}

	fmt.Fprintf(&b, "• Safety Score: %d/100\n", a.Score)
	fmt.Fprintf(&b, "• Status: %s (%s)\n", a.StatusLine(), a.Band)
	return b.String()
}
