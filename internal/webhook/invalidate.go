// Package webhook verifies source-control webhooks and drops cached lookups
// for the branches they report.
package webhook

import (
	"log/slog"
	"strings"
)

// Invalidator forgets cached source-control lookups for a branch.
type Invalidator interface {
	Invalidate(branch string)
}

// InvalidateGitHub returns a GitHub handler that invalidates every branch the
// event touched.
func InvalidateGitHub(inv Invalidator, logger *slog.Logger) GitHubEventHandler {
	return func(event *GitHubEvent) error {
		invalidate(inv, logger, "github", event.EventType, event.Branches())
		return nil
	}
}

// InvalidateGitLab returns a GitLab handler that invalidates every branch the
// event touched.
func InvalidateGitLab(inv Invalidator, logger *slog.Logger) GitLabEventHandler {
	return func(event *GitLabEvent) error {
		invalidate(inv, logger, "gitlab", event.EventType, event.Branches())
		return nil
	}
}

func invalidate(inv Invalidator, logger *slog.Logger, source, eventType string, branches []string) {
	for _, b := range branches {
		inv.Invalidate(b)
	}
	logger.Debug("webhook received", "source", source, "event", eventType, "branches", branches)
}

func branchFromRef(ref string) string {
	if b, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
		return b
	}
	return ""
}

// compact drops empty and repeated branch names.
func compact(branches ...string) []string {
	var out []string
	for _, b := range branches {
		if b == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == b {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, b)
		}
	}
	return out
}
