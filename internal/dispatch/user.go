package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/intent"
	"github.com/drewdunne/voiceops/internal/provider"
)

// recentBuilds caps the SHOW_BUILDS listing.
const recentBuilds = 5

func (d *Dispatcher) buildBranch(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	branch := in.Param(intent.ParamBranch)
	if branch == "" {
		return Fail("Branch not specified"), nil
	}

	b, err := d.deps.Builds.TriggerBuild(ctx, branch, caller.Username)
	if err != nil {
		return Result{}, fmt.Errorf("building branch: %w", err)
	}
	return OK("%s", d.deps.Builds.Confirmation(b)), nil
}

func (d *Dispatcher) deployStaging(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	branch := in.Param(intent.ParamBranch)
	if branch == "" {
		return Fail("Branch not specified"), nil
	}

	b, err := d.deps.Builds.DeployToStaging(ctx, branch, caller.Username)
	if err != nil {
		return Result{}, fmt.Errorf("deploying to staging: %w", err)
	}
	return OK("%s", d.deps.Builds.Confirmation(b)), nil
}

func (d *Dispatcher) createPR(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	branch := in.Param(intent.ParamBranch)
	if branch == "" {
		return Fail("Branch not specified"), nil
	}

	pr, err := d.deps.SCM.CreatePullRequest(ctx, provider.NewPullRequest{
		Title:        fmt.Sprintf("Feature: %s branch", branch),
		Description:  "Pull request created via voice command for branch: " + branch,
		SourceBranch: branch,
		TargetBranch: d.deps.PRTarget,
		Author:       caller.Username,
	})
	if err != nil {
		return Result{}, fmt.Errorf("creating pull request: %w", err)
	}
	return OK("Pull request created successfully! PR ID: %s - Branch: %s → %s", pr.ID, pr.SourceBranch, pr.TargetBranch), nil
}

func (d *Dispatcher) showBuilds(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	builds, err := d.deps.Builds.ListUserBuilds(ctx, caller.Username, recentBuilds)
	if err != nil {
		return Result{}, fmt.Errorf("getting builds: %w", err)
	}
	if len(builds) == 0 {
		return OK("No builds found for your account."), nil
	}

	var sb strings.Builder
	sb.WriteString("Your recent builds:\n")
	for _, b := range builds {
		fmt.Fprintf(&sb, "• %s - %s (%s)\n", b.BuildID, b.Branch, b.Status)
	}
	return OK("%s", sb.String()), nil
}

// checkStatus reports on the named build, or on the caller's most recent
// build when the command holds no id at all.
func (d *Dispatcher) checkStatus(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	id := in.Param(intent.ParamBuildID)

	var (
		b   *domain.Build
		err error
	)
	if id == "" {
		// A spoken number that was not captured as an id must not fall
		// through to some other build.
		if strings.ContainsAny(in.Text, "0123456789") {
			return Fail("Build ID not specified"), nil
		}
		recent, lerr := d.deps.Builds.ListUserBuilds(ctx, caller.Username, 1)
		if lerr != nil {
			return Result{}, fmt.Errorf("getting build status: %w", lerr)
		}
		if len(recent) == 0 {
			return Fail("Build ID not specified"), nil
		}
		b = &recent[0]
	} else {
		b, err = d.deps.Builds.GetBuildStatus(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return Fail("Build not found: %s", id), nil
		case errors.Is(err, domain.ErrAmbiguous):
			return ambiguous(id), nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("getting build status: %w", err)
		}
	}

	if b.APIName != "" {
		return OK("Build %s status: %s (Branch: %s, Environment: %s, Progress: %d%%)",
			b.BuildID, b.Status, b.Branch, b.Environment, b.Progress), nil
	}
	return OK("Build %s status: %s (Branch: %s, Environment: %s)", b.BuildID, b.Status, b.Branch, b.Environment), nil
}
