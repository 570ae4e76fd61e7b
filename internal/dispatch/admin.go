package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/intent"
	"github.com/drewdunne/voiceops/internal/orchestrate"
	"github.com/drewdunne/voiceops/internal/safety"
)

func (d *Dispatcher) approveBuild(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	id := in.Param(intent.ParamBuildID)
	if id == "" {
		return Fail("Build ID not specified"), nil
	}

	b, err := d.deps.Builds.ApproveBuild(ctx, id, caller.Username)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Fail("Build not found: %s", id), nil
	case errors.Is(err, domain.ErrAmbiguous):
		return ambiguous(id), nil
	case errors.Is(err, domain.ErrInvalidState):
		return Fail("Build is not pending approval"), nil
	case err != nil:
		return Result{}, fmt.Errorf("approving build: %w", err)
	}
	return OK("Build %s approved successfully. Build is now running.", b.BuildID), nil
}

func (d *Dispatcher) deployProduction(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	branch := in.Param(intent.ParamBranch)
	if branch == "" {
		return Fail("Branch not specified"), nil
	}

	b, err := d.deps.Builds.DeployToProduction(ctx, branch, caller.Username)
	if err != nil {
		return Result{}, fmt.Errorf("deploying to production: %w", err)
	}
	return OK("%s", d.deps.Builds.Confirmation(b)), nil
}

func (d *Dispatcher) deployAPI(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	name := in.Param(intent.ParamAPIName)
	if name == "" {
		return Fail("API name not specified"), nil
	}

	b, err := d.deps.Builds.DeployAPI(ctx, name, in.Param(intent.ParamBranch), caller.Username)
	if err != nil {
		return Result{}, fmt.Errorf("deploying api %s: %w", name, err)
	}
	return OK("%s", d.deps.Builds.Confirmation(b)), nil
}

func (d *Dispatcher) deployRewardsDetails(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	b, err := d.deps.Builds.DeployRewardsDetails(ctx, caller.Username)
	if err != nil {
		return Result{}, fmt.Errorf("deploying Rewards Details API: %w", err)
	}
	return OK("%s", d.deps.Builds.Confirmation(b)), nil
}

func (d *Dispatcher) abortBuild(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	id := in.Param(intent.ParamBuildID)
	if id == "" {
		return Fail("Build ID not specified"), nil
	}

	b, err := d.deps.Builds.AbortBuild(ctx, id, caller.Username)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Fail("Build not found: %s", id), nil
	case errors.Is(err, domain.ErrAmbiguous):
		return ambiguous(id), nil
	case errors.Is(err, domain.ErrInvalidState):
		return Fail("Build is not running or queued"), nil
	case err != nil:
		return Result{}, fmt.Errorf("aborting build: %w", err)
	}

	if reason := in.Param(intent.ParamReason); reason != "" {
		return OK("Build %s aborted successfully. Reason: %s", b.BuildID, reason), nil
	}
	return OK("Build %s aborted successfully.", b.BuildID), nil
}

func (d *Dispatcher) showApprovals(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	pending, err := d.deps.Builds.ListPendingApprovals(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("getting pending approvals: %w", err)
	}
	if len(pending) == 0 {
		return OK("No pending approvals found."), nil
	}

	var sb strings.Builder
	sb.WriteString("Pending approvals:\n")
	for _, b := range pending {
		fmt.Fprintf(&sb, "• Build %s - %s (triggered by %s)\n", b.BuildID, b.Branch, b.TriggeredBy)
	}
	return OK("%s", sb.String()), nil
}

func (d *Dispatcher) orchestrateDeployment(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	target := in.ParamOr(intent.ParamTarget, orchestrate.DefaultTarget)
	branch := in.ParamOr(intent.ParamBranch, orchestrate.DefaultBranch)

	analysis := "Deployment Readiness Analysis:\n• Error: Unable to complete analysis\n"
	if a, err := d.deps.Analyzer.Analyze(ctx, branch); err != nil {
		d.logger.Warn("readiness analysis failed", "branch", branch, "error", err)
	} else {
		analysis = safety.Report(a)
	}

	plan := d.deps.Planner.Run(ctx, target, branch, caller.Username)
	return Result{Message: orchestrate.Narrative(plan, analysis), Success: plan.Success()}, nil
}

func (d *Dispatcher) analyze(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	target := in.ParamOr(intent.ParamTarget, "Not specified")
	branch := in.ParamOr(intent.ParamBranch, orchestrate.DefaultBranch)

	a, err := d.deps.Analyzer.Analyze(ctx, branch)
	if err != nil {
		return Result{}, fmt.Errorf("analyzing deployment: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Deployment Analysis Results:\n")
	fmt.Fprintf(&sb, "• Target: %s\n", target)
	fmt.Fprintf(&sb, "• Branch: %s\n", branch)
	fmt.Fprintf(&sb, "• Open Pull Requests: %d\n", a.OpenPRCount)
	fmt.Fprintf(&sb, "• Recent Commits: %d\n", a.RecentCommitCount)
	fmt.Fprintf(&sb, "• Safety Score: %d/100\n", a.Score)
	sb.WriteString("• Recommendations:\n")
	for _, r := range a.Recommendations() {
		fmt.Fprintf(&sb, "  - %s\n", r)
	}
	fmt.Fprintf(&sb, "• Status: %s (%s)", a.StatusLine(), a.Band)
	return OK("%s", sb.String()), nil
}
