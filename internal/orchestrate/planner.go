// Package orchestrate plans and runs a build, test, deploy and verify
// sequence against a target environment.
package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/drewdunne/voiceops/internal/domain"
)

// Defaults applied when a plan omits its target or branch.
const (
	DefaultTarget = domain.EnvProduction
	DefaultBranch = "main"
)

// Builder triggers the builds and deployments a plan runs.
type Builder interface {
	TriggerBuild(ctx context.Context, branch, user string) (*domain.Build, error)
	DeployToStaging(ctx context.Context, branch, user string) (*domain.Build, error)
	DeployToProduction(ctx context.Context, branch, user string) (*domain.Build, error)
	Confirmation(b *domain.Build) string
}

// TestRunner runs a branch's automated tests. It returns a short summary, or
// an error when the tests fail or could not run.
type TestRunner interface {
	RunTests(ctx context.Context, branch string) (string, error)
}

// StubRunner reports success without running anything.
type StubRunner struct{}

// RunTests always passes.
func (StubRunner) RunTests(ctx context.Context, branch string) (string, error) {
	return "Tests passed", nil
}

// Step is one executed stage of a plan.
type Step struct {
	Name    string
	Message string
	Success bool
}

// Plan is the outcome of an orchestration run. Steps holds only the stages
// that executed.
type Plan struct {
	Target string
	Branch string
	Steps  []Step
}

// Success reports whether every executed step succeeded.
func (p *Plan) Success() bool {
	for _, s := range p.Steps {
		if !s.Success {
			return false
		}
	}
	return len(p.Steps) > 0
}

// Step returns the named step, if it ran.
func (p *Plan) Step(name string) (Step, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// Step names.
const (
	StepBuild  = "build"
	StepTest   = "test"
	StepDeploy = "deploy"
	StepVerify = "verify"
)

// Planner runs orchestration plans.
type Planner struct {
	builds Builder
	tests  TestRunner
	logger *slog.Logger
}

// NewPlanner creates a planner. A nil runner uses StubRunner.
func NewPlanner(builds Builder, tests TestRunner, logger *slog.Logger) *Planner {
	if tests == nil {
		tests = StubRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{builds: builds, tests: tests, logger: logger}
}

// Run builds branch, tests it, deploys it to target and verifies the
// deployment. A failed deploy, including an unknown target, skips
// verification. Build and test failures are recorded and the plan continues.
func (p *Planner) Run(ctx context.Context, target, branch, user string) *Plan {
	if target == "" {
		target = DefaultTarget
	}
	if branch == "" {
		branch = DefaultBranch
	}

	log := p.logger.With("target", target, "branch", branch, "user", user)
	plan := &Plan{Target: target, Branch: branch}

	b, err := p.builds.TriggerBuild(ctx, branch, user)
	if err != nil {
		log.Warn("orchestration build failed", "error", err)
		plan.add(StepBuild, fmt.Sprintf("Build failed: %v", err), false)
	} else {
		plan.add(StepBuild, p.builds.Confirmation(b), true)
	}

	summary, err := p.tests.RunTests(ctx, branch)
	if err != nil {
		log.Warn("orchestration tests failed", "error", err)
		plan.add(StepTest, fmt.Sprintf("Tests failed: %v", err), false)
	} else {
		plan.add(StepTest, summary, true)
	}

	msg, err := p.deploy(ctx, target, branch, user)
	plan.add(StepDeploy, msg, err == nil)
	if err != nil {
		log.Warn("orchestration stopped before verification", "error", err)
		return plan
	}

	plan.add(StepVerify, "Deployment successful", true)
	return plan
}

// deploy returns the deploy step message. Unknown targets yield exactly
// "Unknown target: <target>".
func (p *Planner) deploy(ctx context.Context, target, branch, user string) (string, error) {
	var (
		b   *domain.Build
		err error
	)
	switch strings.ToLower(target) {
	case domain.EnvProduction:
		b, err = p.builds.DeployToProduction(ctx, branch, user)
	case domain.EnvStaging:
		b, err = p.builds.DeployToStaging(ctx, branch, user)
	default:
		return "Unknown target: " + target, fmt.Errorf("%s: %w", target, domain.ErrUnknownTarget)
	}
	if err != nil {
		return fmt.Sprintf("Deployment failed: %v", err), err
	}
	return p.builds.Confirmation(b), nil
}

func (p *Plan) add(name, msg string, ok bool) {
	p.Steps = append(p.Steps, Step{Name: name, Message: msg, Success: ok})
}
