// Package dispatch routes recognized intents to the handler registered for
// the caller's role and turns every outcome into a Result.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/intent"
	"github.com/drewdunne/voiceops/internal/orchestrate"
	"github.com/drewdunne/voiceops/internal/provider"
	"github.com/drewdunne/voiceops/internal/safety"
	"github.com/drewdunne/voiceops/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result is the outcome of a command.
type Result struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// OK returns a successful result.
func OK(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...), Success: true}
}

// Fail returns a failed result.
func Fail(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...), Success: false}
}

// ambiguous reports a build number that names more than one build.
func ambiguous(id string) Result {
	return Fail("Build %s matches more than one build. Please say the full build ID.", id)
}

// Caller identifies who issued a command.
type Caller struct {
	Username string
	Role     intent.Role
}

// Handler executes one action. A returned error is converted into a failed
// Result by the dispatcher.
type Handler func(ctx context.Context, in intent.Intent, caller Caller) (Result, error)

// Builds is the CI system the handlers drive.
type Builds interface {
	orchestrate.Builder
	DeployAPI(ctx context.Context, apiName, branch, user string) (*domain.Build, error)
	DeployRewardsDetails(ctx context.Context, user string) (*domain.Build, error)
	ApproveBuild(ctx context.Context, buildID, approver string) (*domain.Build, error)
	AbortBuild(ctx context.Context, buildID, user string) (*domain.Build, error)
	GetBuildStatus(ctx context.Context, buildID string) (*domain.Build, error)
	ListUserBuilds(ctx context.Context, user string, limit int) ([]domain.Build, error)
	ListPendingApprovals(ctx context.Context) ([]domain.Build, error)
}

// Analyzer scores deployment readiness.
type Analyzer interface {
	Analyze(ctx context.Context, branch string) (safety.Assessment, error)
}

// Orchestrator runs orchestration plans.
type Orchestrator interface {
	Run(ctx context.Context, target, branch, user string) *orchestrate.Plan
}

// ReportSource supplies the figures for deployment reports.
type ReportSource interface {
	CountBuildsByStatus(ctx context.Context, since time.Time) (map[domain.BuildStatus]int, error)
	CommandStats(ctx context.Context, since time.Time) (store.CommandStats, error)
}

var _ ReportSource = (*store.Store)(nil)

// Deps are the collaborators handlers call.
type Deps struct {
	Builds   Builds
	SCM      provider.SourceControl
	Analyzer Analyzer
	Planner  Orchestrator
	Reports  ReportSource

	// PRTarget is the branch pull requests are opened against.
	PRTarget string
}

// Dispatcher holds one handler table per role.
type Dispatcher struct {
	deps   Deps
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	tables map[intent.Role]map[intent.Action]Handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithClock overrides the time source used by reports.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a dispatcher.
func New(deps Deps, opts ...Option) *Dispatcher {
	if deps.PRTarget == "" {
		deps.PRTarget = "develop"
	}

	d := &Dispatcher{
		deps:   deps,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/drewdunne/voiceops/internal/dispatch"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.tables = map[intent.Role]map[intent.Action]Handler{
		intent.RoleAdmin: {
			intent.ActionApproveBuild:            d.approveBuild,
			intent.ActionDeployProduction:        d.deployProduction,
			intent.ActionDeployAPI:               d.deployAPI,
			intent.ActionDeployRewardsDetails:    d.deployRewardsDetails,
			intent.ActionAbortBuild:              d.abortBuild,
			intent.ActionShowApprovals:           d.showApprovals,
			intent.ActionGenerateReport:          d.generateReport,
			intent.ActionDeploymentOrchestration: d.orchestrateDeployment,
			intent.ActionDeploymentAnalysis:      d.analyze,
		},
		intent.RoleUser: {
			intent.ActionBuildBranch:   d.buildBranch,
			intent.ActionCreatePR:      d.createPR,
			intent.ActionDeployStaging: d.deployStaging,
			intent.ActionShowBuilds:    d.showBuilds,
			intent.ActionCheckStatus:   d.checkStatus,
		},
	}
	return d
}

// Handles reports whether role has a handler for action.
func (d *Dispatcher) Handles(role intent.Role, action intent.Action) bool {
	_, ok := d.tables[role][action]
	return ok
}

// Dispatch runs the handler for the intent's action under the caller's role.
// It never returns an error and recovers handler panics.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, caller Caller) (res Result) {
	ctx, span := d.tracer.Start(ctx, "dispatch "+string(in.Action), trace.WithAttributes(
		attribute.String("voiceops.action", string(in.Action)),
		attribute.String("voiceops.role", string(caller.Role)),
		attribute.String("voiceops.user", caller.Username),
	))
	defer func() {
		span.SetAttributes(attribute.Bool("voiceops.success", res.Success))
		if !res.Success {
			span.SetStatus(codes.Error, res.Message)
		}
		span.End()
	}()

	log := d.logger.With("action", in.Action, "role", caller.Role, "user", caller.Username)

	table, ok := d.tables[caller.Role]
	if !ok {
		return Fail("Unknown role: %s", caller.Role)
	}
	h, ok := table[in.Action]
	if !ok {
		return Fail("Unknown %s command: %s", strings.ToLower(string(caller.Role)), in.Action)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", "panic", r)
			res = Fail("Error handling %s: %v", in.Action, r)
		}
	}()

	res, err := h(ctx, in, caller)
	if err != nil {
		span.RecordError(err)
		log.Error("handler failed", "error", err)
		return Fail("Error %v", err)
	}
	log.Debug("handler finished", "success", res.Success)
	return res
}
