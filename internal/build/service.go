// Package build simulates the CI system voice commands drive: builds,
// staged and production deployments, approvals and API rollouts with
// progress tracking.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/metrics"
	"github.com/drewdunne/voiceops/internal/store"
)

// DefaultCIBaseURL prefixes build URLs when none is configured.
const DefaultCIBaseURL = "http://mock-jenkins.company.com"

// The rewards service rollout is a preset API deployment.
const (
	RewardsAPIName = "Rewards Details API"
	RewardsBranch  = "rewards-api-v1"
)

// Store is the build persistence the service needs.
type Store interface {
	ProgressStore
	NextBuildNumber(ctx context.Context) (int64, error)
	AdvanceBuildNumber(ctx context.Context, floor int64) error
	CreateBuild(ctx context.Context, b *domain.Build) error
	GetBuild(ctx context.Context, buildID string) (*domain.Build, error)
	ListBuilds(ctx context.Context, f store.BuildFilter) ([]domain.Build, error)
}

var _ Store = (*store.Store)(nil)

type job struct {
	prefix   string
	name     string
	env      string
	status   domain.BuildStatus
	approval bool
}

var (
	featureBuild     = job{"BUILD", "feature-build", domain.EnvDevelopment, domain.BuildRunning, false}
	stagingDeploy    = job{"STAGE", "staging-deploy", domain.EnvStaging, domain.BuildRunning, false}
	productionDeploy = job{"PROD", "production-deploy", domain.EnvProduction, domain.BuildPendingApproval, true}
	apiDeploy        = job{"API", "api-deploy", domain.EnvProduction, domain.BuildRunning, false}
)

// Service is the simulated CI system.
type Service struct {
	store      Store
	supervisor *Supervisor
	ciBaseURL  string
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCIBaseURL sets the prefix of generated build URLs.
func WithCIBaseURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.ciBaseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a build service. API deployments run under sup.
func NewService(st Store, sup *Supervisor, opts ...Option) *Service {
	s := &Service{
		store:      st,
		supervisor: sup,
		ciBaseURL:  DefaultCIBaseURL,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TriggerBuild starts a development build of branch.
func (s *Service) TriggerBuild(ctx context.Context, branch, user string) (*domain.Build, error) {
	return s.create(ctx, featureBuild, branch, user, "")
}

// DeployToStaging starts a staging deployment of branch.
func (s *Service) DeployToStaging(ctx context.Context, branch, user string) (*domain.Build, error) {
	return s.create(ctx, stagingDeploy, branch, user, "")
}

// DeployToProduction queues a production deployment of branch. It stays
// PENDING_APPROVAL until an admin approves it.
func (s *Service) DeployToProduction(ctx context.Context, branch, user string) (*domain.Build, error) {
	return s.create(ctx, productionDeploy, branch, user, "")
}

// DeployAPI starts a production rollout of the named API and begins tracking
// its progress. An empty branch deploys a branch named after the API.
func (s *Service) DeployAPI(ctx context.Context, apiName, branch, user string) (*domain.Build, error) {
	if apiName == "" {
		return nil, fmt.Errorf("api name: %w", domain.ErrParameterMissing)
	}
	if branch == "" {
		branch = apiName
	}

	b, err := s.create(ctx, apiDeploy, branch, user, apiName)
	if err != nil {
		return nil, err
	}
	s.supervisor.Start(*b)
	return b, nil
}

// DeployRewardsDetails rolls out the rewards details API.
func (s *Service) DeployRewardsDetails(ctx context.Context, user string) (*domain.Build, error) {
	return s.DeployAPI(ctx, RewardsAPIName, RewardsBranch, user)
}

// ApproveBuild moves a PENDING_APPROVAL build to RUNNING.
func (s *Service) ApproveBuild(ctx context.Context, buildID, approver string) (*domain.Build, error) {
	b, err := s.store.GetBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BuildPendingApproval {
		return nil, fmt.Errorf("build %s is %s: %w", b.BuildID, b.Status, domain.ErrInvalidState)
	}

	now := s.now()
	b.Status = domain.BuildRunning
	b.ApprovedBy = approver
	b.ApprovedAt = &now
	if err := s.store.UpdateBuild(ctx, b, domain.BuildPendingApproval); err != nil {
		return nil, err
	}

	s.logger.Info("build approved", "build_id", b.BuildID, "approver", approver)
	return b, nil
}

// AbortBuild stops a RUNNING or QUEUED build. Any progress tracking for it is
// cancelled.
func (s *Service) AbortBuild(ctx context.Context, buildID, user string) (*domain.Build, error) {
	b, err := s.store.GetBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Active() {
		return nil, fmt.Errorf("build %s is %s: %w", b.BuildID, b.Status, domain.ErrInvalidState)
	}

	expected := b.Status
	now := s.now()
	b.Status = domain.BuildAborted
	b.CompletedAt = &now
	b.DurationSeconds = int64(now.Sub(b.StartedAt).Round(time.Second) / time.Second)
	if err := s.store.UpdateBuild(ctx, b, expected); err != nil {
		return nil, err
	}

	if s.supervisor.Cancel(b.BuildID) {
		metrics.DeploymentCancelled()
	}

	s.logger.Info("build aborted", "build_id", b.BuildID, "user", user)
	return b, nil
}

// GetBuildStatus returns the build with the given id.
func (s *Service) GetBuildStatus(ctx context.Context, buildID string) (*domain.Build, error) {
	return s.store.GetBuild(ctx, buildID)
}

// ListUserBuilds returns the user's most recent builds.
func (s *Service) ListUserBuilds(ctx context.Context, user string, limit int) ([]domain.Build, error) {
	return s.store.ListBuilds(ctx, store.BuildFilter{TriggeredBy: user, Limit: limit})
}

// ListPendingApprovals returns builds awaiting approval.
func (s *Service) ListPendingApprovals(ctx context.Context) ([]domain.Build, error) {
	return s.store.ListBuilds(ctx, store.BuildFilter{Status: domain.BuildPendingApproval})
}

// ListAPIDeployments returns the most recent API rollouts.
func (s *Service) ListAPIDeployments(ctx context.Context, limit int) ([]domain.Build, error) {
	return s.store.ListBuilds(ctx, store.BuildFilter{APIOnly: true, Limit: limit})
}

// ListBuilds returns builds matching f.
func (s *Service) ListBuilds(ctx context.Context, f store.BuildFilter) ([]domain.Build, error) {
	return s.store.ListBuilds(ctx, f)
}

func (s *Service) create(ctx context.Context, j job, branch, user, apiName string) (*domain.Build, error) {
	if branch == "" {
		return nil, fmt.Errorf("branch: %w", domain.ErrParameterMissing)
	}

	number, err := s.store.NextBuildNumber(ctx)
	if err != nil {
		return nil, err
	}

	b := &domain.Build{
		BuildID:          fmt.Sprintf("%s-%d", j.prefix, number),
		JobName:          j.name,
		Branch:           branch,
		Number:           number,
		Status:           j.status,
		Environment:      j.env,
		RequiresApproval: j.approval,
		TriggeredBy:      user,
		APIName:          apiName,
		URL:              s.buildURL(j.name, number),
		StartedAt:        s.now(),
	}
	if err := s.store.CreateBuild(ctx, b); err != nil {
		return nil, err
	}

	metrics.BuildTriggered()
	s.logger.Info("build created",
		"build_id", b.BuildID,
		"job", b.JobName,
		"branch", branch,
		"user", user,
	)
	return b, nil
}

func (s *Service) buildURL(jobName string, number int64) string {
	return fmt.Sprintf("%s/job/%s/%d", s.ciBaseURL, jobName, number)
}
