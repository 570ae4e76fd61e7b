package build

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/store"
)

type sample struct {
	id     string
	job    job
	branch string
	status domain.BuildStatus
	admin  bool // triggered by the admin account instead of the developer
}

var samples = []sample{
	{"PROD-1001", productionDeploy, "release-2.1.0", domain.BuildPendingApproval, true},
	{"PROD-1002", productionDeploy, "release-2.0.5", domain.BuildPendingApproval, true},
	{"BUILD-1001", featureBuild, "feature-branch", domain.BuildRunning, false},
	{"STAGE-1001", stagingDeploy, "feature-branch", domain.BuildRunning, false},
	{"BUILD-1000", featureBuild, "bugfix-123", domain.BuildSuccess, false},
	{"BUILD-999", featureBuild, "feature-auth", domain.BuildSuccess, false},
	{"BUILD-998", featureBuild, "feature-payment", domain.BuildFailed, false},
	{"STAGE-1000", stagingDeploy, "release-2.1.0", domain.BuildSuccess, true},
	{"STAGE-999", stagingDeploy, "release-2.0.5", domain.BuildSuccess, true},
}

// SeedSampleBuilds populates an empty build table with a demo history so
// approvals and status queries have something to act on. It does nothing if
// any build exists and returns the number of builds created.
func (s *Service) SeedSampleBuilds(ctx context.Context, admin, developer string) (int, error) {
	existing, err := s.store.ListBuilds(ctx, store.BuildFilter{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	now := s.now()
	var highest int64
	for _, sm := range samples {
		number, err := strconv.ParseInt(sm.id[strings.LastIndex(sm.id, "-")+1:], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("sample build %s: %w", sm.id, err)
		}
		highest = max(highest, number)

		user := developer
		if sm.admin {
			user = admin
		}

		b := &domain.Build{
			BuildID:          sm.id,
			JobName:          sm.job.name,
			Branch:           sm.branch,
			Number:           number,
			Status:           sm.status,
			Environment:      sm.job.env,
			RequiresApproval: sm.job.approval,
			TriggeredBy:      user,
			URL:              s.buildURL(sm.job.name, number),
			StartedAt:        now.Add(-30 * time.Minute),
		}
		if sm.status.Terminal() {
			completed := now.Add(-5 * time.Minute)
			b.CompletedAt = &completed
			b.DurationSeconds = 300
		}

		if err := s.store.CreateBuild(ctx, b); err != nil {
			return 0, err
		}
	}

	// New builds must not reuse a sample number.
	if err := s.store.AdvanceBuildNumber(ctx, highest); err != nil {
		return 0, err
	}

	s.logger.Info("seeded sample builds", "count", len(samples))
	return len(samples), nil
}
