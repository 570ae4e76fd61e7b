package build

import (
	"fmt"
	"math"

	"github.com/drewdunne/voiceops/internal/domain"
)

// Confirmation returns the message announcing a newly created build.
func (s *Service) Confirmation(b *domain.Build) string {
	switch b.JobName {
	case stagingDeploy.name:
		return fmt.Sprintf("Staging deployment triggered for branch %s. Build ID: %s", b.Branch, b.BuildID)
	case productionDeploy.name:
		return fmt.Sprintf("Production deployment triggered for branch %s. Build ID: %s. Awaiting approval.", b.Branch, b.BuildID)
	case apiDeploy.name:
		return fmt.Sprintf("%s deployment started successfully. Build ID: %s. Progress tracking enabled. Deployment will complete in %s.",
			b.APIName, b.BuildID, s.eta(b.Progress))
	default:
		return fmt.Sprintf("Build triggered for branch %s. Build ID: %s", b.Branch, b.BuildID)
	}
}

// eta estimates how long the supervisor needs to take progress to 100.
func (s *Service) eta(progress int) string {
	cfg := s.supervisor.cfg
	ticks := math.Ceil(float64(100-progress) / float64(cfg.Step))
	secs := int(math.Round(ticks * cfg.Interval.Seconds()))
	switch {
	case secs < 1:
		return "under a second"
	case secs == 1:
		return "1 second"
	default:
		return fmt.Sprintf("%d seconds", secs)
	}
}
