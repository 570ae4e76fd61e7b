package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/intent"
)

// ReportWindow is the period GENERATE_REPORT covers.
const ReportWindow = 7 * 24 * time.Hour

var reportStatuses = []domain.BuildStatus{
	domain.BuildSuccess,
	domain.BuildFailed,
	domain.BuildAborted,
	domain.BuildRunning,
	domain.BuildQueued,
	domain.BuildPendingApproval,
}

func (d *Dispatcher) generateReport(ctx context.Context, in intent.Intent, caller Caller) (Result, error) {
	since := d.now().Add(-ReportWindow)

	counts, err := d.deps.Reports.CountBuildsByStatus(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("generating report: %w", err)
	}
	stats, err := d.deps.Reports.CommandStats(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("generating report: %w", err)
	}

	var total int
	var parts []string
	for _, s := range reportStatuses {
		if n := counts[s]; n > 0 {
			total += n
			parts = append(parts, fmt.Sprintf("%s %d", s, n))
		}
	}

	var sb strings.Builder
	sb.WriteString("Deployment report generated successfully.\n")
	sb.WriteString("Last 7 days:\n")
	if total == 0 {
		sb.WriteString("• Builds: 0\n")
	} else {
		fmt.Fprintf(&sb, "• Builds: %d (%s)\n", total, strings.Join(parts, ", "))
	}

	if finished := counts[domain.BuildSuccess] + counts[domain.BuildFailed]; finished > 0 {
		fmt.Fprintf(&sb, "• Success rate: %d%%\n", counts[domain.BuildSuccess]*100/finished)
	}
	fmt.Fprintf(&sb, "• Voice commands: %d (completed %d, failed %d, invalid %d)\n",
		stats.Total, stats.Completed, stats.Failed, stats.Invalid)

	return OK("%s", sb.String()), nil
}
