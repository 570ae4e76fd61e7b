package server

import (
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/provider"
)

type buildView struct {
	ID                 int64      `json:"id"`
	BuildID            string     `json:"buildId"`
	JobName            string     `json:"jobName"`
	Branch             string     `json:"branchName"`
	BuildNumber        int64      `json:"buildNumber"`
	Status             string     `json:"status"`
	BuildURL           string     `json:"buildUrl"`
	StartedAt          time.Time  `json:"startedAt"`
	CompletedAt        *time.Time `json:"completedAt"`
	DurationSeconds    int64      `json:"durationSeconds"`
	Environment        string     `json:"environment"`
	RequiresApproval   bool       `json:"requiresApproval"`
	TriggeredBy        string     `json:"triggeredBy"`
	ApprovedBy         string     `json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	APIName            string     `json:"apiName,omitempty"`
	DeploymentProgress int        `json:"deploymentProgress"`
}

func newBuildView(b domain.Build) buildView {
	return buildView{
		ID:                 b.ID,
		BuildID:            b.BuildID,
		JobName:            b.JobName,
		Branch:             b.Branch,
		BuildNumber:        b.Number,
		Status:             string(b.Status),
		BuildURL:           b.URL,
		StartedAt:          b.StartedAt,
		CompletedAt:        b.CompletedAt,
		DurationSeconds:    b.DurationSeconds,
		Environment:        b.Environment,
		RequiresApproval:   b.RequiresApproval,
		TriggeredBy:        b.TriggeredBy,
		ApprovedBy:         b.ApprovedBy,
		ApprovedAt:         b.ApprovedAt,
		APIName:            b.APIName,
		DeploymentProgress: b.Progress,
	}
}

func buildViews(builds []domain.Build) []buildView {
	out := make([]buildView, 0, len(builds))
	for _, b := range builds {
		out = append(out, newBuildView(b))
	}
	return out
}

type commandView struct {
	ID          string            `json:"id"`
	User        string            `json:"user"`
	Text        string            `json:"originalText"`
	CommandType string            `json:"commandType"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Status      string            `json:"status"`
	Response    string            `json:"response"`
	Success     bool              `json:"success"`
	LatencyMS   int64             `json:"executionTimeMs"`
	Confidence  float64           `json:"confidenceScore"`
	CreatedAt   time.Time         `json:"createdAt"`
	ProcessedAt *time.Time        `json:"processedAt"`
}

func commandViews(records []domain.CommandRecord) []commandView {
	out := make([]commandView, 0, len(records))
	for _, r := range records {
		out = append(out, commandView{
			ID:          r.ID,
			User:        r.Username,
			Text:        r.Text,
			CommandType: r.Action,
			Parameters:  r.Parameters,
			Status:      string(r.Status),
			Response:    r.Response,
			Success:     r.Success,
			LatencyMS:   r.Latency.Milliseconds(),
			Confidence:  r.Confidence,
			CreatedAt:   r.CreatedAt,
			ProcessedAt: r.ProcessedAt,
		})
	}
	return out
}

type pullView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	SourceBranch string     `json:"sourceBranch"`
	TargetBranch string     `json:"targetBranch"`
	State        string     `json:"state"`
	Author       string     `json:"author"`
	URL          string     `json:"url"`
	CreatedAt    time.Time  `json:"createdAt"`
	MergedAt     *time.Time `json:"mergedAt,omitempty"`
	MergedBy     string     `json:"mergedBy,omitempty"`
}

func newPullView(pr provider.PullRequest) pullView {
	return pullView{
		ID:           pr.ID,
		Title:        pr.Title,
		Description:  pr.Description,
		SourceBranch: pr.SourceBranch,
		TargetBranch: pr.TargetBranch,
		State:        pr.State,
		Author:       pr.Author,
		URL:          pr.URL,
		CreatedAt:    pr.CreatedAt,
		MergedAt:     pr.MergedAt,
		MergedBy:     pr.MergedBy,
	}
}

func pullViews(prs []provider.PullRequest) []pullView {
	out := make([]pullView, 0, len(prs))
	for _, pr := range prs {
		out = append(out, newPullView(pr))
	}
	return out
}
