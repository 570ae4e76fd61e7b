package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/store"
	"github.com/go-chi/chi/v5"
)

// dashboardWindow is the period dashboards summarize.
const dashboardWindow = 7 * 24 * time.Hour

type stats struct {
	Successful int `json:"successful,omitempty"`
	Completed  int `json:"completed,omitempty"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

type adminDashboard struct {
	PendingApprovals []buildView `json:"pendingApprovals"`
	RecentBuilds     []buildView `json:"recentBuilds"`
	BuildStats       stats       `json:"buildStats"`
	VoiceStats       stats       `json:"voiceStats"`
	ActiveUsers      int         `json:"activeUsers"`
}

// handleAdminDashboard handles GET /api/dashboard/admin
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	since := time.Now().Add(-dashboardWindow)

	pending, err := s.deps.Builds.ListPendingApprovals(ctx)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	recent, err := s.deps.Builds.ListBuilds(ctx, store.BuildFilter{Since: since})
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	counts, err := s.deps.Records.CountBuildsByStatus(ctx, since)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	cmds, err := s.deps.Records.CommandStats(ctx, since)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	users, err := s.deps.Records.ListUsers(ctx)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}

	active := 0
	for _, u := range users {
		if u.Active {
			active++
		}
	}

	ok, failed := counts[domain.BuildSuccess], counts[domain.BuildFailed]
	writeJSON(w, http.StatusOK, adminDashboard{
		PendingApprovals: buildViews(pending),
		RecentBuilds:     buildViews(recent),
		BuildStats:       stats{Successful: ok, Failed: failed, Total: ok + failed},
		VoiceStats:       stats{Completed: cmds.Completed, Failed: cmds.Failed, Total: cmds.Completed + cmds.Failed},
		ActiveUsers:      active,
	})
}

type userDashboard struct {
	MyBuilds   []buildView   `json:"myBuilds"`
	MyCommands []commandView `json:"myCommands"`
	UserStats  stats         `json:"userStats"`
}

// handleUserDashboard handles GET /api/dashboard/user/{username}
func (s *Server) handleUserDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	if _, err := s.deps.Records.GetUser(ctx, username); err != nil {
		s.writeDomainError(w, r, err, "User not found")
		return
	}

	builds, err := s.deps.Builds.ListBuilds(ctx, store.BuildFilter{TriggeredBy: username})
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	records, err := s.deps.Records.ListCommands(ctx, store.CommandFilter{
		Username: username,
		Since:    time.Now().Add(-dashboardWindow),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}

	st := stats{Total: len(builds)}
	for _, b := range builds {
		switch b.Status {
		case domain.BuildSuccess:
			st.Successful++
		case domain.BuildFailed:
			st.Failed++
		}
	}

	writeJSON(w, http.StatusOK, userDashboard{
		MyBuilds:   buildViews(builds),
		MyCommands: commandViews(records),
		UserStats:  st,
	})
}

// handleListBuilds handles GET /api/dashboard/builds
func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := s.deps.Builds.ListBuilds(r.Context(), store.BuildFilter{})
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, buildViews(builds))
}

// handleGetBuild handles GET /api/dashboard/builds/{buildId}
func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Builds.GetBuildStatus(r.Context(), chi.URLParam(r, "buildId"))
	if err != nil {
		s.writeDomainError(w, r, err, "Build not found")
		return
	}
	writeJSON(w, http.StatusOK, newBuildView(*b))
}

type approveRequest struct {
	ApprovedBy string `json:"approvedBy"`
}

type approveResponse struct {
	Message string `json:"message"`
	BuildID string `json:"buildId"`
	Status  string `json:"status"`
}

// handleApproveBuild handles POST /api/dashboard/builds/{buildId}/approve
func (s *Server) handleApproveBuild(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[approveRequest](w, r, true)
	if !ok {
		return
	}
	if req.ApprovedBy == "" {
		req.ApprovedBy = "admin"
	}

	id := chi.URLParam(r, "buildId")
	b, err := s.deps.Builds.ApproveBuild(r.Context(), id, req.ApprovedBy)
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "Build is not pending approval")
		return
	case err != nil:
		s.writeDomainError(w, r, err, "Build not found")
		return
	}

	writeJSON(w, http.StatusOK, approveResponse{
		Message: "Build " + b.BuildID + " approved successfully",
		BuildID: b.BuildID,
		Status:  string(b.Status),
	})
}

// handleRecentCommands handles GET /api/dashboard/commands
func (s *Server) handleRecentCommands(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Records.ListCommands(r.Context(), store.CommandFilter{
		Since: time.Now().Add(-dashboardWindow),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, commandViews(records))
}

// handleAPIDeployments handles GET /api/dashboard/api-deployments
func (s *Server) handleAPIDeployments(w http.ResponseWriter, r *http.Request) {
	builds, err := s.deps.Builds.ListAPIDeployments(r.Context(), 0)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, buildViews(builds))
}

type progressView struct {
	BuildID     string     `json:"buildId"`
	APIName     string     `json:"apiName"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// handleDeploymentProgress handles GET /api/dashboard/api-deployments/{buildId}/progress
func (s *Server) handleDeploymentProgress(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Builds.GetBuildStatus(r.Context(), chi.URLParam(r, "buildId"))
	if err != nil {
		s.writeDomainError(w, r, err, "Build not found")
		return
	}
	writeJSON(w, http.StatusOK, progressView{
		BuildID:     b.BuildID,
		APIName:     b.APIName,
		Status:      string(b.Status),
		Progress:    b.Progress,
		StartedAt:   b.StartedAt,
		CompletedAt: b.CompletedAt,
	})
}
