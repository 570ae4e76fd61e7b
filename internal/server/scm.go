package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleUserPulls handles GET /api/scm/pulls?username=
func (s *Server) handleUserPulls(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	prs, err := s.deps.SCM.ListUserPullRequests(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, pullViews(prs))
}

type mergeRequest struct {
	MergedBy string `json:"mergedBy"`
}

// handleMergePull handles POST /api/scm/pulls/{prId}/merge
func (s *Server) handleMergePull(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[mergeRequest](w, r, true)
	if !ok {
		return
	}
	if req.MergedBy == "" {
		req.MergedBy = "admin"
	}

	id := chi.URLParam(r, "prId")
	pr, err := s.deps.SCM.MergePullRequest(r.Context(), id, req.MergedBy)
	if err != nil {
		s.writeDomainError(w, r, err, "Pull request not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, newPullView(*pr))
}

type branchView struct {
	Branch       string     `json:"branch"`
	PullRequests []pullView `json:"pullRequests"`
}

// handleBranchStatus handles GET /api/scm/branches/{branch}
func (s *Server) handleBranchStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.SCM.GetBranchStatus(r.Context(), chi.URLParam(r, "branch"))
	if err != nil {
		s.writeDomainError(w, r, err, "Branch not found")
		return
	}
	writeJSON(w, http.StatusOK, branchView{Branch: st.Branch, PullRequests: pullViews(st.PullRequests)})
}
