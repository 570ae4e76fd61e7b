package server

import (
	"errors"
	"net/http"

	"github.com/drewdunne/voiceops/internal/dispatch"
	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/intent"
	"github.com/drewdunne/voiceops/internal/store"
)

// recentUserCommands caps GET /api/voice/commands.
const recentUserCommands = 20

type voiceRequest struct {
	Text     string `json:"text"`
	Username string `json:"username"`
}

// handleVoiceCommand handles POST /api/voice/command. Command failures are
// reported in the body with status 200.
func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[voiceRequest](w, r, false)
	if !ok {
		return
	}
	if req.Text == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "text and username are required")
		return
	}

	writeJSON(w, http.StatusOK, s.deps.Processor.Process(r.Context(), req.Text, req.Username))
}

// handleUserCommands handles GET /api/voice/commands?username=
func (s *Server) handleUserCommands(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	records, err := s.deps.Records.ListCommands(r.Context(), store.CommandFilter{
		Username: username,
		Limit:    recentUserCommands,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, commandViews(records))
}

type agentRequest struct {
	Target   string `json:"target"`
	Branch   string `json:"branch"`
	Username string `json:"username"`
}

// handleOrchestrate handles POST /api/deployment-agent/orchestrate
func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	s.runAgent(w, r, intent.ActionDeploymentOrchestration)
}

// handleAnalyze handles POST /api/deployment-agent/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.runAgent(w, r, intent.ActionDeploymentAnalysis)
}

// runAgent dispatches action for the requesting user without going through
// recognition. The caller's role still selects the handler table.
func (s *Server) runAgent(w http.ResponseWriter, r *http.Request, action intent.Action) {
	req, ok := readJSON[agentRequest](w, r, true)
	if !ok {
		return
	}
	if req.Username == "" {
		req.Username = "admin"
	}

	u, err := s.deps.Records.GetUser(r.Context(), req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found: "+req.Username)
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	role, err := intent.ParseRole(u.Role)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}

	params := map[string]string{}
	if req.Target != "" {
		params[intent.ParamTarget] = req.Target
	}
	if req.Branch != "" {
		params[intent.ParamBranch] = req.Branch
	}

	res := s.deps.Dispatcher.Dispatch(r.Context(), intent.Intent{Action: action, Params: params},
		dispatch.Caller{Username: u.Username, Role: role})
	writeJSON(w, http.StatusOK, res)
}
