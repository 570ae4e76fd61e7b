// Package server exposes the command pipeline and its dashboards over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/drewdunne/voiceops/internal/config"
	"github.com/drewdunne/voiceops/internal/dispatch"
	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/intent"
	"github.com/drewdunne/voiceops/internal/metrics"
	"github.com/drewdunne/voiceops/internal/provider"
	"github.com/drewdunne/voiceops/internal/store"
	"github.com/drewdunne/voiceops/internal/webhook"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status string         `json:"status"`
	Checks map[string]any `json:"checks"`
}

// CommandProcessor runs voice commands.
type CommandProcessor interface {
	Process(ctx context.Context, text, username string) dispatch.Result
}

// Builds is the build system as seen by the dashboards.
type Builds interface {
	GetBuildStatus(ctx context.Context, buildID string) (*domain.Build, error)
	ListBuilds(ctx context.Context, f store.BuildFilter) ([]domain.Build, error)
	ListPendingApprovals(ctx context.Context) ([]domain.Build, error)
	ListAPIDeployments(ctx context.Context, limit int) ([]domain.Build, error)
	ApproveBuild(ctx context.Context, buildID, approver string) (*domain.Build, error)
}

// Records is the persisted state behind the dashboards.
type Records interface {
	Ping(ctx context.Context) error
	GetUser(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListCommands(ctx context.Context, f store.CommandFilter) ([]domain.CommandRecord, error)
	CountBuildsByStatus(ctx context.Context, since time.Time) (map[domain.BuildStatus]int, error)
	CommandStats(ctx context.Context, since time.Time) (store.CommandStats, error)
}

var _ Records = (*store.Store)(nil)

// Dispatcher runs an intent directly, bypassing recognition.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent, caller dispatch.Caller) dispatch.Result
}

// Pinger reports whether a collaborator is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP handlers call.
type Deps struct {
	Processor   CommandProcessor
	Dispatcher  Dispatcher
	Builds      Builds
	Records     Records
	SCM         provider.SourceControl
	Invalidator webhook.Invalidator

	// Docker is checked by /health when set.
	Docker Pinger

	// ActiveDeployments reports running progress simulations.
	ActiveDeployments func() int
}

// Server is the HTTP server for voiceops.
type Server struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	router chi.Router
	ready  chan struct{} // closed when server is ready to accept connections

	mu       sync.RWMutex // protects the fields below
	httpSrv  *http.Server
	listener net.Listener
	hooks    []func()
}

// New creates a new Server with the given config and collaborators.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		router: chi.NewRouter(),
		ready:  make(chan struct{}),
	}
	s.routes()
	return s
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// routes sets up the HTTP routes.
func (s *Server) routes() {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/voice", func(r chi.Router) {
		r.Post("/command", s.handleVoiceCommand)
		r.Get("/commands", s.handleUserCommands)
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/admin", s.handleAdminDashboard)
		r.Get("/user/{username}", s.handleUserDashboard)
		r.Get("/builds", s.handleListBuilds)
		r.Get("/builds/{buildId}", s.handleGetBuild)
		r.Post("/builds/{buildId}/approve", s.handleApproveBuild)
		r.Get("/commands", s.handleRecentCommands)
		r.Get("/api-deployments", s.handleAPIDeployments)
		r.Get("/api-deployments/{buildId}/progress", s.handleDeploymentProgress)
	})

	r.Route("/api/deployment-agent", func(r chi.Router) {
		r.Post("/orchestrate", s.handleOrchestrate)
		r.Post("/analyze", s.handleAnalyze)
	})

	r.Route("/api/scm", func(r chi.Router) {
		r.Get("/pulls", s.handleUserPulls)
		r.Post("/pulls/{prId}/merge", s.handleMergePull)
		r.Get("/branches/{branch}", s.handleBranchStatus)
	})

	if s.deps.Invalidator != nil {
		if secret := s.cfg.Webhooks.GitHubSecret; secret != "" {
			r.Method(http.MethodPost, "/webhook/github",
				webhook.NewGitHubHandler(secret, webhook.InvalidateGitHub(s.deps.Invalidator, s.logger)))
		}
		if secret := s.cfg.Webhooks.GitLabSecret; secret != "" {
			r.Method(http.MethodPost, "/webhook/gitlab",
				webhook.NewGitLabHandler(secret, webhook.InvalidateGitLab(s.deps.Invalidator, s.logger)))
		}
	}
}

// handleHealth responds with server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := map[string]any{}

	if s.deps.Records != nil {
		dbOK := s.deps.Records.Ping(ctx) == nil
		checks["database"] = dbOK
		if !dbOK {
			status = "degraded"
		}
	}
	if s.deps.Docker != nil {
		dockerOK := s.deps.Docker.Ping(ctx) == nil
		checks["docker"] = dockerOK
		if !dockerOK {
			status = "degraded"
		}
	}

	active := 0
	if s.deps.ActiveDeployments != nil {
		active = s.deps.ActiveDeployments()
	}
	checks["active_deployments"] = active

	writeJSON(w, http.StatusOK, HealthResponse{Status: status, Checks: checks})
}

// handleMetrics responds with current operational metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Get())
}
