package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drewdunne/voiceops/internal/audit"
	"github.com/drewdunne/voiceops/internal/build"
	"github.com/drewdunne/voiceops/internal/config"
	"github.com/drewdunne/voiceops/internal/dispatch"
	"github.com/drewdunne/voiceops/internal/docker"
	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/orchestrate"
	"github.com/drewdunne/voiceops/internal/processor"
	"github.com/drewdunne/voiceops/internal/provider"
	"github.com/drewdunne/voiceops/internal/registry"
	"github.com/drewdunne/voiceops/internal/safety"
	"github.com/drewdunne/voiceops/internal/server"
	"github.com/drewdunne/voiceops/internal/store"
)

// defaultUsers are seeded on first start.
var defaultUsers = []domain.User{
	{Username: "admin", Email: "admin@company.com", FullName: "Admin User", Role: "ADMIN", Active: true},
	{Username: "manager", Email: "manager@company.com", FullName: "Tech Manager", Role: "ADMIN", Active: true},
	{Username: "developer", Email: "developer@company.com", FullName: "John Developer", Role: "USER", Active: true},
	{Username: "developer2", Email: "developer2@company.com", FullName: "Jane Developer", Role: "USER", Active: true},
	{Username: "senior", Email: "senior@company.com", FullName: "Senior Developer", Role: "USER", Active: true},
}

// app holds the wired collaborators of one process.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	supervisor *build.Supervisor
	builds     *build.Service
	scm        *provider.Cached
	docker     *docker.Client
	nats       *audit.NATSPublisher
	dispatcher *dispatch.Dispatcher
	processor  *processor.Processor
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	var err error

	a.store, err = store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	if err := a.seedUsers(ctx); err != nil {
		return err
	}

	a.supervisor = build.NewSupervisor(a.store, build.SupervisorConfig{Interval: cfg.Builds.ProgressInterval}, logger)
	a.builds = build.NewService(a.store, a.supervisor,
		build.WithCIBaseURL(cfg.Builds.CIBaseURL),
		build.WithLogger(logger),
	)
	if n, err := a.builds.SeedSampleBuilds(ctx, "admin", "developer"); err != nil {
		return err
	} else if n > 0 {
		logger.Info("seeded sample builds", "count", n)
	}

	a.scm, err = registry.New(cfg.SCM).Open(cfg.SCM.Provider, cfg.SCM.CacheTTL)
	if err != nil {
		return err
	}

	var tests orchestrate.TestRunner = orchestrate.StubRunner{}
	if cfg.TestRunner.Image != "" {
		a.docker, err = docker.NewClient()
		if err != nil {
			return err
		}
		tests = docker.NewTestRunner(a.docker, cfg.TestRunner.Image, cfg.TestRunner.Command, cfg.TestRunner.Timeout)
	}

	a.dispatcher = dispatch.New(dispatch.Deps{
		Builds:   a.builds,
		SCM:      a.scm,
		Analyzer: safety.NewAnalyzer(a.scm, cfg.CommitWindow()),
		Planner:  orchestrate.NewPlanner(a.builds, tests, logger),
		Reports:  a.store,
		PRTarget: cfg.SCM.DefaultPRTarget,
	}, dispatch.WithLogger(logger))

	recorderOpts := []audit.Option{audit.WithLogger(logger)}
	if cfg.NATS.URL != "" {
		a.nats, err = audit.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return err
		}
		recorderOpts = append(recorderOpts, audit.WithPublisher(a.nats))
	}

	a.processor = processor.New(a.store, audit.NewRecorder(a.store, recorderOpts...), a.dispatcher, logger)
	return nil
}

func (a *app) seedUsers(ctx context.Context) error {
	users := append([]domain.User{}, defaultUsers...)
	for _, u := range a.cfg.Users {
		role := u.Role
		if role == "" {
			role = "USER"
		}
		users = append(users, domain.User{
			Username: u.Username,
			Email:    u.Email,
			FullName: u.FullName,
			Role:     role,
			Active:   true,
		})
	}

	for _, u := range users {
		created, err := a.store.SeedUser(ctx, u)
		if err != nil {
			return fmt.Errorf("seeding users: %w", err)
		}
		if created {
			a.logger.Debug("seeded user", "username", u.Username, "role", u.Role)
		}
	}
	return nil
}

func (a *app) server() *server.Server {
	deps := server.Deps{
		Processor:         a.processor,
		Dispatcher:        a.dispatcher,
		Builds:            a.builds,
		Records:           a.store,
		SCM:               a.scm,
		Invalidator:       a.scm,
		ActiveDeployments: a.supervisor.ActiveCount,
	}
	if a.docker != nil {
		deps.Docker = a.docker
	}
	return server.New(a.cfg, deps, a.logger)
}

func (a *app) close() {
	if a.supervisor != nil {
		a.supervisor.Shutdown()
	}
	if a.nats != nil {
		if err := a.nats.Close(); err != nil {
			a.logger.Warn("closing nats", "error", err)
		}
	}
	if a.docker != nil {
		a.docker.Close()
	}
	if a.scm != nil {
		a.scm.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}
