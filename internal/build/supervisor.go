package build

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/metrics"
)

// ProgressStore is the slice of the build store the supervisor writes to.
type ProgressStore interface {
	SetProgress(ctx context.Context, id int64, progress int) (bool, error)
	UpdateBuild(ctx context.Context, b *domain.Build, expected domain.BuildStatus) error
}

// SupervisorConfig configures deployment progress simulation.
type SupervisorConfig struct {
	Interval time.Duration
	Step     int
}

// Task is one supervised deployment.
type Task struct {
	BuildID string

	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed when the task stops, whether it completed the deployment,
// was cancelled, or saw the build leave RUNNING.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Supervisor runs one cancellable progress task per API deployment.
type Supervisor struct {
	cfg    SupervisorConfig
	store  ProgressStore
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	tasks map[string]*Task

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSupervisor creates a supervisor. Zero config values default to a 250ms
// interval and steps of 5.
func NewSupervisor(store ProgressStore, cfg SupervisorConfig, logger *slog.Logger) *Supervisor {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.Step <= 0 {
		cfg.Step = 5
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		cfg:    cfg,
		store:  store,
		logger: logger,
		now:    time.Now,
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins advancing progress for b. Starting a build that already has a
// task returns the existing task.
func (s *Supervisor) Start(b domain.Build) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[b.BuildID]; ok {
		return t
	}

	ctx, cancel := context.WithCancel(s.ctx)
	t := &Task{BuildID: b.BuildID, cancel: cancel, done: make(chan struct{})}
	s.tasks[b.BuildID] = t

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(t.done)
		defer s.remove(t)
		defer cancel()

		s.run(ctx, b)
	}()

	return t
}

// Cancel stops the task for buildID. It reports whether a task was running.
func (s *Supervisor) Cancel(buildID string) bool {
	s.mu.Lock()
	t, ok := s.tasks[buildID]
	s.mu.Unlock()

	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// ActiveCount returns the number of running tasks.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Shutdown cancels every task and waits for them to stop.
func (s *Supervisor) Shutdown() {
	s.cancel()
	s.wg.Wait()
}

func (s *Supervisor) remove(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks[t.BuildID] == t {
		delete(s.tasks, t.BuildID)
	}
}

func (s *Supervisor) run(ctx context.Context, b domain.Build) {
	log := s.logger.With("build_id", b.BuildID)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	progress := b.Progress
	for progress < 100 {
		select {
		case <-ctx.Done():
			log.Debug("deployment progress stopped", "progress", progress)
			return
		case <-ticker.C:
		}

		progress = min(progress+s.cfg.Step, 100)
		running, err := s.store.SetProgress(ctx, b.ID, progress)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("recording deployment progress", "error", err)
			continue
		}
		if !running {
			log.Info("build left RUNNING, stopping progress", "progress", progress)
			return
		}
	}

	now := s.now()
	b.Status = domain.BuildSuccess
	b.Progress = 100
	b.CompletedAt = &now
	b.DurationSeconds = int64(now.Sub(b.StartedAt).Round(time.Second) / time.Second)

	if err := s.store.UpdateBuild(ctx, &b, domain.BuildRunning); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			log.Info("build left RUNNING before completion")
			return
		}
		log.Error("completing deployment", "error", err)
		return
	}

	metrics.DeploymentCompleted()
	log.Info("deployment completed", "duration_seconds", b.DurationSeconds)
}
