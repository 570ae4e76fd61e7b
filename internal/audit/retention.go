package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Pruner deletes audit records created before a cutoff.
type Pruner interface {
	DeleteCommandsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleaner removes audit records older than the retention period.
type Cleaner struct {
	pruner        Pruner
	retentionDays int
	now           func() time.Time
}

// NewCleaner creates a Cleaner keeping retentionDays of history.
func NewCleaner(pruner Pruner, retentionDays int) *Cleaner {
	return &Cleaner{pruner: pruner, retentionDays: retentionDays, now: time.Now}
}

// Cleanup deletes expired records and returns how many were removed.
func (c *Cleaner) Cleanup(ctx context.Context) (int64, error) {
	threshold := c.now().AddDate(0, 0, -c.retentionDays)
	return c.pruner.DeleteCommandsBefore(ctx, threshold)
}

// CleanupScheduler runs a Cleaner on an interval.
type CleanupScheduler struct {
	cleaner  *Cleaner
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// DefaultCleanupInterval is used when the configured interval is not positive.
const DefaultCleanupInterval = 24 * time.Hour

// NewCleanupScheduler creates a scheduler. Call Start to begin.
func NewCleanupScheduler(cleaner *Cleaner, interval time.Duration, logger *slog.Logger) *CleanupScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupScheduler{
		cleaner:  cleaner,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one cleanup immediately and then one per interval until Stop.
func (s *CleanupScheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runCleanup()
		for {
			select {
			case <-ticker.C:
				s.runCleanup()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.cleaner.Cleanup(ctx)
	if err != nil {
		s.logger.Error("audit cleanup failed", "error", err)
	} else if deleted > 0 {
		s.logger.Info("pruned audit records", "deleted", deleted)
	}
}

// Stop halts the scheduler and waits for a running cleanup to finish.
// It is safe to call more than once.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.started.Load() {
			<-s.done
		}
	})
}
