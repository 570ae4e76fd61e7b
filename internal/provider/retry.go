package provider

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
)

// RetryConfig configures retries of transient provider failures.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// WithRetry calls fn until it succeeds, fails permanently, or the retries
// are used up, backing off exponentially between attempts.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var err error
	backoff := cfg.InitialBackoff

	for i := 0; i <= cfg.MaxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !IsTransientError(err) {
			return err
		}

		if i == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return err
}

// IsTransientError checks if an error is transient and should be retried.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, domain.ErrUnavailable) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// Retrying retries transient failures of read operations. Writes are passed
// through once, since a timed-out create or merge may already have applied.
type Retrying struct {
	SourceControl
	cfg RetryConfig
}

var _ SourceControl = (*Retrying)(nil)

// NewRetrying wraps sc with retries.
func NewRetrying(sc SourceControl, cfg RetryConfig) *Retrying {
	return &Retrying{SourceControl: sc, cfg: cfg}
}

// ListUserPullRequests retries the wrapped call.
func (r *Retrying) ListUserPullRequests(ctx context.Context, author string) ([]PullRequest, error) {
	var prs []PullRequest
	err := WithRetry(ctx, r.cfg, func() error {
		var err error
		prs, err = r.SourceControl.ListUserPullRequests(ctx, author)
		return err
	})
	return prs, err
}

// GetBranchStatus retries the wrapped call.
func (r *Retrying) GetBranchStatus(ctx context.Context, branch string) (*BranchStatus, error) {
	var st *BranchStatus
	err := WithRetry(ctx, r.cfg, func() error {
		var err error
		st, err = r.SourceControl.GetBranchStatus(ctx, branch)
		return err
	})
	return st, err
}

// ListOpenPullRequests retries the wrapped call.
func (r *Retrying) ListOpenPullRequests(ctx context.Context, branch string) ([]PullRequest, error) {
	var prs []PullRequest
	err := WithRetry(ctx, r.cfg, func() error {
		var err error
		prs, err = r.SourceControl.ListOpenPullRequests(ctx, branch)
		return err
	})
	return prs, err
}

// ListRecentCommits retries the wrapped call.
func (r *Retrying) ListRecentCommits(ctx context.Context, branch string, since time.Time) ([]Commit, error) {
	var commits []Commit
	err := WithRetry(ctx, r.cfg, func() error {
		var err error
		commits, err = r.SourceControl.ListRecentCommits(ctx, branch, since)
		return err
	})
	return commits, err
}
