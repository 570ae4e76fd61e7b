// Package audit records one trail entry per processed command and prunes
// entries past their retention window.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/intent"
	"github.com/google/uuid"
)

// Sink persists audit records.
type Sink interface {
	InsertCommand(ctx context.Context, r *domain.CommandRecord) error
	UpdateCommand(ctx context.Context, r *domain.CommandRecord) error
}

// Publisher fans finalized records out to other consumers.
type Publisher interface {
	Publish(ctx context.Context, r domain.CommandRecord) error
}

// Recorder drives audit records through their lifecycle.
type Recorder struct {
	sink   Sink
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithPublisher publishes every finalized record.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) {
		r.pub = p
	}
}

// WithLogger sets the recorder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink Sink, opts ...Option) *Recorder {
	r := &Recorder{sink: sink, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin stores a new record for the command and moves it to PROCESSING.
func (r *Recorder) Begin(ctx context.Context, username, text string) (*domain.CommandRecord, error) {
	rec := domain.NewCommandRecord(uuid.NewString(), username, text, r.now())
	if err := rec.Begin(); err != nil {
		return nil, err
	}
	if err := r.sink.InsertCommand(ctx, rec); err != nil {
		return nil, fmt.Errorf("recording command: %w", err)
	}
	return rec, nil
}

// Reject finalizes rec as INVALID with the unrecognized sentinel action.
func (r *Recorder) Reject(ctx context.Context, rec *domain.CommandRecord, response string) error {
	if err := rec.Reject(string(intent.Unrecognized), response, r.now()); err != nil {
		return err
	}
	return r.finish(ctx, rec)
}

// Complete finalizes rec with the dispatch outcome.
func (r *Recorder) Complete(ctx context.Context, rec *domain.CommandRecord, in intent.Intent, response string, success bool) error {
	if err := rec.Complete(string(in.Action), in.Params, response, success, r.now()); err != nil {
		return err
	}
	return r.finish(ctx, rec)
}

func (r *Recorder) finish(ctx context.Context, rec *domain.CommandRecord) error {
	if err := r.sink.UpdateCommand(ctx, rec); err != nil {
		return fmt.Errorf("finalizing command %s: %w", rec.ID, err)
	}

	if r.pub != nil {
		// Publishing is best effort; the stored record is authoritative.
		if err := r.pub.Publish(ctx, *rec); err != nil {
			r.logger.Warn("publishing audit record", "id", rec.ID, "error", err)
		}
	}
	return nil
}
