// Package processor runs one voice command through caller lookup,
// recognition, dispatch and audit.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/drewdunne/voiceops/internal/dispatch"
	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/intent"
	"github.com/drewdunne/voiceops/internal/logging"
	"github.com/drewdunne/voiceops/internal/metrics"
	"github.com/drewdunne/voiceops/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NotRecognized is the response to text no catalog pattern matched.
const NotRecognized = "Command not recognized. Please try again."

// Directory resolves callers to users.
type Directory interface {
	GetUser(ctx context.Context, username string) (*domain.User, error)
}

var _ Directory = (*store.Store)(nil)

// Auditor records each processed command.
type Auditor interface {
	Begin(ctx context.Context, username, text string) (*domain.CommandRecord, error)
	Reject(ctx context.Context, rec *domain.CommandRecord, response string) error
	Complete(ctx context.Context, rec *domain.CommandRecord, in intent.Intent, response string, success bool) error
}

// Dispatcher executes recognized intents.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent, caller dispatch.Caller) dispatch.Result
}

// Processor is the command pipeline.
type Processor struct {
	users      Directory
	audit      Auditor
	dispatcher Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New creates a Processor.
func New(users Directory, audit Auditor, dispatcher Dispatcher, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		users:      users,
		audit:      audit,
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     otel.Tracer("github.com/drewdunne/voiceops/internal/processor"),
	}
}

// Process handles text spoken by username. It always returns a Result;
// failures are reported through Result.Success.
func (p *Processor) Process(ctx context.Context, text, username string) dispatch.Result {
	ctx, span := p.tracer.Start(ctx, "process command", trace.WithAttributes(
		attribute.String("voiceops.user", username),
	))
	defer span.End()

	log := logging.FromContext(ctx, p.logger).With("user", username)
	metrics.CommandReceived()

	caller, err := p.lookup(ctx, username)
	if err != nil {
		log.Warn("caller lookup failed", "error", err)
		metrics.CommandFailed()
		if errors.Is(err, domain.ErrCallerNotFound) {
			return dispatch.Fail("User not found: %s", username)
		}
		return dispatch.Fail("Error processing command: %v", err)
	}
	span.SetAttributes(attribute.String("voiceops.role", string(caller.Role)))

	rec, err := p.audit.Begin(ctx, username, text)
	if err != nil {
		log.Error("recording command", "error", err)
		metrics.CommandFailed()
		return dispatch.Fail("Error processing command: %v", err)
	}

	in, ok := intent.Recognize(text, caller.Role)
	if !ok {
		log.Info("command not recognized", "text", text)
		metrics.CommandInvalid()
		if err := p.audit.Reject(ctx, rec, NotRecognized); err != nil {
			log.Error("finalizing audit record", "id", rec.ID, "error", err)
		}
		return dispatch.Fail(NotRecognized)
	}
	log.Info("command recognized", "action", in.Action, "params", in.Params)
	span.SetAttributes(attribute.String("voiceops.action", string(in.Action)))

	res := p.dispatcher.Dispatch(ctx, in, caller)
	if res.Success {
		metrics.CommandCompleted()
	} else {
		metrics.CommandFailed()
	}

	if err := p.audit.Complete(ctx, rec, in, res.Message, res.Success); err != nil {
		log.Error("finalizing audit record", "id", rec.ID, "error", err)
	}
	return res
}

func (p *Processor) lookup(ctx context.Context, username string) (dispatch.Caller, error) {
	u, err := p.users.GetUser(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return dispatch.Caller{}, fmt.Errorf("looking up %s: %w", username, domain.ErrCallerNotFound)
	}
	if err != nil {
		return dispatch.Caller{}, err
	}

	role, err := intent.ParseRole(u.Role)
	if err != nil {
		return dispatch.Caller{}, fmt.Errorf("user %s: %w", username, err)
	}
	return dispatch.Caller{Username: u.Username, Role: role}, nil
}
