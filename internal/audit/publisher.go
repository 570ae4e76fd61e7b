package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/nats-io/nats.go"
)

// DefaultSubject is where audit events are published unless configured.
const DefaultSubject = "voiceops.commands"

// Event is the wire form of a finalized audit record.
type Event struct {
	ID         string            `json:"id"`
	Username   string            `json:"username"`
	Text       string            `json:"text"`
	Action     string            `json:"action"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Response   string            `json:"response"`
	Success    bool              `json:"success"`
	Status     string            `json:"status"`
	LatencyMS  int64             `json:"latencyMs"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// NewEvent converts a record into its wire form.
func NewEvent(r domain.CommandRecord) Event {
	return Event{
		ID:         r.ID,
		Username:   r.Username,
		Text:       r.Text,
		Action:     r.Action,
		Parameters: r.Parameters,
		Response:   r.Response,
		Success:    r.Success,
		Status:     string(r.Status),
		LatencyMS:  r.Latency.Milliseconds(),
		CreatedAt:  r.CreatedAt,
	}
}

// NATSPublisher publishes audit events to a NATS subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

var _ Publisher = (*NATSPublisher)(nil)

// ConnectNATS connects to the NATS server at url.
func ConnectNATS(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	nc, err := nats.Connect(url, nats.Name("voiceops"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	slog.Info("nats connected", "url", url, "subject", subject)
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Publish sends the record as a JSON event.
func (p *NATSPublisher) Publish(ctx context.Context, r domain.CommandRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NewEvent(r))
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
