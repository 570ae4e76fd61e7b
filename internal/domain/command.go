package domain

import (
	"fmt"
	"time"
)

// CommandStatus is the lifecycle state of an audited command.
type CommandStatus string

const (
	CommandPending    CommandStatus = "PENDING"
	CommandProcessing CommandStatus = "PROCESSING"
	CommandCompleted  CommandStatus = "COMPLETED"
	CommandFailed     CommandStatus = "FAILED"
	CommandInvalid    CommandStatus = "INVALID"
)

// Terminal reports whether no further transition is allowed.
func (s CommandStatus) Terminal() bool {
	return s == CommandCompleted || s == CommandFailed || s == CommandInvalid
}

// CommandRecord is the audit trail entry for one processed command.
type CommandRecord struct {
	ID          string
	Username    string
	Text        string
	Action      string
	Parameters  map[string]string
	Response    string
	Success     bool
	Confidence  float64
	Status      CommandStatus
	Latency     time.Duration
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewCommandRecord returns a PENDING record.
func NewCommandRecord(id, username, text string, now time.Time) *CommandRecord {
	return &CommandRecord{
		ID:        id,
		Username:  username,
		Text:      text,
		Status:    CommandPending,
		CreatedAt: now,
	}
}

// Begin moves a PENDING record to PROCESSING.
func (r *CommandRecord) Begin() error {
	if r.Status != CommandPending {
		return fmt.Errorf("begin command %s in %s: %w", r.ID, r.Status, ErrInvalidState)
	}
	r.Status = CommandProcessing
	return nil
}

// Reject finalizes a PROCESSING record whose text was not recognized.
func (r *CommandRecord) Reject(action, response string, now time.Time) error {
	if r.Status != CommandProcessing {
		return fmt.Errorf("reject command %s in %s: %w", r.ID, r.Status, ErrInvalidState)
	}
	r.Action = action
	r.Response = response
	r.Success = false
	r.Confidence = 0
	r.Status = CommandInvalid
	r.finish(now)
	return nil
}

// Complete finalizes a PROCESSING record with the dispatch outcome. The record
// ends COMPLETED when success is true and FAILED otherwise.
func (r *CommandRecord) Complete(action string, params map[string]string, response string, success bool, now time.Time) error {
	if r.Status != CommandProcessing {
		return fmt.Errorf("complete command %s in %s: %w", r.ID, r.Status, ErrInvalidState)
	}
	r.Action = action
	r.Parameters = params
	r.Response = response
	r.Success = success
	r.Confidence = 0.9
	if success {
		r.Status = CommandCompleted
	} else {
		r.Status = CommandFailed
	}
	r.finish(now)
	return nil
}

func (r *CommandRecord) finish(now time.Time) {
	r.ProcessedAt = &now
	r.Latency = now.Sub(r.CreatedAt)
}
