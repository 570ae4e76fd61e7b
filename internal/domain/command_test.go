package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCommandRecord_Lifecycle(t *testing.T) {
	start := time.Now()

	tests := []struct {
		name       string
		finish     func(r *CommandRecord) error
		wantStatus CommandStatus
	}{
		{
			name: "completed",
			finish: func(r *CommandRecord) error {
				return r.Complete("BUILD_BRANCH", nil, "ok", true, start.Add(time.Second))
			},
			wantStatus: CommandCompleted,
		},
		{
			name: "failed",
			finish: func(r *CommandRecord) error {
				return r.Complete("APPROVE_BUILD", nil, "Build not found: X", false, start.Add(time.Second))
			},
			wantStatus: CommandFailed,
		},
		{
			name: "invalid",
			finish: func(r *CommandRecord) error {
				return r.Reject("UNRECOGNIZED", "Command not recognized. Please try again.", start.Add(time.Second))
			},
			wantStatus: CommandInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCommandRecord("id", "developer", "text", start)

			// Finishing straight from PENDING skips PROCESSING.
			if err := tt.finish(r); !errors.Is(err, ErrInvalidState) {
				t.Fatalf("finish from PENDING error = %v, want ErrInvalidState", err)
			}

			if err := r.Begin(); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			if err := tt.finish(r); err != nil {
				t.Fatalf("finish error = %v", err)
			}
			if r.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", r.Status, tt.wantStatus)
			}
			if r.Latency != time.Second || r.ProcessedAt == nil {
				t.Errorf("Latency = %v, ProcessedAt = %v", r.Latency, r.ProcessedAt)
			}

			if err := tt.finish(r); !errors.Is(err, ErrInvalidState) {
				t.Errorf("second finish error = %v, want ErrInvalidState", err)
			}
			if err := r.Begin(); !errors.Is(err, ErrInvalidState) {
				t.Errorf("Begin() on terminal record error = %v, want ErrInvalidState", err)
			}
		})
	}
}
