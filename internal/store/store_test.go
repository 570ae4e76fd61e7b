package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "voiceops.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNextBuildNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.NextBuildNumber(ctx)
	if err != nil {
		t.Fatalf("NextBuildNumber() error = %v", err)
	}
	second, err := s.NextBuildNumber(ctx)
	if err != nil {
		t.Fatalf("NextBuildNumber() error = %v", err)
	}

	if first != 1001 {
		t.Errorf("first = %d, want 1001", first)
	}
	if second != first+1 {
		t.Errorf("second = %d, want %d", second, first+1)
	}
}

func TestNextSequence_Unknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.NextSequence(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestAdvanceBuildNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AdvanceBuildNumber(ctx, 1002); err != nil {
		t.Fatalf("AdvanceBuildNumber() error = %v", err)
	}
	// Lower floors leave the sequence alone.
	if err := s.AdvanceBuildNumber(ctx, 10); err != nil {
		t.Fatalf("AdvanceBuildNumber() error = %v", err)
	}

	next, err := s.NextBuildNumber(ctx)
	if err != nil {
		t.Fatalf("NextBuildNumber() error = %v", err)
	}
	if next != 1003 {
		t.Errorf("next = %d, want 1003", next)
	}
}

func TestBuilds_CreateGetUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := &domain.Build{
		BuildID:          "PROD-1001",
		JobName:          "production-deploy",
		Branch:           "main",
		Number:           1001,
		Status:           domain.BuildPendingApproval,
		Environment:      domain.EnvProduction,
		RequiresApproval: true,
		TriggeredBy:      "admin",
		StartedAt:        time.Now(),
	}
	if err := s.CreateBuild(ctx, b); err != nil {
		t.Fatalf("CreateBuild() error = %v", err)
	}
	if b.ID == 0 {
		t.Fatal("CreateBuild() did not set ID")
	}

	for _, id := range []string{"PROD-1001", "prod-1001", "1001"} {
		got, err := s.GetBuild(ctx, id)
		if err != nil {
			t.Fatalf("GetBuild(%q) error = %v", id, err)
		}
		if got.BuildID != "PROD-1001" || !got.RequiresApproval {
			t.Errorf("GetBuild(%q) = %+v", id, got)
		}
	}

	now := time.Now()
	b.Status = domain.BuildRunning
	b.ApprovedBy = "manager"
	b.ApprovedAt = &now
	if err := s.UpdateBuild(ctx, b, domain.BuildPendingApproval); err != nil {
		t.Fatalf("UpdateBuild() error = %v", err)
	}

	// The stored row is RUNNING now, so a stale expectation must fail.
	err := s.UpdateBuild(ctx, b, domain.BuildPendingApproval)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("stale UpdateBuild() error = %v, want ErrInvalidState", err)
	}

	got, err := s.GetBuild(ctx, "PROD-1001")
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if got.Status != domain.BuildRunning || got.ApprovedBy != "manager" || got.ApprovedAt == nil {
		t.Errorf("after approval = %+v", got)
	}
}

func TestGetBuild_SharedNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, b := range []*domain.Build{
		{BuildID: "PROD-1001", JobName: "production-deploy", Number: 1001, Status: domain.BuildPendingApproval},
		{BuildID: "STAGE-1001", JobName: "staging-deploy", Number: 1001, Status: domain.BuildRunning},
		{BuildID: "BUILD-1002", JobName: "feature-build", Number: 1002, Status: domain.BuildRunning},
	} {
		b.Branch, b.Environment, b.TriggeredBy, b.StartedAt = "main", domain.EnvProduction, "admin", time.Now()
		if err := s.CreateBuild(ctx, b); err != nil {
			t.Fatalf("CreateBuild(%s) error = %v", b.BuildID, err)
		}
	}

	_, err := s.GetBuild(ctx, "1001")
	if !errors.Is(err, domain.ErrAmbiguous) {
		t.Fatalf("GetBuild(1001) error = %v, want ErrAmbiguous", err)
	}
	if !strings.Contains(err.Error(), "PROD-1001, STAGE-1001") {
		t.Errorf("error = %q, want the candidate ids", err)
	}

	b, err := s.GetBuild(ctx, "1002")
	if err != nil || b.BuildID != "BUILD-1002" {
		t.Errorf("GetBuild(1002) = %v, %v; want BUILD-1002", b, err)
	}

	b, err = s.GetBuild(ctx, "stage-1001")
	if err != nil || b.BuildID != "STAGE-1001" {
		t.Errorf("GetBuild(stage-1001) = %v, %v; want STAGE-1001", b, err)
	}

	if _, err := s.GetBuild(ctx, "1003"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetBuild(1003) error = %v, want ErrNotFound", err)
	}
}

func TestGetBuild_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBuild(context.Background(), "BUILD-9999")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSetProgress_OnlyWhileRunning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := &domain.Build{BuildID: "API-1001", JobName: "api-deploy", Branch: "rewards-api-v1",
		Number: 1001, Status: domain.BuildRunning, Environment: domain.EnvProduction,
		TriggeredBy: "admin", APIName: "Rewards Details API", StartedAt: time.Now()}
	if err := s.CreateBuild(ctx, b); err != nil {
		t.Fatalf("CreateBuild() error = %v", err)
	}

	ok, err := s.SetProgress(ctx, b.ID, 40)
	if err != nil || !ok {
		t.Fatalf("SetProgress() = %v, %v; want true, nil", ok, err)
	}

	b.Status = domain.BuildAborted
	if err := s.UpdateBuild(ctx, b, domain.BuildRunning); err != nil {
		t.Fatalf("UpdateBuild() error = %v", err)
	}

	ok, err = s.SetProgress(ctx, b.ID, 45)
	if err != nil || ok {
		t.Errorf("SetProgress() after abort = %v, %v; want false, nil", ok, err)
	}
}

func TestListBuilds_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	seed := []domain.Build{
		{BuildID: "BUILD-1", Status: domain.BuildRunning, TriggeredBy: "developer", StartedAt: base},
		{BuildID: "BUILD-2", Status: domain.BuildSuccess, TriggeredBy: "developer", StartedAt: base.Add(time.Minute)},
		{BuildID: "PROD-3", Status: domain.BuildPendingApproval, TriggeredBy: "admin", StartedAt: base.Add(2 * time.Minute)},
		{BuildID: "API-4", Status: domain.BuildRunning, TriggeredBy: "admin", APIName: "Rewards Details API", StartedAt: base.Add(3 * time.Minute)},
	}
	for i := range seed {
		seed[i].JobName, seed[i].Branch, seed[i].Environment = "job", "main", domain.EnvDevelopment
		seed[i].Number = int64(i + 1)
		if err := s.CreateBuild(ctx, &seed[i]); err != nil {
			t.Fatalf("CreateBuild() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter BuildFilter
		want   []string
	}{
		{"all newest first", BuildFilter{}, []string{"API-4", "PROD-3", "BUILD-2", "BUILD-1"}},
		{"by user", BuildFilter{TriggeredBy: "developer"}, []string{"BUILD-2", "BUILD-1"}},
		{"by status", BuildFilter{Status: domain.BuildPendingApproval}, []string{"PROD-3"}},
		{"api only", BuildFilter{APIOnly: true}, []string{"API-4"}},
		{"limit", BuildFilter{Limit: 1}, []string{"API-4"}},
		{"since", BuildFilter{Since: base.Add(90 * time.Second)}, []string{"API-4", "PROD-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListBuilds(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListBuilds() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListBuilds() returned %d builds, want %d", len(got), len(tt.want))
			}
			for i, b := range got {
				if b.BuildID != tt.want[i] {
					t.Errorf("build[%d] = %s, want %s", i, b.BuildID, tt.want[i])
				}
			}
		})
	}

	counts, err := s.CountBuildsByStatus(ctx, base)
	if err != nil {
		t.Fatalf("CountBuildsByStatus() error = %v", err)
	}
	if counts[domain.BuildRunning] != 2 || counts[domain.BuildSuccess] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.SeedUser(ctx, domain.User{Username: "admin", Role: "ADMIN", Active: true})
	if err != nil || !added {
		t.Fatalf("SeedUser() = %v, %v; want true, nil", added, err)
	}
	added, err = s.SeedUser(ctx, domain.User{Username: "admin", Role: "USER", Active: true})
	if err != nil || added {
		t.Fatalf("second SeedUser() = %v, %v; want false, nil", added, err)
	}
	if _, err := s.SeedUser(ctx, domain.User{Username: "retired", Role: "USER", Active: false}); err != nil {
		t.Fatalf("SeedUser() error = %v", err)
	}

	u, err := s.GetUser(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Role != "ADMIN" {
		t.Errorf("Role = %s, want ADMIN (seed must not overwrite)", u.Role)
	}

	if _, err := s.GetUser(ctx, "retired"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetUser(inactive) error = %v, want ErrNotFound", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("ListUsers() returned %d users, want 2", len(users))
	}
}

func TestCommands_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Now()

	r := domain.NewCommandRecord("c-1", "developer", "build my feature branch", start)
	if err := r.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := s.InsertCommand(ctx, r); err != nil {
		t.Fatalf("InsertCommand() error = %v", err)
	}

	params := map[string]string{"branch": "feature"}
	if err := r.Complete("BUILD_BRANCH", params, "Build triggered", true, start.Add(20*time.Millisecond)); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := s.UpdateCommand(ctx, r); err != nil {
		t.Fatalf("UpdateCommand() error = %v", err)
	}

	// Finalized records are immutable.
	r.Response = "rewritten"
	if err := s.UpdateCommand(ctx, r); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second UpdateCommand() error = %v, want ErrInvalidState", err)
	}

	got, err := s.ListCommands(ctx, CommandFilter{Username: "developer"})
	if err != nil {
		t.Fatalf("ListCommands() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListCommands() returned %d records, want 1", len(got))
	}
	if got[0].Status != domain.CommandCompleted || got[0].Parameters["branch"] != "feature" ||
		got[0].Response != "Build triggered" || got[0].ProcessedAt == nil {
		t.Errorf("stored record = %+v", got[0])
	}

	stats, err := s.CommandStats(ctx, start.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CommandStats() error = %v", err)
	}
	if stats.Total != 1 || stats.Completed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDeleteCommandsBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old := domain.NewCommandRecord("old", "developer", "status", now.Add(-10*24*time.Hour))
	fresh := domain.NewCommandRecord("fresh", "developer", "status", now)
	for _, r := range []*domain.CommandRecord{old, fresh} {
		if err := s.InsertCommand(ctx, r); err != nil {
			t.Fatalf("InsertCommand() error = %v", err)
		}
	}

	n, err := s.DeleteCommandsBefore(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteCommandsBefore() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}

	left, err := s.ListCommands(ctx, CommandFilter{})
	if err != nil {
		t.Fatalf("ListCommands() error = %v", err)
	}
	if len(left) != 1 || left[0].ID != "fresh" {
		t.Errorf("remaining = %+v", left)
	}
}
