package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drewdunne/voiceops/internal/domain"
	"github.com/drewdunne/voiceops/internal/provider"
)

const projectPrefix = "/api/v4/projects/owner%2Frepo"

func TestGitLabProvider_CreatePullRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.EscapedPath() != projectPrefix+"/merge_requests" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.EscapedPath())
		}
		if r.Header.Get("PRIVATE-TOKEN") != "test-token" {
			t.Errorf("missing or incorrect token header")
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            999,
			"iid":           7,
			"title":         "Feature: feature branch",
			"source_branch": "feature",
			"target_branch": "develop",
			"state":         "opened",
			"author":        map[string]string{"username": "developer"},
			"web_url":       "https://gitlab.com/owner/repo/-/merge_requests/7",
		})
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	pr, err := p.CreatePullRequest(context.Background(), provider.NewPullRequest{
		Title:        "Feature: feature branch",
		SourceBranch: "feature",
		TargetBranch: "develop",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest() error = %v", err)
	}

	if pr.ID != "7" || pr.State != provider.StateOpen || pr.Author != "developer" {
		t.Errorf("pr = %+v", pr)
	}
}

func TestGitLabProvider_ListOpenPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != projectPrefix+"/merge_requests" {
			t.Errorf("unexpected path: %s", r.URL.EscapedPath())
		}
		q := r.URL.Query()
		if q.Get("state") != "opened" || q.Get("target_branch") != "main" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"iid": 1, "state": "opened", "target_branch": "main"},
			{"iid": 2, "state": "opened", "target_branch": "main"},
			{"iid": 3, "state": "opened", "target_branch": "main"},
		})
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	prs, err := p.ListOpenPullRequests(context.Background(), "main")
	if err != nil {
		t.Fatalf("ListOpenPullRequests() error = %v", err)
	}
	if len(prs) != 3 {
		t.Errorf("got %d merge requests, want 3", len(prs))
	}
}

func TestGitLabProvider_ListRecentCommits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != projectPrefix+"/repository/commits" {
			t.Errorf("unexpected path: %s", r.URL.EscapedPath())
		}
		if r.URL.Query().Get("ref_name") != "main" {
			t.Errorf("ref_name = %q, want main", r.URL.Query().Get("ref_name"))
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "abc123", "title": "Fix checkout", "author_name": "Dev", "created_at": "2026-10-02T10:00:00Z"},
		})
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	commits, err := p.ListRecentCommits(context.Background(), "main", time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("ListRecentCommits() error = %v", err)
	}
	if len(commits) != 1 || commits[0].SHA != "abc123" || commits[0].CreatedAt.IsZero() {
		t.Errorf("commits = %+v", commits)
	}
}

func TestGitLabProvider_MergePullRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.EscapedPath() == projectPrefix+"/merge_requests/7":
			json.NewEncoder(w).Encode(map[string]interface{}{"iid": 7, "state": "opened", "target_branch": "develop"})
		case r.Method == http.MethodPut && r.URL.EscapedPath() == projectPrefix+"/merge_requests/7/merge":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"iid":           7,
				"state":         "merged",
				"target_branch": "develop",
				"merged_by":     map[string]string{"username": "admin"},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.EscapedPath())
		}
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	pr, err := p.MergePullRequest(context.Background(), "!7", "admin")
	if err != nil {
		t.Fatalf("MergePullRequest() error = %v", err)
	}
	if pr.State != provider.StateMerged || pr.MergedBy != "admin" || pr.TargetBranch != "develop" {
		t.Errorf("pr = %+v", pr)
	}
}

func TestGitLabProvider_MergeClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s request to %s", r.Method, r.URL.EscapedPath())
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"iid": 7, "state": "closed"})
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	_, err := p.MergePullRequest(context.Background(), "7", "admin")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
}

func TestGitLabProvider_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "404 Not found"})
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	_, err := p.GetBranchStatus(context.Background(), "feature")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
