package github

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

func TestGitHubProvider_CreatePullRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/owner/repo/pulls" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing or incorrect authorization header")
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["head"] != "feature" || body["base"] != "develop" {
			t.Errorf("body = %v", body)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"number":   42,
			"title":    body["title"],
			"state":    "open",
			"head":     map[string]string{"ref": "feature"},
			"base":     map[string]string{"ref": "develop"},
			"user":     map[string]string{"login": "developer"},
			"html_url": "https://github.com/owner/repo/pull/42",
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

	if pr.ID != "42" {
		t.Errorf("ID = %q, want %q", pr.ID, "42")
	}
	if pr.State != provider.StateOpen {
		t.Errorf("State = %q, want %q", pr.State, provider.StateOpen)
	}
	if pr.Author != "developer" {
		t.Errorf("Author = %q, want %q", pr.Author, "developer")
	}
}

func TestGitHubProvider_ListOpenPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/pulls" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("state") != "open" || q.Get("base") != "main" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"number": 1, "state": "open", "base": map[string]string{"ref": "main"}},
			{"number": 2, "state": "open", "base": map[string]string{"ref": "main"}},
		})
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	prs, err := p.ListOpenPullRequests(context.Background(), "main")
	if err != nil {
		t.Fatalf("ListOpenPullRequests() error = %v", err)
	}
	if len(prs) != 2 {
		t.Fatalf("got %d pull requests, want 2", len(prs))
	}
	if prs[1].ID != "2" || prs[1].TargetBranch != "main" {
		t.Errorf("prs[1] = %+v", prs[1])
	}
}

func TestGitHubProvider_ListRecentCommits(t *testing.T) {
	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/commits" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sha") != "main" || q.Get("since") != since.Format(time.RFC3339) {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"sha": "abc123",
				"commit": map[string]interface{}{
					"message": "Fix checkout",
					"author":  map[string]string{"name": "Dev", "date": "2026-10-02T10:00:00Z"},
				},
			},
		})
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	commits, err := p.ListRecentCommits(context.Background(), "main", since)
	if err != nil {
		t.Fatalf("ListRecentCommits() error = %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("got %d commits, want 1", len(commits))
	}
	if commits[0].SHA != "abc123" || commits[0].Message != "Fix checkout" || commits[0].Author != "Dev" {
		t.Errorf("commit = %+v", commits[0])
	}
}

func TestGitHubProvider_MergePullRequest(t *testing.T) {
	tests := []struct {
		name    string
		state   string
		wantErr error
	}{
		{"open pull request merges", "open", nil},
		{"closed pull request is rejected", "closed", domain.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := false
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch {
				case r.Method == http.MethodGet && r.URL.Path == "/repos/owner/repo/pulls/42":
					json.NewEncoder(w).Encode(map[string]interface{}{
						"number": 42,
						"state":  tt.state,
						"base":   map[string]string{"ref": "develop"},
					})
				case r.Method == http.MethodPut && r.URL.Path == "/repos/owner/repo/pulls/42/merge":
					merged = true
					json.NewEncoder(w).Encode(map[string]interface{}{"merged": true, "sha": "def456"})
				default:
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
			}))
			defer server.Close()

			p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
			pr, err := p.MergePullRequest(context.Background(), "PR-42", "admin")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if merged {
					t.Error("merge endpoint called for a closed pull request")
				}
				return
			}
			if err != nil {
				t.Fatalf("MergePullRequest() error = %v", err)
			}
			if pr.State != provider.StateMerged || pr.MergedBy != "admin" {
				t.Errorf("pr = %+v", pr)
			}
		})
	}
}

func TestGitHubProvider_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
	}))
	defer server.Close()

	p := New("test-token", "owner", "repo", WithBaseURL(server.URL))
	_, err := p.MergePullRequest(context.Background(), "7", "admin")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"42", 42, false},
		{"#42", 42, false},
		{"pr-42", 42, false},
		{"feature", 0, true},
	}

	for _, tt := range tests {
		got, err := parseNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseNumber(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
