// internal/github/client_test.go
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"knowtree/internal/history"
)

func TestClient_Commit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/commits/abc123" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
			t.Errorf("Accept header = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "token secret" {
			t.Errorf("Authorization header = %q", got)
		}
		fmt.Fprint(w, `{
			"sha": "abc123",
			"commit": {
				"message": "Fix bug\n\ndetails",
				"author": {"name": "Jo", "email": "jo@example.com", "date": "2024-06-01T12:00:00Z"},
				"committer": {"date": "2024-06-01T12:05:00Z"}
			},
			"stats": {"additions": 3, "deletions": 1},
			"files": [
				{"filename": "main.go", "status": "modified", "additions": 3, "deletions": 1, "patch": "@@ -1 +1 @@"}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(Options{AuthToken: "secret", BaseURL: server.URL})
	detail, err := client.Commit(context.Background(), "owner/repo", "abc123")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if detail.SHA != "abc123" {
		t.Errorf("SHA = %q, want abc123", detail.SHA)
	}
	if detail.Author.Name != "Jo" || detail.Author.Email != "jo@example.com" {
		t.Errorf("Author = %+v", detail.Author)
	}
	if want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC); !detail.Date.Equal(want) {
		t.Errorf("Date = %v, want author date %v", detail.Date, want)
	}
	if want := time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC); !detail.CommitDate.Equal(want) {
		t.Errorf("CommitDate = %v, want committer date %v", detail.CommitDate, want)
	}
	if detail.Stats == nil || detail.Stats.Additions != 3 || detail.Stats.Deletions != 1 {
		t.Errorf("Stats = %+v", detail.Stats)
	}
	if len(detail.Files) != 1 || detail.Files[0].Path != "main.go" || detail.Files[0].Status != "modified" {
		t.Errorf("Files = %+v", detail.Files)
	}
}

func TestClient_Commit_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	_, err := client.Commit(context.Background(), "owner/repo", "missing")
	if !errors.Is(err, history.ErrNotFound) {
		t.Errorf("Expected history.ErrNotFound, got %v", err)
	}
}

func TestClient_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/commits" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sha") != "main" {
			t.Errorf("sha = %q, want main", q.Get("sha"))
		}
		if q.Get("since") != "2024-06-01T12:00:00Z" {
			t.Errorf("since = %q", q.Get("since"))
		}
		if q.Get("per_page") != "2" || q.Get("page") != "3" {
			t.Errorf("pagination = per_page %q page %q", q.Get("per_page"), q.Get("page"))
		}
		fmt.Fprint(w, `[
			{"sha": "c1", "commit": {"message": "newest", "committer": {"date": "2024-06-02T09:00:00Z"}}},
			{"sha": "c2", "commit": {"message": "older", "committer": {"date": "2024-06-01T13:00:00Z"}}}
		]`)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	commits, err := client.List(context.Background(), "owner/repo", history.ListOptions{
		Branch:  "main",
		Since:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Page:    3,
		PerPage: 2,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(commits) != 2 {
		t.Fatalf("Expected 2 commits, got %d", len(commits))
	}
	if commits[0].SHA != "c1" || commits[1].SHA != "c2" {
		t.Errorf("Order not preserved: %+v", commits)
	}
	if commits[0].Summary() != "newest" {
		t.Errorf("Summary = %q, want newest", commits[0].Summary())
	}
}

func TestClient_List_NoFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Has("since") {
			t.Errorf("since param sent for zero time")
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	commits, err := client.List(context.Background(), "owner/repo", history.ListOptions{Branch: "main", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(commits) != 0 {
		t.Errorf("Expected empty page, got %d commits", len(commits))
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	_, err := client.List(context.Background(), "owner/repo", history.ListOptions{Branch: "main"})
	if err == nil {
		t.Fatal("Expected error for HTTP 403")
	}
	if errors.Is(err, history.ErrNotFound) {
		t.Errorf("403 must not map to ErrNotFound")
	}
}
