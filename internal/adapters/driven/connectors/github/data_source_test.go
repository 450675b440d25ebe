package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/resilience"
)

func testSource(t *testing.T, perPage int, handler http.Handler) *DataSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	breakers := resilience.NewRegistry(resilience.Config{})
	return NewDataSource("test-token", breakers, nil, Options{
		BaseURL: srv.URL,
		PerPage: perPage,
	})
}

func repoJSON(id int, fullName string) map[string]any {
	return map[string]any{
		"id":               id,
		"name":             fullName,
		"full_name":        fullName,
		"stargazers_count": 7,
		"language":         "Go",
		"default_branch":   "main",
		"created_at":       "2024-01-02T03:04:05Z",
		"updated_at":       "2025-05-06T07:08:09Z",
		"pushed_at":        "2025-05-06T07:08:09Z",
	}
}

func TestFetchRepositoriesPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			json.NewEncoder(w).Encode([]any{
				repoJSON(1, "acme/one"),
				repoJSON(2, "acme/two"),
			})
		case 2:
			json.NewEncoder(w).Encode([]any{repoJSON(3, "acme/three")})
		default:
			t.Errorf("unexpected page %d", page)
		}
	})
	src := testSource(t, 2, mux)

	first, err := src.FetchPage(context.Background(), domain.KindGitHubRepository, "")
	if err != nil {
		t.Fatalf("FetchPage(page 1) error = %v", err)
	}
	if len(first.Entities) != 2 {
		t.Fatalf("page 1 entities = %d, want 2", len(first.Entities))
	}
	if first.NextCursor != "2" {
		t.Fatalf("page 1 NextCursor = %q, want 2", first.NextCursor)
	}

	repo, ok := first.Entities[0].(domain.GitHubRepository)
	if !ok {
		t.Fatalf("entity type = %T, want GitHubRepository", first.Entities[0])
	}
	if repo.ID != "1" || repo.FullName != "acme/one" || repo.Stars != 7 {
		t.Errorf("mapped repo = %+v", repo)
	}

	second, err := src.FetchPage(context.Background(), domain.KindGitHubRepository, first.NextCursor)
	if err != nil {
		t.Fatalf("FetchPage(page 2) error = %v", err)
	}
	if len(second.Entities) != 1 {
		t.Errorf("page 2 entities = %d, want 1", len(second.Entities))
	}
	if second.NextCursor != "" {
		t.Errorf("page 2 NextCursor = %q, want empty (short page)", second.NextCursor)
	}
}

func TestFetchPullRequestsDetailFanOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{repoJSON(1, "acme/app")})
	})
	mux.HandleFunc("/repos/acme/app/pulls", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 100, "number": 1, "title": "first", "state": "open",
				"user":       map[string]any{"login": "alice"},
				"created_at": "2025-01-01T00:00:00Z", "updated_at": "2025-01-02T00:00:00Z"},
			{"id": 200, "number": 2, "title": "second", "state": "closed",
				"user":       map[string]any{"login": "bob"},
				"created_at": "2025-02-01T00:00:00Z", "updated_at": "2025-02-02T00:00:00Z"},
		})
	})
	mux.HandleFunc("/repos/acme/app/pulls/1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": 100, "number": 1, "title": "first", "state": "open",
			"user":       map[string]any{"login": "alice"},
			"created_at": "2025-01-01T00:00:00Z", "updated_at": "2025-01-02T00:00:00Z",
			"comments": 3, "additions": 10, "deletions": 4, "changed_files": 2,
		})
	})
	// Detail for PR 2 fails; its summary record must survive.
	mux.HandleFunc("/repos/acme/app/pulls/2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	src := testSource(t, 50, mux)

	page, err := src.FetchPage(context.Background(), domain.KindGitHubPullRequest, "")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(page.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(page.Entities))
	}
	if page.NextCursor != "" {
		t.Errorf("NextCursor = %q, want empty", page.NextCursor)
	}

	byID := map[string]domain.GitHubPullRequest{}
	for _, e := range page.Entities {
		pr := e.(domain.GitHubPullRequest)
		byID[pr.ID] = pr
	}

	enriched := byID["100"]
	if enriched.Additions != 10 || enriched.Deletions != 4 || enriched.ChangedFiles != 2 || enriched.Comments != 3 {
		t.Errorf("enriched PR = %+v, want detail counters", enriched)
	}
	if enriched.RepoFullName != "acme/app" {
		t.Errorf("RepoFullName = %q", enriched.RepoFullName)
	}

	degraded := byID["200"]
	if degraded.Title != "second" || degraded.Author != "bob" {
		t.Errorf("degraded PR lost summary fields: %+v", degraded)
	}
	if degraded.Additions != 0 || degraded.ChangedFiles != 0 {
		t.Errorf("degraded PR should carry zero counters, got %+v", degraded)
	}
}

func TestFetchPullRequestsSkipsForksAndArchived(t *testing.T) {
	var pullCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		fork := repoJSON(1, "acme/forked")
		fork["fork"] = true
		archived := repoJSON(2, "acme/old")
		archived["archived"] = true
		json.NewEncoder(w).Encode([]any{fork, archived})
	})
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		pullCalls++
		json.NewEncoder(w).Encode([]any{})
	})
	src := testSource(t, 50, mux)

	page, err := src.FetchPage(context.Background(), domain.KindGitHubPullRequest, "")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(page.Entities) != 0 {
		t.Errorf("entities = %d, want 0", len(page.Entities))
	}
	if pullCalls != 0 {
		t.Errorf("pull list calls = %d, want 0 for fork/archived repos", pullCalls)
	}
}

func TestFetchPageUnsupportedKind(t *testing.T) {
	src := testSource(t, 50, http.NewServeMux())

	_, err := src.FetchPage(context.Background(), domain.KindSpotifyTrack, "")
	var unsupported *domain.UnsupportedKindError
	if !errors.As(err, &unsupported) {
		t.Fatalf("FetchPage() error = %v, want UnsupportedKindError", err)
	}
}

func TestFetchPageMalformedCursor(t *testing.T) {
	src := testSource(t, 50, http.NewServeMux())

	for _, cursor := range []string{"zero", "-3", "0"} {
		_, err := src.FetchPage(context.Background(), domain.KindGitHubRepository, cursor)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("FetchPage(%q) error = %v, want ErrInvalidInput", cursor, err)
		}
	}
}

func TestFetchPageCircuitOpens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	breakers := resilience.NewRegistry(resilience.Config{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
	})
	src := NewDataSource("t", breakers, nil, Options{BaseURL: srv.URL})

	for i := 0; i < 2; i++ {
		if _, err := src.FetchPage(context.Background(), domain.KindGitHubRepository, ""); err == nil {
			t.Fatalf("attempt %d: expected error", i+1)
		}
	}

	_, err := src.FetchPage(context.Background(), domain.KindGitHubRepository, "")
	var open *domain.CircuitOpenError
	if !errors.As(err, &open) {
		t.Fatalf("error after threshold = %v, want CircuitOpenError", err)
	}
}

func TestMapPullRequestMergedFromTimestamp(t *testing.T) {
	merged := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	pr := mapPullRequest("acme/app", apiPullRequest{
		ID: 5, Number: 9, State: "closed", MergedAt: &merged,
	}, nil)
	if !pr.Merged {
		t.Error("summary-only PR with merged_at should map Merged = true")
	}
	if pr.ID != "5" || pr.Number != 9 {
		t.Errorf("pr = %+v", pr)
	}
}
