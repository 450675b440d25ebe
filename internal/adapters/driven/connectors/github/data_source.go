package github

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
	"github.com/ait-labs/ait-connectors/internal/httpclient"
	"github.com/ait-labs/ait-connectors/internal/resilience"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultPerPage = 50

	// breakerName is shared across every GitHub call site so a flood
	// of failures on one endpoint stops traffic to all of them.
	breakerName = "github"
)

var _ driven.DataSource = (*DataSource)(nil)

// DataSource fetches repositories and pull requests for the
// authenticated user.
//
// Cursors are decimal page numbers. For pull requests the cursor pages
// the repository list: each page fetches the open and closed pull
// requests of every repository on it, with a per-PR detail fan-out for
// diff counters that degrades to summary fields on failure.
type DataSource struct {
	client  *httpclient.Client
	breaker *resilience.Breaker
	logger  *slog.Logger
	perPage int
}

// Options tunes a data source beyond the builder defaults.
type Options struct {
	BaseURL string
	PerPage int

	// RequestsPerSecond enables proactive throttling; GitHub's
	// secondary limits bite well before the hourly quota.
	RequestsPerSecond float64
}

// NewDataSource creates a GitHub data source using the shared breaker
// registry.
func NewDataSource(accessToken string, breakers *resilience.Registry, logger *slog.Logger, opts Options) *DataSource {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.PerPage <= 0 {
		opts.PerPage = defaultPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := httpclient.New(accessToken, httpclient.Config{
		Provider:          domain.ProviderGitHub,
		BaseURL:           opts.BaseURL,
		RequestsPerSecond: opts.RequestsPerSecond,
		Logger:            logger,
	})
	return &DataSource{
		client:  client,
		breaker: breakers.Get(breakerName),
		logger:  logger,
		perPage: opts.PerPage,
	}
}

func (s *DataSource) Provider() domain.ProviderType { return domain.ProviderGitHub }

func (s *DataSource) Kinds() []domain.Kind {
	return []domain.Kind{domain.KindGitHubRepository, domain.KindGitHubPullRequest}
}

// SetAccessToken swaps the bearer token after a refresh.
func (s *DataSource) SetAccessToken(token string) { s.client.SetAccessToken(token) }

func (s *DataSource) FetchPage(ctx context.Context, kind domain.Kind, cursor string) (*driven.Page, error) {
	page, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindGitHubRepository:
		return s.fetchRepositories(ctx, page)
	case domain.KindGitHubPullRequest:
		return s.fetchPullRequests(ctx, page)
	default:
		return nil, &domain.UnsupportedKindError{Kind: kind}
	}
}

func (s *DataSource) fetchRepositories(ctx context.Context, page int) (*driven.Page, error) {
	raw, err := s.listRepositories(ctx, page)
	if err != nil {
		return nil, err
	}

	out := &driven.Page{Entities: make([]domain.Entity, 0, len(raw))}
	for _, r := range raw {
		out.Entities = append(out.Entities, mapRepository(r))
	}
	if len(raw) == s.perPage {
		out.NextCursor = strconv.Itoa(page + 1)
	}
	return out, nil
}

func (s *DataSource) fetchPullRequests(ctx context.Context, page int) (*driven.Page, error) {
	repos, err := s.listRepositories(ctx, page)
	if err != nil {
		return nil, err
	}

	out := &driven.Page{}
	for _, repo := range repos {
		if repo.Fork || repo.Archived {
			continue
		}
		prs, err := s.listPullRequests(ctx, repo.FullName)
		if err != nil {
			return nil, fmt.Errorf("list pull requests for %s: %w", repo.FullName, err)
		}
		for _, pr := range s.enrichPullRequests(ctx, repo.FullName, prs) {
			out.Entities = append(out.Entities, pr)
		}
	}
	if len(repos) == s.perPage {
		out.NextCursor = strconv.Itoa(page + 1)
	}
	return out, nil
}

// enrichPullRequests fans out per-PR detail fetches in chunks. A failed
// detail fetch logs and keeps the summary record, so one flaky PR
// doesn't sink the page.
func (s *DataSource) enrichPullRequests(ctx context.Context, repoFullName string, prs []apiPullRequest) []domain.GitHubPullRequest {
	out := make([]domain.GitHubPullRequest, 0, len(prs))
	details := make(map[int]*apiPullRequestDetail, len(prs))

	enriched, err := httpclient.ProcessInChunks(ctx, s.client, prs,
		func(ctx context.Context, pr apiPullRequest) (*apiPullRequestDetail, error) {
			detail, err := s.pullRequestDetail(ctx, repoFullName, pr.Number)
			if err != nil {
				s.logger.Warn("pull request detail fetch failed, keeping summary",
					"repo", repoFullName, "number", pr.Number, "error", err)
				return nil, err
			}
			return detail, nil
		}, httpclient.ChunkOptions{})
	if err == nil {
		for _, d := range enriched {
			if d != nil {
				details[d.Number] = d
			}
		}
	}

	for _, pr := range prs {
		out = append(out, mapPullRequest(repoFullName, pr, details[pr.Number]))
	}
	return out
}

func (s *DataSource) listRepositories(ctx context.Context, page int) ([]apiRepository, error) {
	endpoint := fmt.Sprintf("/user/repos?per_page=%d&page=%d&sort=updated&direction=desc", s.perPage, page)
	return resilience.Do(ctx, s.breaker, func(ctx context.Context) ([]apiRepository, error) {
		var out []apiRepository
		if err := s.client.Do(ctx, "GET", endpoint, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (s *DataSource) listPullRequests(ctx context.Context, repoFullName string) ([]apiPullRequest, error) {
	endpoint := fmt.Sprintf("/repos/%s/pulls?state=all&per_page=%d&sort=updated&direction=desc", repoFullName, s.perPage)
	return resilience.Do(ctx, s.breaker, func(ctx context.Context) ([]apiPullRequest, error) {
		var out []apiPullRequest
		if err := s.client.Do(ctx, "GET", endpoint, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (s *DataSource) pullRequestDetail(ctx context.Context, repoFullName string, number int) (*apiPullRequestDetail, error) {
	endpoint := fmt.Sprintf("/repos/%s/pulls/%d", repoFullName, number)
	return resilience.Do(ctx, s.breaker, func(ctx context.Context) (*apiPullRequestDetail, error) {
		var out apiPullRequestDetail
		if err := s.client.Do(ctx, "GET", endpoint, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(cursor)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: malformed cursor %q", domain.ErrInvalidInput, cursor)
	}
	return page, nil
}
