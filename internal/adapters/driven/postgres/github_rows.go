package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

// Row types mirror the table columns one to one. toRow and toDomain are
// pure inverses over every column-representable field, so storage never
// loses data the domain carries.

type githubRepositoryRow struct {
	ID            string
	Name          string
	FullName      string
	Description   string
	Private       bool
	Fork          bool
	Archived      bool
	Language      string
	Stars         int
	Forks         int
	OpenIssues    int
	DefaultBranch string
	Topics        pq.StringArray
	URL           string
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	PushedAt      *time.Time
}

func repositoryToRow(repo domain.GitHubRepository) githubRepositoryRow {
	return githubRepositoryRow{
		ID:            repo.ID,
		Name:          repo.Name,
		FullName:      repo.FullName,
		Description:   repo.Description,
		Private:       repo.Private,
		Fork:          repo.Fork,
		Archived:      repo.Archived,
		Language:      repo.Language,
		Stars:         repo.Stars,
		Forks:         repo.Forks,
		OpenIssues:    repo.OpenIssues,
		DefaultBranch: repo.DefaultBranch,
		Topics:        pq.StringArray(repo.Topics),
		URL:           repo.URL,
		CreatedAt:     nullTime(repo.CreatedAt),
		UpdatedAt:     nullTime(repo.UpdatedAt),
		PushedAt:      nullTime(repo.PushedAt),
	}
}

func (r githubRepositoryRow) toDomain() domain.GitHubRepository {
	return domain.GitHubRepository{
		ID:            r.ID,
		Name:          r.Name,
		FullName:      r.FullName,
		Description:   r.Description,
		Private:       r.Private,
		Fork:          r.Fork,
		Archived:      r.Archived,
		Language:      r.Language,
		Stars:         r.Stars,
		Forks:         r.Forks,
		OpenIssues:    r.OpenIssues,
		DefaultBranch: r.DefaultBranch,
		Topics:        []string(r.Topics),
		URL:           r.URL,
		CreatedAt:     timeValue(r.CreatedAt),
		UpdatedAt:     timeValue(r.UpdatedAt),
		PushedAt:      timeValue(r.PushedAt),
	}
}

type githubPullRequestRow struct {
	ID           string
	Number       int
	RepoFullName string
	Title        string
	Body         string
	State        string
	Author       string
	Draft        bool
	Merged       bool
	Comments     int
	Additions    int
	Deletions    int
	ChangedFiles int
	URL          string
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	MergedAt     *time.Time
	ClosedAt     *time.Time
}

func pullRequestToRow(pr domain.GitHubPullRequest) githubPullRequestRow {
	return githubPullRequestRow{
		ID:           pr.ID,
		Number:       pr.Number,
		RepoFullName: pr.RepoFullName,
		Title:        pr.Title,
		Body:         pr.Body,
		State:        pr.State,
		Author:       pr.Author,
		Draft:        pr.Draft,
		Merged:       pr.Merged,
		Comments:     pr.Comments,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
		URL:          pr.URL,
		CreatedAt:    nullTime(pr.CreatedAt),
		UpdatedAt:    nullTime(pr.UpdatedAt),
		MergedAt:     pr.MergedAt,
		ClosedAt:     pr.ClosedAt,
	}
}

func (r githubPullRequestRow) toDomain() domain.GitHubPullRequest {
	return domain.GitHubPullRequest{
		ID:           r.ID,
		Number:       r.Number,
		RepoFullName: r.RepoFullName,
		Title:        r.Title,
		Body:         r.Body,
		State:        r.State,
		Author:       r.Author,
		Draft:        r.Draft,
		Merged:       r.Merged,
		Comments:     r.Comments,
		Additions:    r.Additions,
		Deletions:    r.Deletions,
		ChangedFiles: r.ChangedFiles,
		URL:          r.URL,
		CreatedAt:    timeValue(r.CreatedAt),
		UpdatedAt:    timeValue(r.UpdatedAt),
		MergedAt:     r.MergedAt,
		ClosedAt:     r.ClosedAt,
	}
}

func saveGitHubRepository(ctx context.Context, db *sql.DB, repo domain.GitHubRepository) error {
	row := repositoryToRow(repo)
	_, err := db.ExecContext(ctx, `
		INSERT INTO github_repositories (
			id, name, full_name, description, private, fork, archived,
			language, stars, forks, open_issues, default_branch, topics,
			url, created_at, updated_at, pushed_at, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			name           = EXCLUDED.name,
			full_name      = EXCLUDED.full_name,
			description    = EXCLUDED.description,
			private        = EXCLUDED.private,
			fork           = EXCLUDED.fork,
			archived       = EXCLUDED.archived,
			language       = EXCLUDED.language,
			stars          = EXCLUDED.stars,
			forks          = EXCLUDED.forks,
			open_issues    = EXCLUDED.open_issues,
			default_branch = EXCLUDED.default_branch,
			topics         = EXCLUDED.topics,
			url            = EXCLUDED.url,
			created_at     = EXCLUDED.created_at,
			updated_at     = EXCLUDED.updated_at,
			pushed_at      = EXCLUDED.pushed_at,
			synced_at      = EXCLUDED.synced_at`,
		row.ID, row.Name, row.FullName, row.Description, row.Private,
		row.Fork, row.Archived, row.Language, row.Stars, row.Forks,
		row.OpenIssues, row.DefaultBranch, row.Topics,
		row.URL, row.CreatedAt, row.UpdatedAt, row.PushedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert repository %s: %w", repo.ID, err)
	}
	return nil
}

func saveGitHubPullRequest(ctx context.Context, db *sql.DB, pr domain.GitHubPullRequest) error {
	row := pullRequestToRow(pr)
	_, err := db.ExecContext(ctx, `
		INSERT INTO github_pull_requests (
			id, number, repo_full_name, title, body, state, author, draft,
			merged, comments, additions, deletions, changed_files, url,
			created_at, updated_at, merged_at, closed_at, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			number         = EXCLUDED.number,
			repo_full_name = EXCLUDED.repo_full_name,
			title          = EXCLUDED.title,
			body           = EXCLUDED.body,
			state          = EXCLUDED.state,
			author         = EXCLUDED.author,
			draft          = EXCLUDED.draft,
			merged         = EXCLUDED.merged,
			comments       = EXCLUDED.comments,
			additions      = EXCLUDED.additions,
			deletions      = EXCLUDED.deletions,
			changed_files  = EXCLUDED.changed_files,
			url            = EXCLUDED.url,
			created_at     = EXCLUDED.created_at,
			updated_at     = EXCLUDED.updated_at,
			merged_at      = EXCLUDED.merged_at,
			closed_at      = EXCLUDED.closed_at,
			synced_at      = EXCLUDED.synced_at`,
		row.ID, row.Number, row.RepoFullName, row.Title, row.Body, row.State,
		row.Author, row.Draft, row.Merged, row.Comments, row.Additions,
		row.Deletions, row.ChangedFiles, row.URL,
		row.CreatedAt, row.UpdatedAt, row.MergedAt, row.ClosedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert pull request %s: %w", pr.ID, err)
	}
	return nil
}

// nullTime maps the zero time to NULL so absent upstream timestamps
// don't persist as year one.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
