package github

import (
	"strconv"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

// mapRepository translates one raw repository into domain shape.
func mapRepository(raw apiRepository) domain.GitHubRepository {
	return domain.GitHubRepository{
		ID:            strconv.FormatInt(raw.ID, 10),
		Name:          raw.Name,
		FullName:      raw.FullName,
		Description:   raw.Description,
		Private:       raw.Private,
		Fork:          raw.Fork,
		Archived:      raw.Archived,
		Language:      raw.Language,
		Stars:         raw.Stars,
		Forks:         raw.Forks,
		OpenIssues:    raw.OpenIssues,
		DefaultBranch: raw.DefaultBranch,
		Topics:        raw.Topics,
		URL:           raw.HTMLURL,
		CreatedAt:     raw.CreatedAt,
		UpdatedAt:     raw.UpdatedAt,
		PushedAt:      raw.PushedAt,
	}
}

// mapPullRequest translates one raw pull request into domain shape.
// detail may be nil when the per-PR fetch failed; the summary fields
// still map and the diff counters stay zero.
func mapPullRequest(repoFullName string, raw apiPullRequest, detail *apiPullRequestDetail) domain.GitHubPullRequest {
	pr := domain.GitHubPullRequest{
		ID:           strconv.FormatInt(raw.ID, 10),
		Number:       raw.Number,
		RepoFullName: repoFullName,
		Title:        raw.Title,
		Body:         raw.Body,
		State:        raw.State,
		Author:       raw.User.Login,
		Draft:        raw.Draft,
		Merged:       raw.MergedAt != nil,
		URL:          raw.HTMLURL,
		CreatedAt:    raw.CreatedAt,
		UpdatedAt:    raw.UpdatedAt,
		MergedAt:     raw.MergedAt,
		ClosedAt:     raw.ClosedAt,
	}
	if detail != nil {
		pr.Merged = detail.Merged
		pr.Comments = detail.Comments
		pr.Additions = detail.Additions
		pr.Deletions = detail.Deletions
		pr.ChangedFiles = detail.ChangedFiles
	}
	return pr
}
