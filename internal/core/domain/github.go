package domain

import "time"

// GitHubRepository is the provider-agnostic form of one repository.
type GitHubRepository struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Private       bool      `json:"private"`
	Fork          bool      `json:"fork"`
	Archived      bool      `json:"archived"`
	Language      string    `json:"language"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	DefaultBranch string    `json:"default_branch"`
	Topics        []string  `json:"topics"`
	URL           string    `json:"url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PushedAt      time.Time `json:"pushed_at"`
}

func (r GitHubRepository) EntityID() string { return r.ID }

func (r GitHubRepository) EntityKind() Kind { return KindGitHubRepository }

// GitHubPullRequest is the provider-agnostic form of one pull request.
// Additions, Deletions and ChangedFiles are only populated when the
// per-PR detail fetch succeeds; the summary record carries zeros.
type GitHubPullRequest struct {
	ID           string     `json:"id"`
	Number       int        `json:"number"`
	RepoFullName string     `json:"repo_full_name"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	State        string     `json:"state"`
	Author       string     `json:"author"`
	Draft        bool       `json:"draft"`
	Merged       bool       `json:"merged"`
	Comments     int        `json:"comments"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changed_files"`
	URL          string     `json:"url"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MergedAt     *time.Time `json:"merged_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

func (p GitHubPullRequest) EntityID() string { return p.ID }

func (p GitHubPullRequest) EntityKind() Kind { return KindGitHubPullRequest }
