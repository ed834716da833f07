// Package github wraps the GitHub REST API calls the automation needs:
// listing PR files, fetching file contents at a ref, base-branch existence
// checks, and posting comments and labels. It authenticates with a static
// token or, when App credentials are configured, as a GitHub App
// installation.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v71/github"

	"github.com/publicfreesuffix/registry-automation/internal/config"
	"github.com/publicfreesuffix/registry-automation/internal/pr"
)

// Client talks to one repository on the GitHub API.
type Client struct {
	api   *gh.Client
	owner string
	repo  string
	log   *slog.Logger
}

// NewClient builds a Client from the GitHub configuration. App credentials
// take precedence over the static token.
func NewClient(ctx context.Context, cfg config.GitHubConfig, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	var api *gh.Client
	switch {
	case cfg.AppID != 0 && cfg.AppPrivateKey != "":
		token, err := newAppInstallationToken(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("github app auth: %w", err)
		}
		api = gh.NewClient(nil).WithAuthToken(token)
	case cfg.Token != "":
		api = gh.NewClient(nil).WithAuthToken(cfg.Token)
	default:
		return nil, fmt.Errorf("MY_GITHUB_TOKEN environment variable is required but not set")
	}

	return &Client{
		api:   api,
		owner: cfg.Owner(),
		repo:  cfg.Repo(),
		log:   log,
	}, nil
}

// ListPullRequestFiles returns the files changed by the pull request.
func (c *Client) ListPullRequestFiles(ctx context.Context, number int) ([]pr.FileChange, error) {
	var files []pr.FileChange
	opts := &gh.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.api.PullRequests.ListFiles(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to get PR files: %w", err)
		}
		for _, f := range page {
			files = append(files, pr.FileChange{
				Filename: f.GetFilename(),
				Status:   f.GetStatus(),
				Patch:    f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

// GetFileContent fetches the decoded content of a file at a ref.
func (c *Client) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	file, _, _, err := c.api.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", fmt.Errorf("failed to get file content: %w", err)
	}
	if file == nil {
		return "", fmt.Errorf("failed to get file content: %q is not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode file content: %w", err)
	}
	return content, nil
}

// FileExists reports whether a file exists at a ref.
func (c *Client) FileExists(ctx context.Context, path, ref string) (bool, error) {
	_, _, _, err := c.api.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil &&
			ghErr.Response.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

// CreateComment posts a comment on the pull request.
func (c *Client) CreateComment(ctx context.Context, number int, body string) error {
	_, _, err := c.api.Issues.CreateComment(ctx, c.owner, c.repo, number,
		&gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return fmt.Errorf("failed to create PR comment: %w", err)
	}
	return nil
}

// SetLabels replaces the labels on the pull request.
func (c *Client) SetLabels(ctx context.Context, number int, labels []string) error {
	_, _, err := c.api.Issues.ReplaceLabelsForIssue(ctx, c.owner, c.repo, number, labels)
	if err != nil {
		return fmt.Errorf("failed to update PR labels: %w", err)
	}
	return nil
}
