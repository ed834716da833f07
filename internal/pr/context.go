// Package pr assembles the normalized pull request context a validation run
// operates on. The context is built once per run, from the GitHub Actions
// event payload when available and from plain environment variables
// otherwise, and is never mutated afterwards.
package pr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// File statuses as reported by the GitHub API.
const (
	StatusAdded    = "added"
	StatusModified = "modified"
	StatusRemoved  = "removed"
)

// FileChange is one changed file in the pull request.
type FileChange struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Patch    string `json:"patch,omitempty"`
}

// Context is the immutable input of one validation run.
type Context struct {
	Number     int
	Title      string
	Body       string
	Author     string
	BranchName string
	HeadSHA    string
	Files      []FileChange
}

// FileLister fetches the changed files of a pull request.
type FileLister interface {
	ListPullRequestFiles(ctx context.Context, number int) ([]FileChange, error)
}

// eventPayload is the subset of the Actions pull_request event we consume.
type eventPayload struct {
	PullRequest *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
		Head struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
}

// FromEvent loads the pull request context from the GitHub Actions event
// payload at GITHUB_EVENT_PATH, fetching the changed files via the client.
func FromEvent(ctx context.Context, eventPath string, files FileLister) (*Context, error) {
	data, err := os.ReadFile(eventPath)
	if err != nil {
		return nil, fmt.Errorf("read event payload: %w", err)
	}

	var event eventPayload
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("parse event payload: %w", err)
	}
	if event.PullRequest == nil {
		return nil, fmt.Errorf("could not find pull request data in event payload")
	}

	p := event.PullRequest
	changed, err := files.ListPullRequestFiles(ctx, p.Number)
	if err != nil {
		return nil, fmt.Errorf("list pull request files: %w", err)
	}

	return &Context{
		Number:     p.Number,
		Title:      p.Title,
		Body:       p.Body,
		Author:     p.User.Login,
		BranchName: p.Head.Ref,
		HeadSHA:    p.Head.SHA,
		Files:      changed,
	}, nil
}

// FromEnv loads the pull request context from plain environment variables,
// with the changed files passed inline as a JSON array in PR_FILES.
func FromEnv() (*Context, error) {
	filesJSON := os.Getenv("PR_FILES")
	if filesJSON == "" {
		return nil, fmt.Errorf("PR_FILES environment variable is required")
	}
	files, err := ParseFiles(filesJSON)
	if err != nil {
		return nil, err
	}

	var number int
	if raw := os.Getenv("PR_NUMBER"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &number); err != nil {
			return nil, fmt.Errorf("PR_NUMBER is not a number: %q", raw)
		}
	}

	return &Context{
		Number:     number,
		Title:      os.Getenv("PR_TITLE"),
		Body:       os.Getenv("PR_BODY"),
		Author:     os.Getenv("PR_AUTHOR"),
		BranchName: os.Getenv("PR_BRANCH"),
		HeadSHA:    os.Getenv("HEAD_SHA"),
		Files:      files,
	}, nil
}

// ParseFiles decodes a JSON array of file changes.
func ParseFiles(raw string) ([]FileChange, error) {
	var files []FileChange
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("parse file list: %w", err)
	}
	return files, nil
}
