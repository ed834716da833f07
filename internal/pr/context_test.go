package pr

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type mockFileLister struct {
	files []FileChange
}

func (m *mockFileLister) ListPullRequestFiles(ctx context.Context, number int) ([]FileChange, error) {
	return m.files, nil
}

func TestFromEvent(t *testing.T) {
	payload := `{
	  "pull_request": {
	    "number": 42,
	    "title": "Registration: example.no.kg",
	    "body": "## Operation Type",
	    "user": {"login": "someone"},
	    "head": {"ref": "example.no.kg-request-42", "sha": "abc123"}
	  }
	}`
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	lister := &mockFileLister{files: []FileChange{
		{Filename: "whois/example.no.kg.json", Status: StatusAdded},
	}}
	p, err := FromEvent(context.Background(), path, lister)
	if err != nil {
		t.Fatal(err)
	}

	if p.Number != 42 || p.Title != "Registration: example.no.kg" || p.Author != "someone" {
		t.Errorf("context = %+v", p)
	}
	if p.BranchName != "example.no.kg-request-42" || p.HeadSHA != "abc123" {
		t.Errorf("head = %q, %q", p.BranchName, p.HeadSHA)
	}
	if len(p.Files) != 1 || p.Files[0].Filename != "whois/example.no.kg.json" {
		t.Errorf("files = %v", p.Files)
	}
}

func TestFromEventWithoutPullRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(`{"action": "push"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := FromEvent(context.Background(), path, &mockFileLister{}); err == nil {
		t.Error("expected error for payload without pull_request")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PR_TITLE", "Update: example.no.kg")
	t.Setenv("PR_BODY", "body")
	t.Setenv("PR_NUMBER", "7")
	t.Setenv("PR_AUTHOR", "someone")
	t.Setenv("PR_BRANCH", "example.no.kg-request-7")
	t.Setenv("HEAD_SHA", "def456")
	t.Setenv("PR_FILES", `[{"filename": "whois/example.no.kg.json", "status": "modified"}]`)

	p, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if p.Number != 7 || p.Title != "Update: example.no.kg" || p.BranchName != "example.no.kg-request-7" {
		t.Errorf("context = %+v", p)
	}
	if p.Files[0].Status != StatusModified {
		t.Errorf("files = %v", p.Files)
	}
}

func TestFromEnvRequiresFiles(t *testing.T) {
	t.Setenv("PR_FILES", "")
	if _, err := FromEnv(); err == nil {
		t.Error("expected error without PR_FILES")
	}
}

func TestParseFiles(t *testing.T) {
	files, err := ParseFiles(`[{"filename": "a.json", "status": "added", "patch": "+x"}]`)
	if err != nil {
		t.Fatal(err)
	}
	want := []FileChange{{Filename: "a.json", Status: "added", Patch: "+x"}}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("files = %v", files)
	}

	if _, err := ParseFiles("not json"); err == nil {
		t.Error("expected error for malformed input")
	}
}
