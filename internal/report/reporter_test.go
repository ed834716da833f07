package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/publicfreesuffix/registry-automation/internal/validation"
)

type mockPublisher struct {
	comments map[int][]string
	labels   map[int][]string
	err      error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{
		comments: make(map[int][]string),
		labels:   make(map[int][]string),
	}
}

func (m *mockPublisher) CreateComment(ctx context.Context, number int, body string) error {
	if m.err != nil {
		return m.err
	}
	m.comments[number] = append(m.comments[number], body)
	return nil
}

func (m *mockPublisher) SetLabels(ctx context.Context, number int, labels []string) error {
	if m.err != nil {
		return m.err
	}
	m.labels[number] = labels
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReporterLabels(t *testing.T) {
	r := NewReporter(ReporterConfig{Logger: quietLogger()})
	if got := r.Labels(true); !reflect.DeepEqual(got, []string{"validation-passed"}) {
		t.Errorf("Labels(true) = %v", got)
	}
	if got := r.Labels(false); !reflect.DeepEqual(got, []string{"validation-failed"}) {
		t.Errorf("Labels(false) = %v", got)
	}

	custom := NewReporter(ReporterConfig{
		LabelPassed: "ok",
		LabelFailed: "rejected",
		Logger:      quietLogger(),
	})
	if got := custom.Labels(false); !reflect.DeepEqual(got, []string{"rejected"}) {
		t.Errorf("custom Labels(false) = %v", got)
	}
}

func TestReporterPublish(t *testing.T) {
	pub := newMockPublisher()
	r := NewReporter(ReporterConfig{Publisher: pub, Logger: quietLogger()})

	r.Publish(context.Background(), 12, "report body", false)

	if got := pub.comments[12]; len(got) != 1 || got[0] != "report body" {
		t.Errorf("comments = %v", got)
	}
	if got := pub.labels[12]; !reflect.DeepEqual(got, []string{"validation-failed"}) {
		t.Errorf("labels = %v", got)
	}
}

func TestReporterPublishSwallowsAPIErrors(t *testing.T) {
	pub := newMockPublisher()
	pub.err = errors.New("api down")
	r := NewReporter(ReporterConfig{Publisher: pub, Logger: quietLogger()})

	// Must not panic or propagate; the validation outcome already stands.
	r.Publish(context.Background(), 12, "report body", true)
}

func TestReporterWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "validation-result.json")
	r := NewReporter(ReporterConfig{ArtifactPath: path, Logger: quietLogger()})

	result := &validation.Result{
		IsValid: false,
		Errors: []validation.CheckError{
			{Category: validation.CategoryTitleFormat, Message: "PR title cannot be empty"},
		},
		Warnings: []string{},
	}
	if err := r.WriteArtifact(result); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		IsValid bool     `json:"isValid"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if decoded.IsValid {
		t.Error("isValid should be false")
	}
	// Errors serialize as plain message strings.
	if !reflect.DeepEqual(decoded.Errors, []string{"PR title cannot be empty"}) {
		t.Errorf("errors = %v", decoded.Errors)
	}
}
