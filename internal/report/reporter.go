package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Publisher is the slice of the source-control API the reporter needs.
type Publisher interface {
	CreateComment(ctx context.Context, number int, body string) error
	SetLabels(ctx context.Context, number int, labels []string) error
}

// ReporterConfig wires a Reporter.
type ReporterConfig struct {
	// Publisher posts comments and labels; nil disables publishing (the
	// console summary and artifact are still produced).
	Publisher    Publisher
	LabelPassed  string
	LabelFailed  string
	ArtifactPath string
	Logger       *slog.Logger
}

// Reporter handles all reporting side effects of a validation run.
type Reporter struct {
	publisher    Publisher
	labelPassed  string
	labelFailed  string
	artifactPath string
	log          *slog.Logger
}

// NewReporter creates a Reporter.
func NewReporter(cfg ReporterConfig) *Reporter {
	if cfg.LabelPassed == "" {
		cfg.LabelPassed = "validation-passed"
	}
	if cfg.LabelFailed == "" {
		cfg.LabelFailed = "validation-failed"
	}
	if cfg.ArtifactPath == "" {
		cfg.ArtifactPath = "validation-result.json"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reporter{
		publisher:    cfg.Publisher,
		labelPassed:  cfg.LabelPassed,
		labelFailed:  cfg.LabelFailed,
		artifactPath: cfg.ArtifactPath,
		log:          cfg.Logger,
	}
}

// Labels returns the label set for a pass/fail decision: exactly one of the
// two labels.
func (r *Reporter) Labels(isValid bool) []string {
	if isValid {
		return []string{r.labelPassed}
	}
	return []string{r.labelFailed}
}

// Publish posts the report comment and applies the decision label. Failures
// here are logged, not fatal: the validation outcome already stands.
func (r *Reporter) Publish(ctx context.Context, number int, report string, isValid bool) {
	if r.publisher == nil || number == 0 {
		return
	}
	if err := r.publisher.SetLabels(ctx, number, r.Labels(isValid)); err != nil {
		r.log.Error("failed to update PR labels", slog.String("error", err.Error()))
	}
	if err := r.publisher.CreateComment(ctx, number, report); err != nil {
		r.log.Error("failed to create PR comment", slog.String("error", err.Error()))
	}
}

// WriteArtifact persists the full validation result as a JSON document,
// written fresh per invocation.
func (r *Reporter) WriteArtifact(result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal validation result: %w", err)
	}
	if err := os.WriteFile(r.artifactPath, data, 0644); err != nil {
		return fmt.Errorf("write validation result: %w", err)
	}
	r.log.Info("validation result saved", slog.String("path", r.artifactPath))
	return nil
}
