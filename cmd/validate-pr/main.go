// Command validate-pr runs the full pull request validation pipeline for a
// domain registry PR, posts the resulting report back to the PR, applies the
// outcome label and writes the machine-readable result artifact. It exits
// non-zero when validation fails so the workflow gate blocks the merge.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/publicfreesuffix/registry-automation/internal/config"
	"github.com/publicfreesuffix/registry-automation/internal/github"
	"github.com/publicfreesuffix/registry-automation/internal/logger"
	"github.com/publicfreesuffix/registry-automation/internal/pr"
	"github.com/publicfreesuffix/registry-automation/internal/registry"
	"github.com/publicfreesuffix/registry-automation/internal/report"
	"github.com/publicfreesuffix/registry-automation/internal/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "validate-pr: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	})
	ctx := logger.SetRunID(context.Background(), logger.NewRunID())
	log = logger.WithRunID(ctx, log)

	prCtx, scm, err := loadPRContext(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.Info("validating pull request",
		slog.Int("number", prCtx.Number),
		slog.String("title", prCtx.Title),
		slog.Int("files", len(prCtx.Files)))

	var scmIface validation.SourceControl
	var pubIface report.Publisher
	if scm != nil {
		scmIface = scm
		pubIface = scm
	}

	engine := validation.NewEngine(validation.EngineConfig{
		Reserved: registry.NewReservedWordsSource(registry.ReservedWordsConfig{
			SourcePath: cfg.Sources.ReservedWordsPath,
			CacheDir:   cfg.Sources.CacheDir,
			TTL:        cfg.Sources.CacheTTL,
			Logger:     log,
		}),
		SLDs: registry.NewSLDRegistry(registry.SLDRegistryConfig{
			SourcePath: cfg.Sources.SLDListPath,
			CacheDir:   cfg.Sources.CacheDir,
			TTL:        cfg.Sources.CacheTTL,
			Logger:     log,
		}),
		SourceControl: scmIface,
		Logger:        log,
	})

	result := engine.Validate(ctx, prCtx)
	result.Report = report.BuildReport(result, prCtx.Author)

	reporter := report.NewReporter(report.ReporterConfig{
		Publisher:   pubIface,
		LabelPassed: cfg.GitHub.LabelPassed,
		LabelFailed: cfg.GitHub.LabelFailed,
		Logger:      log,
	})
	if err := reporter.WriteArtifact(result); err != nil {
		log.Error("failed to write result artifact", slog.String("error", err.Error()))
	}
	if prCtx.Number > 0 {
		reporter.Publish(ctx, prCtx.Number, result.Report, result.IsValid)
	}

	fmt.Println(result.Report)

	if !result.IsValid {
		log.Warn("validation failed", slog.Any("errors", result.ErrorMessages()))
		os.Exit(1)
	}
	log.Info("validation passed")
	return nil
}

// loadPRContext prefers the Actions event payload and falls back to plain
// PR_* environment variables for local runs. The GitHub client is optional
// in the env-var path, where the file list arrives inline.
func loadPRContext(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pr.Context, *github.Client, error) {
	var client *github.Client
	if cfg.GitHub.HasCredentials() {
		c, err := github.NewClient(ctx, cfg.GitHub, log)
		if err != nil {
			return nil, nil, err
		}
		client = c
	}

	if eventPath := os.Getenv("GITHUB_EVENT_PATH"); eventPath != "" && client != nil {
		prCtx, err := pr.FromEvent(ctx, eventPath, client)
		if err != nil {
			return nil, nil, err
		}
		return prCtx, client, nil
	}

	prCtx, err := pr.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	return prCtx, client, nil
}
