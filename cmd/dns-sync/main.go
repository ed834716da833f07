// Command dns-sync propagates an approved registry change to the
// authoritative DNS server. It runs in two modes: PR-merge mode, driven by
// the merged pull request's title and file list, and manual mode, driven by
// MANUAL_* environment variables for operator-triggered repairs. Both modes
// write a dns-sync-result.json artifact.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/publicfreesuffix/registry-automation/internal/config"
	"github.com/publicfreesuffix/registry-automation/internal/dnssync"
	"github.com/publicfreesuffix/registry-automation/internal/logger"
	"github.com/publicfreesuffix/registry-automation/internal/pdns"
	"github.com/publicfreesuffix/registry-automation/internal/pr"
)

const resultPath = "dns-sync-result.json"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dns-sync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidatePDNS(); err != nil {
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

	client, err := pdns.NewClient(cfg.PDNS, log)
	if err != nil {
		return err
	}
	engine := dnssync.NewEngine(client, log)

	if os.Getenv("MANUAL_DOMAIN") != "" || os.Getenv("MANUAL_WHOIS_FILE") != "" {
		return runManual(ctx, engine, log)
	}
	return runPRMerge(ctx, engine, log)
}

// runPRMerge executes the sync for a merged registration PR. The whois
// payload comes from the workspace for added/modified files and is derived
// from the filename for removals.
func runPRMerge(ctx context.Context, engine *dnssync.Engine, log *slog.Logger) error {
	title := os.Getenv("PR_TITLE")
	if title == "" {
		return fmt.Errorf("PR_TITLE environment variable is required")
	}
	files, err := pr.ParseFiles(os.Getenv("PR_FILES"))
	if err != nil {
		return err
	}
	file, err := whoisFileChange(files)
	if err != nil {
		return writeFailure(err, log, "")
	}

	var data *dnssync.RecordData
	if file.Status == pr.StatusRemoved {
		data, err = dnssync.RecordFromFilename(file.Filename)
	} else {
		data, err = dnssync.ReadWhoisFile(file.Filename)
	}
	if err != nil {
		return writeFailure(err, log, "")
	}

	result, err := engine.HandlePRMerge(ctx, title, data)
	if err != nil {
		return writeFailure(err, log, "")
	}
	if err := dnssync.WriteResult(result, resultPath); err != nil {
		log.Error("failed to write sync result", slog.String("error", err.Error()))
	}
	return nil
}

// runManual executes an operator-triggered sync. A failed sync still exits
// non-zero, but the failure details land in the artifact, not just the log.
func runManual(ctx context.Context, engine *dnssync.Engine, log *slog.Logger) error {
	whoisFile := os.Getenv("MANUAL_WHOIS_FILE")
	if whoisFile == "" {
		domain := os.Getenv("MANUAL_DOMAIN")
		whoisFile = fmt.Sprintf("whois/%s.json", domain)
	}

	data, err := dnssync.ReadWhoisFile(whoisFile)
	if err != nil {
		// A missing file is still a valid deletion request when the
		// domain is named explicitly.
		if os.Getenv("MANUAL_DOMAIN") != "" {
			data, err = dnssync.RecordFromFilename(
				fmt.Sprintf("whois/%s.json", os.Getenv("MANUAL_DOMAIN")))
		}
		if err != nil {
			return writeFailure(err, log, "manual")
		}
	}

	result := engine.HandleManualSync(ctx, data, dnssync.ManualOptions{
		Operation:   os.Getenv("MANUAL_OPERATION"),
		ForceSync:   os.Getenv("FORCE_SYNC") == "true",
		TriggeredBy: os.Getenv("GITHUB_ACTOR"),
	})
	if err := dnssync.WriteResult(result, resultPath); err != nil {
		log.Error("failed to write sync result", slog.String("error", err.Error()))
	}
	if !result.Success {
		return fmt.Errorf("manual sync failed: %s", result.Error)
	}
	return nil
}

// whoisFileChange picks the single whois file out of the merged PR's file
// list.
func whoisFileChange(files []pr.FileChange) (*pr.FileChange, error) {
	for i := range files {
		if config.FilePathRegex.MatchString(files[i].Filename) {
			return &files[i], nil
		}
	}
	return nil, fmt.Errorf("no whois file found in PR changes")
}

// writeFailure records a failed run in the artifact and propagates the
// error so the job exits non-zero.
func writeFailure(cause error, log *slog.Logger, triggerType string) error {
	result := &dnssync.Result{
		Success:     false,
		Error:       cause.Error(),
		TriggerType: triggerType,
	}
	if err := dnssync.WriteResult(result, resultPath); err != nil {
		log.Error("failed to write sync result", slog.String("error", err.Error()))
	}
	return cause
}
