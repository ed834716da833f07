// Package dnssync applies an approved pull request's NS changes to the
// authoritative DNS server. It re-derives the operation from the merged PR
// title, validates the record payload, requires the target zone to already
// exist, and then replaces or deletes the NS RRset for the domain.
package dnssync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/publicfreesuffix/registry-automation/internal/config"
	"github.com/publicfreesuffix/registry-automation/internal/pdns"
)

// Operations the sync engine executes.
const (
	OpRegistration = "registration"
	OpUpdate       = "update"
	OpAdd          = "add"
	OpRemove       = "remove"
	OpDelete       = "delete"
	OpAuto         = "auto"
)

// RecordData is the payload a sync operation acts on. For deletions only
// Domain and SLD are required.
type RecordData struct {
	Domain      string   `json:"domain" validate:"required"`
	SLD         string   `json:"sld" validate:"required"`
	Nameservers []string `json:"nameservers,omitempty"`
}

// Result is the outcome artifact of one sync run.
type Result struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message,omitempty"`
	Error       string   `json:"error,omitempty"`
	Operation   string   `json:"operation,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	Nameservers []string `json:"nameservers,omitempty"`
	TriggerType string   `json:"triggerType,omitempty"`
	TriggeredBy string   `json:"triggeredBy,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

// DNSProvider is the slice of the DNS admin API the engine needs.
type DNSProvider interface {
	ZoneExists(ctx context.Context, zoneID string) (bool, error)
	ReplaceNSRecords(ctx context.Context, zoneID, name string, nameservers []string) error
	DeleteNSRecords(ctx context.Context, zoneID, name string) error
}

// RecordLister is optionally implemented by providers that can enumerate a
// domain's current RRsets. Manual syncs use it to log the state found before
// touching anything.
type RecordLister interface {
	DomainRecords(ctx context.Context, zoneID, domain string) ([]pdns.RRSet, error)
}

// Engine executes DNS sync operations.
type Engine struct {
	dns      DNSProvider
	log      *slog.Logger
	validate *validator.Validate
}

// NewEngine creates an Engine.
func NewEngine(dns DNSProvider, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		dns:      dns,
		log:      log,
		validate: validator.New(),
	}
}

// ParseTitle re-derives (operation, domain, sld) from a merged PR title
// using the PR title pattern. The operation is lowercased.
func ParseTitle(title string) (operation, domain, sld string, err error) {
	match := config.TitleRegex.FindStringSubmatch(title)
	if match == nil {
		return "", "", "", fmt.Errorf(
			`Invalid PR title format: %s. Expected format: "Operation: domain.sld"`, title)
	}
	return strings.ToLower(match[1]), match[2], match[3], nil
}

// ValidateRecord checks that the payload carries what the operation needs:
// domain and sld always, a non-empty nameservers array for everything except
// deletions.
func (e *Engine) ValidateRecord(data *RecordData, operation string) error {
	if err := e.validate.Struct(data); err != nil {
		var missing []string
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				missing = append(missing, strings.ToLower(fe.Field()))
			}
		}
		if operation == OpDelete || operation == OpRemove {
			return fmt.Errorf("Missing required fields in whois data for delete operation: %s",
				strings.Join(missing, ", "))
		}
		return fmt.Errorf("Missing required fields in whois data: %s", strings.Join(missing, ", "))
	}

	if operation == OpDelete || operation == OpRemove {
		return nil
	}
	if len(data.Nameservers) == 0 {
		return fmt.Errorf("Nameservers must be a non-empty array")
	}
	return nil
}

// DetectOperation infers the operation for manual syncs without an explicit
// one: a non-empty nameservers array means add/update, otherwise delete.
func DetectOperation(data *RecordData) string {
	if len(data.Nameservers) > 0 {
		return OpAdd
	}
	return OpDelete
}

// Execute runs one sync operation against the DNS provider. The zone keyed
// by the suffix must already exist; it is never auto-provisioned.
func (e *Engine) Execute(ctx context.Context, operation string, data *RecordData) (*Result, error) {
	zoneID := data.SLD
	fqdn := data.Domain + "." + zoneID

	e.log.Info("executing dns operation",
		slog.String("operation", operation), slog.String("domain", fqdn))

	exists, err := e.dns.ZoneExists(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("check zone %s: %w", zoneID, err)
	}
	if !exists {
		return nil, fmt.Errorf("Zone %s does not exist in PowerDNS Admin", zoneID)
	}

	switch operation {
	case OpRegistration, OpUpdate, OpAdd:
		if err := e.dns.ReplaceNSRecords(ctx, zoneID, data.Domain, data.Nameservers); err != nil {
			return nil, err
		}
		verb := "updated"
		if operation == OpRegistration {
			verb = "registered"
		}
		return &Result{
			Success:     true,
			Message:     fmt.Sprintf("Successfully %s NS records for %s", verb, fqdn),
			Operation:   operation,
			Domain:      fqdn,
			Nameservers: data.Nameservers,
		}, nil

	case OpRemove, OpDelete:
		if err := e.dns.DeleteNSRecords(ctx, zoneID, data.Domain); err != nil {
			return nil, err
		}
		return &Result{
			Success:   true,
			Message:   fmt.Sprintf("Successfully removed NS records for %s", fqdn),
			Operation: OpRemove,
			Domain:    fqdn,
		}, nil

	default:
		return nil, fmt.Errorf("Unsupported operation: %s", operation)
	}
}

// HandlePRMerge syncs DNS for a merged PR. Errors propagate so the job exits
// non-zero after recording an error artifact.
func (e *Engine) HandlePRMerge(ctx context.Context, title string, data *RecordData) (*Result, error) {
	operation, _, _, err := ParseTitle(title)
	if err != nil {
		return nil, err
	}
	if err := e.ValidateRecord(data, operation); err != nil {
		return nil, err
	}
	result, err := e.Execute(ctx, operation, data)
	if err != nil {
		return nil, err
	}
	e.log.Info("dns operation completed", slog.String("message", result.Message))
	return result, nil
}

// ManualOptions configures an operator-triggered sync.
type ManualOptions struct {
	// Operation is one of the sync operations or "auto" to infer it from
	// the payload.
	Operation string
	// ForceSync downgrades record-validation failures to warnings and
	// proceeds with best-effort data.
	ForceSync   bool
	TriggeredBy string
}

// HandleManualSync runs an operator-triggered sync. Unlike the PR-merge
// path, failures come back as an unsuccessful Result rather than an error,
// so batch tooling can record outcomes without halting.
func (e *Engine) HandleManualSync(ctx context.Context, data *RecordData, opts ManualOptions) *Result {
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = "unknown"
	}
	operation := opts.Operation
	if operation == "" || operation == OpAuto {
		operation = DetectOperation(data)
		e.log.Info("auto-detected operation type", slog.String("operation", operation))
	}

	var warnings []string
	if err := e.ValidateRecord(data, operation); err != nil {
		if !opts.ForceSync {
			return e.manualFailure(err, opts)
		}
		e.log.Warn("whois data validation failed, continuing due to force sync",
			slog.String("error", err.Error()))
		warnings = append(warnings, err.Error())
	}

	if lister, ok := e.dns.(RecordLister); ok {
		if records, err := lister.DomainRecords(ctx, data.SLD, data.Domain); err == nil {
			e.log.Info("current dns state",
				slog.String("domain", data.Domain+"."+data.SLD),
				slog.Int("rrsets", len(records)))
		}
	}

	result, err := e.Execute(ctx, operation, data)
	if err != nil {
		return e.manualFailure(err, opts)
	}
	result.TriggerType = "manual"
	result.TriggeredBy = opts.TriggeredBy
	result.Warnings = warnings
	e.log.Info("manual dns operation completed", slog.String("message", result.Message))
	return result
}

func (e *Engine) manualFailure(err error, opts ManualOptions) *Result {
	e.log.Error("manual dns operation failed", slog.String("error", err.Error()))
	return &Result{
		Success:     false,
		Error:       err.Error(),
		TriggerType: "manual",
		TriggeredBy: opts.TriggeredBy,
	}
}

// ReadWhoisFile loads a whois record payload from the workspace.
func ReadWhoisFile(path string) (*RecordData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("Whois file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read whois file %s: %w", path, err)
	}
	var data RecordData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("Invalid JSON format in whois file: %s", path)
	}
	return &data, nil
}

// RecordFromFilename derives the record payload for a removed whois file,
// whose content is no longer available: "whois/<domain>.<sld>.json" splits
// into the domain label and the remaining suffix.
func RecordFromFilename(filename string) (*RecordData, error) {
	base := strings.TrimSuffix(strings.TrimPrefix(filename, "whois/"), ".json")
	dot := strings.Index(base, ".")
	if dot <= 0 || dot == len(base)-1 {
		return nil, fmt.Errorf("Invalid domain format in filename: %s", base)
	}
	return &RecordData{Domain: base[:dot], SLD: base[dot+1:]}, nil
}

// WriteResult persists the sync result artifact, stamping the completion
// time.
func WriteResult(result *Result, path string) error {
	result.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sync result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write sync result: %w", err)
	}
	return nil
}
