package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/publicfreesuffix/registry-automation/internal/config"
	"github.com/publicfreesuffix/registry-automation/internal/pr"
	"github.com/publicfreesuffix/registry-automation/internal/registry"
	"github.com/publicfreesuffix/registry-automation/internal/whois"
)

// Action types a PR title may declare.
const (
	ActionRegistration = "Registration"
	ActionUpdate       = "Update"
	ActionRemove       = "Remove"
)

// errNoSourceControl is reported when a step needs repository access but the
// engine was built without a source-control client, as happens when only
// environment-variable PR data is available.
var errNoSourceControl = errors.New("no source control client configured")

// SourceControl is the slice of the source-control API the engine needs.
type SourceControl interface {
	GetFileContent(ctx context.Context, path, ref string) (string, error)
	FileExists(ctx context.Context, path, ref string) (bool, error)
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Reserved      *registry.ReservedWordsSource
	SLDs          *registry.SLDRegistry
	SourceControl SourceControl
	// BaseRef is the branch removals are checked against (default "main").
	BaseRef string
	Logger  *slog.Logger
}

// Engine runs the validation pipeline. It is stateless between invocations:
// one pr.Context in, one Result out.
type Engine struct {
	reserved *registry.ReservedWordsSource
	slds     *registry.SLDRegistry
	scm      SourceControl
	baseRef  string
	log      *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.BaseRef == "" {
		cfg.BaseRef = "main"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		reserved: cfg.Reserved,
		slds:     cfg.SLDs,
		scm:      cfg.SourceControl,
		baseRef:  cfg.BaseRef,
		log:      cfg.Logger,
	}
}

// runState carries the values that flow between pipeline steps.
type runState struct {
	pr     *pr.Context
	file   *pr.FileChange
	record *whois.Record
}

// step is one pipeline stage. pre declares the preconditions: when it
// returns false the step is skipped silently, without a duplicate error.
type step struct {
	name string
	pre  func(s *runState, d *Details) bool
	run  func(ctx context.Context, s *runState, m *Manager)
}

// Validate runs the full pipeline. It never returns an error: unexpected
// internal faults are converted into a single "Internal validation error"
// entry so the run still produces a reportable result.
func (e *Engine) Validate(ctx context.Context, p *pr.Context) (result *Result) {
	m := NewManager(e.log)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("validation pipeline panicked", slog.Any("panic", r))
			m.AddError(Errorf(CategoryInternal, "Internal validation error: %v", r))
			result = m.Result()
		}
	}()

	state := &runState{pr: p}
	for _, st := range e.steps() {
		if st.pre != nil && !st.pre(state, m.Details()) {
			e.log.Debug("skipping check, precondition not met", slog.String("check", st.name))
			continue
		}
		st.run(ctx, state, m)
	}
	return m.Result()
}

func (e *Engine) steps() []step {
	return []step{
		{name: "title", run: e.runTitleCheck},
		{name: "description", run: e.runDescriptionCheck},
		{name: "file-count", run: e.runFileCountCheck},
		{
			name: "file-path",
			pre:  func(s *runState, d *Details) bool { return d.FileCountValid },
			run:  e.runFilePathCheck,
		},
		{
			name: "new-registration-gate",
			pre: func(s *runState, d *Details) bool {
				return d.TitleValid && d.FilePathValid && s.file != nil &&
					s.file.Status == pr.StatusAdded
			},
			run: e.runNewRegistrationGate,
		},
		{
			name: "action-content",
			pre: func(s *runState, d *Details) bool {
				return d.TitleValid && d.FilePathValid && s.file != nil
			},
			run: e.runActionCheck,
		},
		{
			name: "title-file-consistency",
			pre: func(s *runState, d *Details) bool {
				return d.TitleValid && d.FilePathValid && s.file != nil
			},
			run: e.runConsistencyCheck,
		},
	}
}

func (e *Engine) runTitleCheck(ctx context.Context, s *runState, m *Manager) {
	title := s.pr.Title
	if title == "" {
		m.AddError(Errorf(CategoryTitleFormat, "PR title cannot be empty"))
		return
	}
	match := config.TitleRegex.FindStringSubmatch(title)
	if match == nil {
		m.AddError(Errorf(CategoryTitleFormat,
			`PR title format is incorrect. Correct format should be: "Registration/Update/Remove: {domain-name}.{sld}". Current title: %q`,
			title))
		return
	}
	actionType, domainName, sld := match[1], match[2], match[3]
	if err := e.checkSuffixSupported(sld); err != nil {
		m.AddError(*err)
		return
	}

	d := m.Details()
	d.TitleValid = true
	d.ActionType = actionType
	d.DomainName = domainName
	d.SLD = sld
}

func (e *Engine) runDescriptionCheck(ctx context.Context, s *runState, m *Manager) {
	for _, err := range checkDescription(s.pr.Body) {
		m.AddError(err)
	}
}

func (e *Engine) runFileCountCheck(ctx context.Context, s *runState, m *Manager) {
	files := s.pr.Files
	if len(files) == 0 {
		m.AddError(Errorf(CategoryFileCount, "PR must contain at least one file change"))
		return
	}
	if len(files) > config.MaxFileCount {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Filename)
		}
		m.AddError(Errorf(CategoryFileCount,
			"PR can only contain %d file change, currently contains %d files: %s",
			config.MaxFileCount, len(files), strings.Join(names, ", ")))
		return
	}
	m.Details().FileCountValid = true
}

func (e *Engine) runFilePathCheck(ctx context.Context, s *runState, m *Manager) {
	file := &s.pr.Files[0]
	s.file = file
	m.Details().FileName = file.Filename

	if !config.FilePathRegex.MatchString(file.Filename) {
		m.AddError(Errorf(CategoryFilePath,
			"File path is incorrect. File must be located in the whois/ directory and be a .json file. Current file: %q",
			file.Filename))
		return
	}
	m.Details().FilePathValid = true
}

// runNewRegistrationGate blocks newly added files when the target suffix is
// supported but not open for registrations. Updates and removals of existing
// domains under such a suffix remain allowed.
func (e *Engine) runNewRegistrationGate(ctx context.Context, s *runState, m *Manager) {
	sld := m.Details().SLD
	status, _, err := e.slds.Status(sld)
	if err != nil {
		m.AddError(Errorf(CategorySLD, "Unable to validate domain suffix due to SLD list unavailable"))
		return
	}
	if status != registry.StatusLive {
		m.AddError(Errorf(CategorySLD,
			"The SLD %q is currently in status %q and does not allow new domain registrations.",
			sld, status))
	}
}

func (e *Engine) runActionCheck(ctx context.Context, s *runState, m *Manager) {
	if m.Details().ActionType == ActionRemove {
		e.runRemoveCheck(ctx, s, m)
		return
	}
	e.runContentCheck(ctx, s, m)
}

func (e *Engine) runRemoveCheck(ctx context.Context, s *runState, m *Manager) {
	file := s.file
	if file.Status != pr.StatusRemoved {
		m.AddError(Errorf(CategoryRemoveOperation,
			"For Remove operation, file status must be 'removed', but got '%s'", file.Status))
		return
	}

	if e.scm == nil {
		m.AddError(Errorf(CategoryRemoveOperation, "Error validating remove operation: %v", errNoSourceControl))
		return
	}
	exists, err := e.scm.FileExists(ctx, file.Filename, e.baseRef)
	if err != nil {
		m.AddError(Errorf(CategoryRemoveOperation, "Error validating remove operation: %v", err))
		return
	}
	if !exists {
		m.AddError(Errorf(CategoryRemoveOperation,
			"Cannot remove file '%s' as it does not exist in the repository", file.Filename))
		return
	}

	d := m.Details()
	expected := fmt.Sprintf("whois/%s.%s.json", d.DomainName, d.SLD)
	if file.Filename != expected {
		m.AddError(Errorf(CategoryRemoveOperation,
			"File name '%s' does not match domain in title '%s.%s'", file.Filename, d.DomainName, d.SLD))
		return
	}

	d.JSONValid = true
}

func (e *Engine) runContentCheck(ctx context.Context, s *runState, m *Manager) {
	file := s.file
	if file.Status != pr.StatusAdded && file.Status != pr.StatusModified {
		m.AddError(Errorf(CategoryJSONFormat,
			"For %s operation, file status must be 'added' or 'modified', but got '%s'",
			m.Details().ActionType, file.Status))
		return
	}

	content, fetchErr := e.fileContent(ctx, file, s.pr.HeadSHA)
	if fetchErr != nil {
		m.AddError(Errorf(CategoryJSONFormat,
			"Error occurred while validating JSON content: %v", fetchErr))
		return
	}
	if content == "" {
		m.AddError(Errorf(CategoryJSONFormat, "Unable to get file content"))
		return
	}

	doc, err := whois.Decode(content)
	if err != nil {
		m.AddError(Errorf(CategoryJSONFormat, "Invalid JSON format: %v", err))
		return
	}
	obj, schemaErr := whois.CheckSchema(doc)
	if schemaErr != "" {
		m.AddError(CheckError{Category: CategoryJSONFormat, Message: schemaErr})
		return
	}
	if err := e.checkFields(obj); err != nil {
		m.AddError(*err)
		return
	}

	record := whois.Assemble(obj)
	s.record = record
	m.Details().JSONValid = true

	if err := checkBranchName(s.pr.BranchName, record); err != nil {
		m.AddError(*err)
	}
}

// checkFields runs the per-field validators in a fixed order and wraps the
// first failure with the field name.
func (e *Engine) checkFields(obj map[string]any) *CheckError {
	fields := []struct {
		name     string
		category Category
		validate func(any) whois.FieldResult
	}{
		{"registrant", CategoryRegistrant, whois.ValidateRegistrant},
		{"domain", CategoryDomain, e.validateDomainField},
		{"sld", CategorySLD, e.validateSLDField},
		{"nameservers", CategoryNameservers, whois.ValidateNameservers},
		{"agree_to_agreements", CategoryAgreements, whois.ValidateAgreements},
	}
	for _, field := range fields {
		if result := field.validate(obj[field.name]); !result.IsValid {
			category := field.category
			if field.name == "domain" && strings.Contains(result.Error, "reserved word") {
				category = CategoryReservedWords
			}
			err := Errorf(category, "Invalid %s: %s", field.name, result.Error)
			return &err
		}
	}
	return nil
}

func (e *Engine) validateDomainField(value any) whois.FieldResult {
	if err := checkDomainFormat(value); err != nil {
		return whois.FieldResult{Error: err.Message}
	}
	domain := value.(string)

	reserved, word, ok := e.reserved.IsReserved(domain)
	if !ok {
		// Fail closed: with no deny list at all a domain cannot be vetted.
		return whois.FieldResult{Error: "Unable to validate domain against reserved words"}
	}
	if reserved {
		return whois.FieldResult{Error: fmt.Sprintf(
			"Domain %q conflicts with reserved word %q and cannot be used. Reserved words are used to protect system functions and avoid confusion.",
			domain, word)}
	}
	return whois.FieldResult{IsValid: true}
}

func (e *Engine) validateSLDField(value any) whois.FieldResult {
	sld, ok := value.(string)
	if !ok || sld == "" {
		return whois.FieldResult{Error: "sld field is required and must be a string"}
	}
	if err := e.checkSuffixSupported(sld); err != nil {
		return whois.FieldResult{Error: err.Message}
	}
	return whois.FieldResult{IsValid: true}
}

func (e *Engine) runConsistencyCheck(ctx context.Context, s *runState, m *Manager) {
	d := m.Details()
	if err := checkTitleFileConsistency(d.DomainName, d.SLD, s.file.Filename); err != nil {
		m.AddError(*err)
	}
}

func (e *Engine) fileContent(ctx context.Context, file *pr.FileChange, headSHA string) (string, error) {
	if file.Status == pr.StatusAdded {
		content, _ := pr.ContentFromPatch(file.Patch)
		return content, nil
	}
	if e.scm == nil {
		return "", errNoSourceControl
	}
	return e.scm.GetFileContent(ctx, file.Filename, headSHA)
}

// checkSuffixSupported verifies the suffix is present in the SLD registry,
// any status.
func (e *Engine) checkSuffixSupported(suffix string) *CheckError {
	suffixes, err := e.slds.Suffixes()
	if err != nil {
		var msg string
		if errors.Is(err, registry.ErrRegistryUnavailable) {
			msg = "Unable to validate domain suffix due to SLD list unavailable"
		} else {
			msg = fmt.Sprintf("Failed to validate domain suffix: %v", err)
		}
		checkErr := CheckError{Category: CategorySLD, Message: msg}
		return &checkErr
	}
	for _, s := range suffixes {
		if s == suffix {
			return nil
		}
	}
	checkErr := Errorf(CategorySLD,
		"Domain suffix %q is not supported. Supported suffixes are: %s",
		suffix, strings.Join(suffixes, ", "))
	return &checkErr
}
