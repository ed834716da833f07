// Package validation implements the pull request validation pipeline: an
// ordered list of checks with declared preconditions, run by a small driver
// that skips a check when a dependency failed and otherwise always executes
// it, accumulating every error it finds into a single result.
package validation

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Category tags an error at creation time so the reporter can pick
// remediation sections without matching on message text.
type Category string

const (
	CategoryTitleFormat     Category = "titleFormat"
	CategoryDescription     Category = "descriptionLength"
	CategoryFileCount       Category = "fileCount"
	CategoryFilePath        Category = "filePath"
	CategoryJSONFormat      Category = "jsonFormat"
	CategoryRegistrant      Category = "registrant"
	CategoryDomain          Category = "domain"
	CategoryReservedWords   Category = "reservedWords"
	CategorySLD             Category = "sld"
	CategoryNameservers     Category = "nameservers"
	CategoryAgreements      Category = "agreements"
	CategoryConsistency     Category = "consistency"
	CategoryRemoveOperation Category = "removeOperation"
	CategoryBranchName      Category = "branchName"
	CategoryInternal        Category = "internal"
)

// CheckError is one user-facing validation error.
type CheckError struct {
	Category Category
	Message  string
}

// MarshalJSON renders the error as its bare message so the result artifact
// keeps the plain string list downstream tooling expects.
func (e CheckError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Message)
}

func (e CheckError) Error() string {
	return e.Message
}

// Errorf builds a CheckError with a formatted message.
func Errorf(category Category, format string, args ...any) CheckError {
	return CheckError{Category: category, Message: fmt.Sprintf(format, args...)}
}

// Details records which stages passed and what the title resolved to.
type Details struct {
	TitleValid     bool   `json:"titleValid"`
	FileCountValid bool   `json:"fileCountValid"`
	FilePathValid  bool   `json:"filePathValid"`
	JSONValid      bool   `json:"jsonValid"`
	ActionType     string `json:"actionType,omitempty"`
	DomainName     string `json:"domainName,omitempty"`
	SLD            string `json:"sld,omitempty"`
	FileName       string `json:"fileName,omitempty"`
}

// Result is the outcome of one validation run.
type Result struct {
	IsValid  bool         `json:"isValid"`
	Errors   []CheckError `json:"errors"`
	Warnings []string     `json:"warnings"`
	Details  Details      `json:"details"`
	Report   string       `json:"report"`
}

// ErrorMessages returns the plain error strings, in check order.
func (r *Result) ErrorMessages() []string {
	messages := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		messages = append(messages, e.Message)
	}
	return messages
}

// HasCategory reports whether any accumulated error carries the category.
func (r *Result) HasCategory(category Category) bool {
	for _, e := range r.Errors {
		if e.Category == category {
			return true
		}
	}
	return false
}

// Manager accumulates a Result. Errors are append-only and IsValid flips to
// false on the first error, never back.
type Manager struct {
	result Result
	log    *slog.Logger
}

// NewManager creates a Manager with an empty, valid result.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		result: Result{
			IsValid:  true,
			Errors:   []CheckError{},
			Warnings: []string{},
		},
		log: log,
	}
}

// AddError appends an error and marks the result invalid.
func (m *Manager) AddError(err CheckError) {
	if err.Message == "" {
		m.log.Warn("attempted to add empty validation error")
		return
	}
	m.result.Errors = append(m.result.Errors, err)
	m.result.IsValid = false
}

// Details exposes the mutable detail flags for the checks to fill in.
func (m *Manager) Details() *Details {
	return &m.result.Details
}

// IsValid reports whether no error has been recorded yet.
func (m *Manager) IsValid() bool {
	return m.result.IsValid
}

// Result returns the accumulated result.
func (m *Manager) Result() *Result {
	return &m.result
}
