package report

import (
	"strings"
	"testing"

	"github.com/publicfreesuffix/registry-automation/internal/validation"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain-user", "plain-user"},
		{"<script>alert(1)</script>user", "user"},
		{"<b>bold</b> name", "bold name"},
		{"a < b & c", "a < b & c"},
	}
	for _, tt := range tests {
		if got := stripHTML(tt.in); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildSuccessReport(t *testing.T) {
	result := &validation.Result{
		IsValid: true,
		Details: validation.Details{
			TitleValid:     true,
			FileCountValid: true,
			FilePathValid:  true,
			JSONValid:      true,
			ActionType:     "Registration",
			DomainName:     "example",
			SLD:            "no.kg",
			FileName:       "whois/example.no.kg.json",
		},
	}

	report := BuildReport(result, "someone")
	for _, want := range []string{
		"✅ PR Validation Passed",
		"@someone",
		"**Action type:** Registration",
		"**Domain:** example.no.kg",
		"**File:** whois/example.no.kg.json",
		"ARAE Instructions",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("success report missing %q:\n%s", want, report)
		}
	}
}

func TestBuildFailureReport(t *testing.T) {
	result := &validation.Result{
		Errors: []validation.CheckError{
			{Category: validation.CategoryTitleFormat, Message: "PR title cannot be empty"},
			{Category: validation.CategoryFileCount, Message: "PR must contain at least one file change"},
		},
	}

	report := BuildReport(result, "someone")
	for _, want := range []string{
		"❌ PR Validation Failed",
		"@someone",
		"1. ❌ PR title cannot be empty",
		"2. ❌ PR must contain at least one file change",
		"**Solutions:**",
		"Fix Title Format",
		"Adjust File Count",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("failure report missing %q:\n%s", want, report)
		}
	}

	// Only the sections matching the error categories appear.
	for _, unwanted := range []string{"Fix File Path", "Fix Remove Operation Issues", "Fix Branch Name"} {
		if strings.Contains(report, unwanted) {
			t.Errorf("failure report contains unrelated section %q", unwanted)
		}
	}
}

func TestBuildFailureReportStripsAuthorMarkup(t *testing.T) {
	result := &validation.Result{
		Errors: []validation.CheckError{
			{Category: validation.CategoryInternal, Message: "Internal validation error: boom"},
		},
	}

	report := BuildReport(result, `<img src=x onerror=alert(1)>evil`)
	if strings.Contains(report, "<img") {
		t.Errorf("author markup leaked into report:\n%s", report)
	}
	if !strings.Contains(report, "@evil") {
		t.Errorf("expected stripped author mention:\n%s", report)
	}
}

func TestBuildFailureReportWithoutAuthor(t *testing.T) {
	result := &validation.Result{
		Errors: []validation.CheckError{
			{Category: validation.CategoryBranchName, Message: "Could not determine PR branch name."},
		},
	}

	report := BuildReport(result, "")
	if strings.Contains(report, "@") {
		t.Errorf("unexpected mention in report:\n%s", report)
	}
	if !strings.Contains(report, "Fix Branch Name") {
		t.Errorf("expected branch name section:\n%s", report)
	}
}
