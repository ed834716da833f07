package validation

import (
	"strings"
	"testing"

	"github.com/publicfreesuffix/registry-automation/internal/whois"
)

// validBody returns a PR description that satisfies every structural rule:
// all three template sections, exactly one operation type selected and
// eleven checked boxes overall.
func validBody(operation string) string {
	ops := map[string]string{"Registration": " ", "Update": " ", "Remove": " "}
	ops[operation] = "x"
	var b strings.Builder
	b.WriteString("## Operation Type\n")
	b.WriteString("- [" + ops["Registration"] + "] Registration, Register a new domain name.\n")
	b.WriteString("- [" + ops["Update"] + "] Update, Update NS information or registrant email for an existing domain.\n")
	b.WriteString("- [" + ops["Remove"] + "] Remove, Cancel my domain name.\n")
	b.WriteString("\n## Domain\n- [x] example.no.kg\n")
	b.WriteString("\n## Confirmation Items\n")
	for i := 0; i < 9; i++ {
		b.WriteString("- [x] I confirm requirement item.\n")
	}
	return b.String()
}

func TestCheckDescription(t *testing.T) {
	t.Run("valid body passes", func(t *testing.T) {
		if errs := checkDescription(validBody("Registration")); len(errs) != 0 {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		errs := checkDescription("")
		if len(errs) != 1 || errs[0].Message != "PR description cannot be empty" {
			t.Errorf("got %v", errs)
		}
	})

	t.Run("missing sections itemized", func(t *testing.T) {
		errs := checkDescription("just some text")
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Message
		}
		joined := strings.Join(msgs, "\n")
		for _, want := range []string{
			"Operation Type section is missing or incomplete. Please select one operation type.",
			"Domain section is missing or incomplete. Please confirm your domain name.",
			"Confirmation Items section is missing or incomplete. All 9 confirmation items must be present.",
		} {
			if !strings.Contains(joined, want) {
				t.Errorf("missing error %q in %v", want, msgs)
			}
		}
	})

	t.Run("no operation selected", func(t *testing.T) {
		body := strings.Replace(validBody("Registration"),
			"- [x] Registration", "- [ ] Registration", 1)
		errs := checkDescription(body)
		found := false
		for _, e := range errs {
			if e.Message == "Please select one operation type by checking the corresponding checkbox." {
				found = true
			}
		}
		if !found {
			t.Errorf("expected no-selection error, got %v", errs)
		}
	})

	t.Run("multiple operations selected", func(t *testing.T) {
		body := strings.Replace(validBody("Registration"),
			"- [ ] Update", "- [x] Update", 1)
		errs := checkDescription(body)
		found := false
		for _, e := range errs {
			if e.Message == "Please select only one operation type. Multiple operation types are selected." {
				found = true
			}
		}
		if !found {
			t.Errorf("expected multiple-selection error, got %v", errs)
		}
	})

	t.Run("insufficient checked items", func(t *testing.T) {
		body := strings.Replace(validBody("Registration"),
			"- [x] I confirm requirement item.", "- [ ] I confirm requirement item.", 2)
		errs := checkDescription(body)
		found := false
		for _, e := range errs {
			if e.Message == "Please check all confirmation items. Only 9 of 11 required items are checked." {
				found = true
			}
		}
		if !found {
			t.Errorf("expected checked-count error, got %v", errs)
		}
	})
}

func TestCheckDomainFormat(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr string
	}{
		{"valid", "example", ""},
		{"valid punycode", "xn--fsq270a", ""},
		{"missing", nil, "domain field is required and must be a string"},
		{"too short", "ab", "domain must be at least 3 characters. Current length: 2"},
		{"invalid characters", "ex_ample",
			`domain must be alphanumeric with hyphens or xn-- format punycode. Current value: "ex_ample"`},
		{"leading hyphen", "-abc",
			`domain cannot start or end with a hyphen. Current value: "-abc"`},
		{"trailing hyphen", "abc-",
			`domain cannot start or end with a hyphen. Current value: "abc-"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDomainFormat(tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err.Message)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Message != tt.wantErr {
				t.Errorf("got %q, want %q", err.Message, tt.wantErr)
			}
		})
	}
}

func TestCheckTitleFileConsistency(t *testing.T) {
	if err := checkTitleFileConsistency("example", "no.kg", "whois/example.no.kg.json"); err != nil {
		t.Errorf("unexpected error: %v", err.Message)
	}

	err := checkTitleFileConsistency("example", "no.kg", "whois/other.no.kg.json")
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	want := `Domain "example.no.kg" in PR title does not match domain "other.no.kg" in filename`
	if err.Message != want {
		t.Errorf("got %q, want %q", err.Message, want)
	}

	if err := checkTitleFileConsistency("example", "no.kg", "README.md"); err == nil ||
		err.Message != "Unable to extract domain information from filename" {
		t.Errorf("got %v", err)
	}
}

func TestCheckBranchName(t *testing.T) {
	record := &whois.Record{Domain: "example", SLD: "no.kg"}

	if err := checkBranchName("example.no.kg-request-42", record); err != nil {
		t.Errorf("unexpected error: %v", err.Message)
	}

	if err := checkBranchName("", record); err == nil ||
		err.Message != "Could not determine PR branch name." {
		t.Errorf("got %v", err)
	}

	err := checkBranchName("main", record)
	if err == nil {
		t.Fatal("expected error for default branch")
	}
	want := `PR branch name is invalid. Expected format: "example.no.kg-request-[NUMBER]", but got "main".`
	if err.Message != want {
		t.Errorf("got %q, want %q", err.Message, want)
	}

	// A trailing suffix after the number must not match.
	if err := checkBranchName("example.no.kg-request-42-extra", record); err == nil {
		t.Error("expected error for trailing suffix")
	}
}
