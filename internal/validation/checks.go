package validation

import (
	"regexp"
	"strings"

	"github.com/publicfreesuffix/registry-automation/internal/whois"
)

// Structural requirements of the PR description. The body must carry the
// three template sections, exactly one operation type selected, and at least
// eleven checked boxes overall.
var (
	operationTypeSectionRegex = regexp.MustCompile(
		`## Operation Type\s*-\s*\[[\sx]\]\s*Registration,\s*Register a new domain name\.` +
			`\s*-\s*\[[\sx]\]\s*Update,\s*Update NS information or registrant email for an existing domain\.` +
			`\s*-\s*\[[\sx]\]\s*Remove,\s*Cancel my domain name\.`)
	domainSectionRegex            = regexp.MustCompile(`## Domain\s*-\s*\[[\sx]\]`)
	confirmationItemsSectionRegex = regexp.MustCompile(`## Confirmation Items(\s*-\s*\[[\sx]\].+){9,}`)
	checkboxRegex                 = regexp.MustCompile(`\[[\sx]\]`)

	domainFieldRegex = regexp.MustCompile(`^[a-zA-Z0-9-]+$|^xn--[a-zA-Z0-9-]+$`)
	fileNameRegex    = regexp.MustCompile(`^whois/([^/]+)\.json$`)
)

const (
	minCheckedItems      = 11
	checkedBox           = "[x]"
	operationTypeHeading = "## Operation Type"
)

// checkDescription validates the PR body structure and returns every
// shortfall as its own itemized error.
func checkDescription(body string) []CheckError {
	if body == "" {
		return []CheckError{Errorf(CategoryDescription, "PR description cannot be empty")}
	}

	var errs []CheckError
	if !operationTypeSectionRegex.MatchString(body) {
		errs = append(errs, Errorf(CategoryDescription,
			"Operation Type section is missing or incomplete. Please select one operation type."))
	}
	if !domainSectionRegex.MatchString(body) {
		errs = append(errs, Errorf(CategoryDescription,
			"Domain section is missing or incomplete. Please confirm your domain name."))
	}
	if !confirmationItemsSectionRegex.MatchString(body) {
		errs = append(errs, Errorf(CategoryDescription,
			"Confirmation Items section is missing or incomplete. All 9 confirmation items must be present."))
	}

	if section, ok := operationTypeSection(body); ok {
		checked := countChecked(section)
		switch {
		case checked == 0:
			errs = append(errs, Errorf(CategoryDescription,
				"Please select one operation type by checking the corresponding checkbox."))
		case checked > 1:
			errs = append(errs, Errorf(CategoryDescription,
				"Please select only one operation type. Multiple operation types are selected."))
		}
	} else {
		errs = append(errs, Errorf(CategoryDescription,
			"Operation Type section is missing or malformed."))
	}

	if checked := countChecked(body); checked < minCheckedItems {
		errs = append(errs, Errorf(CategoryDescription,
			"Please check all confirmation items. Only %d of %d required items are checked.",
			checked, minCheckedItems))
	}

	return errs
}

// operationTypeSection extracts the body text between the Operation Type
// heading and the next heading (or end of body).
func operationTypeSection(body string) (string, bool) {
	start := strings.Index(body, operationTypeHeading)
	if start < 0 {
		return "", false
	}
	section := body[start+len(operationTypeHeading):]
	if end := strings.Index(section, "##"); end >= 0 {
		section = section[:end]
	}
	return section, true
}

func countChecked(text string) int {
	checked := 0
	for _, box := range checkboxRegex.FindAllString(text, -1) {
		if box == checkedBox {
			checked++
		}
	}
	return checked
}

// checkDomainFormat validates the whois domain field shape (not the reserved
// word list, which needs the deny-list source).
func checkDomainFormat(value any) *CheckError {
	domain, ok := value.(string)
	if !ok || domain == "" {
		err := Errorf(CategoryDomain, "domain field is required and must be a string")
		return &err
	}
	if len(domain) < 3 {
		err := Errorf(CategoryDomain,
			"domain must be at least 3 characters. Current length: %d", len(domain))
		return &err
	}
	if !domainFieldRegex.MatchString(domain) {
		err := Errorf(CategoryDomain,
			"domain must be alphanumeric with hyphens or xn-- format punycode. Current value: %q", domain)
		return &err
	}
	if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		err := Errorf(CategoryDomain,
			"domain cannot start or end with a hyphen. Current value: %q", domain)
		return &err
	}
	return nil
}

// checkTitleFileConsistency verifies that the filename base equals the
// domain implied by the title.
func checkTitleFileConsistency(domainName, sld, fileName string) *CheckError {
	match := fileNameRegex.FindStringSubmatch(fileName)
	if match == nil {
		err := Errorf(CategoryConsistency, "Unable to extract domain information from filename")
		return &err
	}
	fileBase := match[1]
	titleDomain := domainName + "." + sld
	if fileBase != titleDomain {
		err := Errorf(CategoryConsistency,
			"Domain %q in PR title does not match domain %q in filename", titleDomain, fileBase)
		return &err
	}
	return nil
}

// checkBranchName verifies the head branch follows
// "<domain>.<sld>-request-<number>", using the validated record's domain and
// suffix. The default branch never matches this shape.
func checkBranchName(branchName string, record *whois.Record) *CheckError {
	if branchName == "" {
		err := Errorf(CategoryBranchName, "Could not determine PR branch name.")
		return &err
	}
	prefix := record.FQDN() + "-request-"
	branchRegex := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\d+$`)
	if !branchRegex.MatchString(branchName) {
		err := Errorf(CategoryBranchName,
			"PR branch name is invalid. Expected format: %q, but got %q.", prefix+"[NUMBER]", branchName)
		return &err
	}
	return nil
}
