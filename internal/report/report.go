// Package report turns a validation result into the user-facing PR comment,
// the console summary and the machine-readable artifact, and applies the
// pass/fail label. User-controlled strings are stripped of HTML before they
// are echoed back into a comment.
package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/publicfreesuffix/registry-automation/internal/validation"
)

const (
	readmeURL   = "https://github.com/PublicFreeSuffix/PublicFreeSuffix/blob/main/README.md"
	templateURL = "https://github.com/PublicFreeSuffix/PublicFreeSuffix/blob/main/.github/pull_request_template.md"
	araeURL     = "https://github.com/PublicFreeSuffix/PublicFreeSuffix/blob/main/AUTHORIZATION.md"
)

var stripPolicy = bluemonday.StrictPolicy()

// stripHTML removes any markup from a user-controlled string while keeping
// its plain text intact.
func stripHTML(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// BuildReport renders the full comment body for a validation result,
// mentioning the PR author when known.
func BuildReport(result *validation.Result, author string) string {
	if result.IsValid {
		return buildSuccessReport(result, author)
	}
	return buildFailureReport(result, author)
}

func buildSuccessReport(result *validation.Result, author string) string {
	mention := ""
	if author != "" {
		mention = "@" + stripHTML(author) + " "
	}
	d := result.Details
	return fmt.Sprintf(`✅ PR Validation Passed

%s**Validation Results:**
- ✅ Title format is correct
- ✅ PR description meets the template requirements
- ✅ File count meets requirements (1 file)
- ✅ File path is correct (whois/*.json)
- ✅ JSON format is valid
- ✅ Title and filename are consistent

**Details:**
- **Action type:** %s
- **Domain:** %s.%s
- **File:** %s

⏭️ **Final Step: you just need to complete the registrant's email verification according to [ARAE Instructions](%s) to complete the merger.**`,
		mention, stripHTML(d.ActionType), stripHTML(d.DomainName), stripHTML(d.SLD),
		stripHTML(d.FileName), araeURL)
}

func buildFailureReport(result *validation.Result, author string) string {
	mention := ""
	if author != "" {
		mention = "@" + stripHTML(author) + " "
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❌ PR Validation Failed\n\n%s**The following issues were found:**\n", mention)
	for i, err := range result.Errors {
		fmt.Fprintf(&b, "%d. ❌ %s\n", i+1, stripHTML(err.Message))
	}

	sections := helpSections(result)
	if len(sections) > 0 {
		b.WriteString("\n**Solutions:**\n")
		for i, section := range sections {
			fmt.Fprintf(&b, "\n### %d. %s\n%s\n", i+1, section.title, section.content)
		}
	}

	fmt.Fprintf(&b, "\n**Need help?** Please refer to the [README](%s).", readmeURL)
	return b.String()
}

type helpSection struct {
	title   string
	content string
}

// helpSections selects the remediation texts matching the categories of the
// accumulated errors, in a fixed order.
func helpSections(result *validation.Result) []helpSection {
	var sections []helpSection

	if result.HasCategory(validation.CategoryTitleFormat) {
		sections = append(sections, helpSection{
			title: "Fix Title Format",
			content: "The title must strictly follow this format:\n" +
				"```\nRegistration: example.no.kg\nUpdate: example.no.kg  \nRemove: example.no.kg\n```\n\n" +
				"**Examples:**\n" +
				"- ✅ `Registration: mycompany.no.kg`\n" +
				"- ❌ `Add new domain mycompany.no.kg`\n" +
				"- ❌ `Registration mycompany.no.kg` (missing colon)",
		})
	}

	if result.HasCategory(validation.CategoryDescription) {
		sections = append(sections, helpSection{
			title: "Complete PR Description",
			content: "The PR description must be filled out completely according to the template.\n\n" +
				"**Solutions:**\n" +
				"1. Use the provided PR template\n" +
				"2. Complete all confirmation items (including all checkboxes)\n" +
				"3. Select exactly one operation type\n" +
				"4. Confirm all agreement terms\n\n" +
				fmt.Sprintf("**Template link:** [PR Request Template](%s)", templateURL),
		})
	}

	if result.HasCategory(validation.CategoryFileCount) {
		sections = append(sections, helpSection{
			title: "Adjust File Count",
			content: "Each PR can only contain 1 file change.\n\n" +
				"**Solutions:**\n" +
				"- If you need to handle multiple domains, create separate PRs\n" +
				"- Check if other files were accidentally included\n" +
				"- Ensure only the target JSON file was modified",
		})
	}

	if result.HasCategory(validation.CategoryFilePath) {
		sections = append(sections, helpSection{
			title: "Fix File Path",
			content: "Files must be located in the `whois/` directory and be `.json` files.\n\n" +
				"**Correct file path format:**\n" +
				"```\nwhois/example.no.kg.json\nwhois/mycompany.so.kg.json\n```\n\n" +
				"**File naming rules:**\n" +
				"- Filename must exactly match the domain name\n" +
				"- Must have `.json` extension\n" +
				"- Must be located in the `whois/` directory",
		})
	}

	if result.HasCategory(validation.CategoryRemoveOperation) {
		sections = append(sections, helpSection{
			title: "Fix Remove Operation Issues",
			content: "For Remove operations:\n" +
				"1. The file must exist in the repository\n" +
				"2. The file must be marked for deletion\n" +
				"3. The file name must match the domain in the PR title\n" +
				"4. You must have proper permissions to remove the domain\n\n" +
				"Please ensure:\n" +
				"- You are removing the correct file\n" +
				"- The file exists in the main branch\n" +
				"- You have the necessary permissions",
		})
	}

	if result.HasCategory(validation.CategoryBranchName) {
		sections = append(sections, helpSection{
			title: "Fix Branch Name",
			content: "The PR branch must be named after the requested domain:\n" +
				"```\n<domain>.<sld>-request-<number>\n```\n\n" +
				"**Checklist:**\n" +
				"- The domain and suffix must match the whois file content\n" +
				"- The branch must end with `-request-` followed by a number\n" +
				"- Do not open requests from your `main` branch",
		})
	}

	return sections
}
