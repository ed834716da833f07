package whois

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FieldResult is the outcome of one field validator. Error is empty when the
// field is valid.
type FieldResult struct {
	IsValid bool
	Error   string
}

func fieldOK() FieldResult {
	return FieldResult{IsValid: true}
}

func fieldErr(format string, args ...any) FieldResult {
	return FieldResult{Error: fmt.Sprintf(format, args...)}
}

// emailRegex is a conservative RFC 5322 email pattern.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// nameserverRegex constrains each nameserver to hostname characters with
// alphanumeric first and last characters.
var nameserverRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.-]*[a-zA-Z0-9]$`)

// requiredAgreements are the exact keys the agree_to_agreements object must
// carry, each strictly boolean true.
var requiredAgreements = []string{
	"registration_and_use_agreement",
	"acceptable_use_policy",
	"privacy_policy",
}

// ValidateRegistrant checks the registrant email address.
func ValidateRegistrant(value any) FieldResult {
	registrant, ok := value.(string)
	if !ok || registrant == "" {
		return fieldErr("registrant field is required and must be a string")
	}

	if !emailRegex.MatchString(registrant) {
		return fieldErr("registrant must be a valid email address. Current value: %q", registrant)
	}

	if strings.Count(registrant, "@") != 1 {
		return fieldErr("registrant email cannot contain multiple @ symbols. Current value: %q", registrant)
	}

	domain := registrant[strings.Index(registrant, "@")+1:]
	if !strings.Contains(domain, ".") {
		return fieldErr("registrant email domain must contain at least one dot. Current value: %q", registrant)
	}

	if len(registrant) > 254 {
		return fieldErr("registrant email is too long (max 254 characters). Current length: %d", len(registrant))
	}

	localPart := registrant[:strings.Index(registrant, "@")]
	if len(localPart) > 64 {
		return fieldErr("registrant email local part is too long (max 64 characters). Current length: %d", len(localPart))
	}

	return fieldOK()
}

// ValidateNameservers checks the nameservers array: 2 to 6 unique hostnames,
// each with 2 to 4 dot-separated labels and no trailing dot. Duplicate
// detection is case-sensitive, exactly as provided.
func ValidateNameservers(value any) FieldResult {
	list, ok := value.([]any)
	if !ok {
		return fieldErr("nameservers field is required and must be an array")
	}

	if len(list) < 2 {
		return fieldErr("nameservers must have at least 2 entries, currently has %d", len(list))
	}
	if len(list) > 6 {
		return fieldErr("nameservers allows maximum 6 entries, currently has %d", len(list))
	}

	seen := make(map[string]struct{}, len(list))
	for _, ns := range list {
		seen[fmt.Sprintf("%T:%v", ns, ns)] = struct{}{}
	}
	if len(seen) != len(list) {
		return fieldErr("nameservers contains duplicate entries")
	}

	for i, entry := range list {
		ns, ok := entry.(string)
		if !ok || ns == "" {
			return fieldErr("nameservers[%d] must be a string", i)
		}
		if strings.HasSuffix(ns, ".") {
			return fieldErr("nameservers[%d] cannot end with a dot. Current value: %q", i, ns)
		}
		if !nameserverRegex.MatchString(ns) {
			return fieldErr("nameservers[%d] is not a valid domain format. Current value: %q", i, ns)
		}
		if !strings.Contains(ns, ".") {
			return fieldErr("nameservers[%d] must be a complete domain name (containing dots). Current value: %q", i, ns)
		}
		if parts := strings.Split(ns, "."); len(parts) < 2 || len(parts) > 4 {
			return fieldErr("nameservers[%d] must be a valid domain with 2-4 levels. Current value: %q", i, ns)
		}
	}

	return fieldOK()
}

// ValidateAgreements checks the agree_to_agreements object: exactly the
// three required keys, each strictly boolean true.
func ValidateAgreements(value any) FieldResult {
	agreements, ok := value.(map[string]any)
	if !ok {
		return fieldErr("agree_to_agreements field is required and must be an object")
	}

	var missing []string
	for _, field := range requiredAgreements {
		if _, ok := agreements[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fieldErr("agree_to_agreements is missing required fields: %s", strings.Join(missing, ", "))
	}

	var extra []string
	for field := range agreements {
		if !isRequiredAgreement(field) {
			extra = append(extra, field)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fieldErr("agree_to_agreements contains unexpected fields: %s", strings.Join(extra, ", "))
	}

	for _, field := range requiredAgreements {
		value := agreements[field]
		agreed, ok := value.(bool)
		if !ok {
			return fieldErr("agree_to_agreements.%s must be a boolean. Current value: %v", field, value)
		}
		if !agreed {
			return fieldErr("agree_to_agreements.%s must be true. Current value: %v", field, agreed)
		}
	}

	return fieldOK()
}

func isRequiredAgreement(field string) bool {
	for _, f := range requiredAgreements {
		if field == f {
			return true
		}
	}
	return false
}
