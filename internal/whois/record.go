// Package whois defines the whois record document and its field validators.
// A Record value is only ever produced after the closed-schema check and
// every field validator have passed; partially validated data never leaves
// this package.
package whois

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// requiredFields are the only keys a whois document may contain.
var requiredFields = []string{
	"registrant",
	"domain",
	"sld",
	"nameservers",
	"agree_to_agreements",
}

// Agreements are the three consents a registrant must give.
type Agreements struct {
	RegistrationAndUseAgreement bool `json:"registration_and_use_agreement"`
	AcceptableUsePolicy         bool `json:"acceptable_use_policy"`
	PrivacyPolicy               bool `json:"privacy_policy"`
}

// Record is a fully validated whois document.
type Record struct {
	Registrant  string     `json:"registrant"`
	Domain      string     `json:"domain"`
	SLD         string     `json:"sld"`
	Nameservers []string   `json:"nameservers"`
	Agreements  Agreements `json:"agree_to_agreements"`
}

// FQDN returns the registered name, domain label plus suffix.
func (r *Record) FQDN() string {
	return r.Domain + "." + r.SLD
}

// CheckSchema verifies that the decoded document is a plain object carrying
// exactly the five required fields. The returned message is empty when the
// shape is valid.
func CheckSchema(doc any) (map[string]any, string) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, "JSON file root level must be a non-array object"
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := obj[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", "))
	}

	var extra []string
	for field := range obj {
		if !isRequiredField(field) {
			extra = append(extra, field)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, fmt.Sprintf("Unexpected fields found: %s", strings.Join(extra, ", "))
	}

	return obj, ""
}

// Decode parses raw JSON into the generic document form used by the schema
// and field checks. A Record is assembled separately once everything passed.
func Decode(content string) (any, error) {
	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Assemble builds a typed Record from a document that already passed
// CheckSchema and all field validators.
func Assemble(obj map[string]any) *Record {
	record := &Record{
		Registrant: obj["registrant"].(string),
		Domain:     obj["domain"].(string),
		SLD:        obj["sld"].(string),
		Agreements: Agreements{
			RegistrationAndUseAgreement: true,
			AcceptableUsePolicy:         true,
			PrivacyPolicy:               true,
		},
	}
	for _, ns := range obj["nameservers"].([]any) {
		record.Nameservers = append(record.Nameservers, ns.(string))
	}
	return record
}

func isRequiredField(field string) bool {
	for _, f := range requiredFields {
		if field == f {
			return true
		}
	}
	return false
}
