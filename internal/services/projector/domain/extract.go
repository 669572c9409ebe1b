package domain

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Field names one logical scalar or list field of the flattened record.
type Field string

// Scalar fields.
const (
	FieldFullName       Field = "full_name"
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldLocation       Field = "location"
	FieldHeadline       Field = "headline"
	FieldSummary        Field = "summary"
	FieldGender         Field = "gender"
	FieldCurrentCompany Field = "current_company"
	FieldCurrentTitle   Field = "current_title"
)

// List fields.
const (
	FieldSkills           Field = "skills"
	FieldTechnologies     Field = "technologies"
	FieldLanguages        Field = "languages"
	FieldEducationDegrees Field = "education_degrees"
	FieldEducationSchools Field = "education_schools"
	FieldEducationFields  Field = "education_fields"
	FieldCertifications   Field = "certifications"
)

// fieldPaths is the fallback chain per logical field: gjson paths tried in
// priority order. The legacy flat shape comes first, the nested candidate
// shape second. New document shapes extend these chains; nothing else in the
// extractor changes per shape.
var fieldPaths = map[Field][]string{
	FieldFullName:       {"name", "full_name", "candidate.name", "candidate.full_name"},
	FieldEmail:          {"email", "contact.email", "candidate.email", "candidate.contact.email"},
	FieldPhone:          {"phone", "contact.phone", "candidate.phone", "candidate.contact.phone"},
	FieldLocation:       {"location", "candidate.location"},
	FieldHeadline:       {"headline", "candidate.headline"},
	FieldSummary:        {"summary", "about", "candidate.summary", "candidate.about"},
	FieldGender:         {"gender", "candidate.gender"},
	FieldCurrentCompany: {"current_company", "candidate.current_company"},
	FieldCurrentTitle:   {"current_title", "candidate.current_title"},

	FieldSkills:           {"skills", "candidate.skills"},
	FieldTechnologies:     {"technologies", "tech_stack", "candidate.technologies"},
	FieldLanguages:        {"languages", "candidate.languages"},
	FieldEducationDegrees: {"education.#.degree", "candidate.education.#.degree"},
	FieldEducationSchools: {"education.#.school", "candidate.education.#.school"},
	FieldEducationFields:  {"education.#.field_of_study", "education.#.field", "candidate.education.#.field_of_study"},
	FieldCertifications:   {"certifications", "candidate.certifications"},
}

// listSeparators split a single delimited string into list values.
var listSeparators = []string{";", ","}

// String resolves one scalar field through its fallback chain. A missing or
// wrong-typed value yields "".
func (d Document) String(field Field) string {
	for _, path := range fieldPaths[field] {
		value := d.get(path)
		if value.Type == gjson.String {
			if s := strings.TrimSpace(value.Str); s != "" {
				return s
			}
		}
	}
	return ""
}

// StringList resolves one list field through its fallback chain. Both a JSON
// array of strings and a single delimited string normalize to the same
// deduplicated []string, first-seen order, no empty values.
func (d Document) StringList(field Field) []string {
	for _, path := range fieldPaths[field] {
		value := d.get(path)
		if !value.Exists() {
			continue
		}
		if values := coerceStringList(value); len(values) > 0 {
			return values
		}
	}
	return nil
}

func coerceStringList(value gjson.Result) []string {
	var collected []string
	switch {
	case value.IsArray():
		for _, element := range value.Array() {
			if element.Type == gjson.String {
				collected = append(collected, element.Str)
			}
		}
	case value.Type == gjson.String:
		collected = splitDelimited(value.Str)
	}
	return dedupe(collected)
}

func splitDelimited(raw string) []string {
	for _, sep := range listSeparators {
		if strings.Contains(raw, sep) {
			return strings.Split(raw, sep)
		}
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return []string{raw}
}

// dedupe trims values and keeps each distinct value once, in first-seen
// order, dropping empty strings. Matching is case-sensitive exact.
func dedupe(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
