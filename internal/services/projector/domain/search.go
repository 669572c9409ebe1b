package domain

import (
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"
)

// BuildSearchDoc derives the weighted search representation from a flattened
// record. It is a pure function of the record content: the record's search
// text is recomputed on every write and never mutated independently.
//
// SearchSourceFields tiers the structured fields by importance; the document
// variant instead flattens every scalar string in the raw payload into the
// middle tier, keeping identity anchored on the flattened fields.
func BuildSearchDoc(rec *FlattenedRecord, source SearchSource) SearchDoc {
	if rec == nil {
		return SearchDoc{}
	}

	identity := foldSearchText(rec.FullName, rec.CurrentCompany, rec.CurrentTitle)

	if source == SearchSourceDocument {
		return SearchDoc{
			Identity: identity,
			Profile:  foldSearchText(documentStrings(rec.Document)...),
		}
	}

	var profile []string
	profile = append(profile, rec.Headline, rec.Location)
	profile = append(profile, rec.Skills...)
	profile = append(profile, rec.Technologies...)
	profile = append(profile, rec.Languages...)
	profile = append(profile, rec.PreviousCompanies...)
	profile = append(profile, rec.JobTitles...)
	profile = append(profile, rec.Industries...)
	profile = append(profile, rec.EducationDegrees...)
	profile = append(profile, rec.EducationSchools...)
	profile = append(profile, rec.EducationFields...)
	profile = append(profile, rec.Certifications...)

	return SearchDoc{
		Identity:  identity,
		Profile:   foldSearchText(profile...),
		Narrative: foldSearchText(rec.Summary, rec.PastExperience),
	}
}

// documentStrings collects every scalar string in the payload, in document
// order.
func documentStrings(raw []byte) []string {
	var values []string
	var walk func(value gjson.Result) bool
	walk = func(value gjson.Result) bool {
		switch {
		case value.IsObject() || value.IsArray():
			value.ForEach(func(_, child gjson.Result) bool {
				return walk(child)
			})
		case value.Type == gjson.String:
			values = append(values, value.Str)
		}
		return true
	}
	walk(gjson.ParseBytes(raw))
	return values
}

// FoldQuery applies the same case and diacritic folding to a search query
// that BuildSearchDoc applies to indexed text.
func FoldQuery(query string) string {
	return foldSearchText(query)
}

// foldSearchText lowercases and strips diacritics so FTS matching is
// accent-insensitive, then joins the non-empty values with single spaces.
func foldSearchText(values ...string) string {
	var parts []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		parts = append(parts, stripDiacritics(strings.ToLower(value)))
	}
	return strings.Join(parts, " ")
}

func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var out strings.Builder
	out.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
