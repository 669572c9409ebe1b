package domain

import (
	"strings"
	"time"
)

// SearchSource selects what feeds the search representation.
type SearchSource string

const (
	// SearchSourceFields builds search text from the flattened fields.
	SearchSourceFields SearchSource = "fields"
	// SearchSourceDocument builds search text from the raw document.
	SearchSourceDocument SearchSource = "document"
)

// Options tune normalization policy. The zero value is the default policy:
// wall-clock evaluation year, current entry included in collections, search
// text from flattened fields.
type Options struct {
	// Now anchors open-ended tenure ranges. Zero means time.Now.
	Now time.Time
	// ExcludeCurrentFromCollections drops the current entry's contribution
	// to previous companies, job titles and industries.
	ExcludeCurrentFromCollections bool
	SearchSource                  SearchSource
}

func (o Options) evalYear() int {
	if o.Now.IsZero() {
		return time.Now().UTC().Year()
	}
	return o.Now.UTC().Year()
}

// Normalize transforms one document into its flattened record. It is
// deterministic and side-effect-free: the same document, key and options
// always produce an identical record. Missing or malformed fields degrade to
// zero values; the only hard failure is a structurally invalid document.
func Normalize(doc Document, key string, opts Options) (*FlattenedRecord, error) {
	rec := &FlattenedRecord{
		Key: strings.TrimSpace(key),

		FullName: doc.String(FieldFullName),
		Email:    doc.String(FieldEmail),
		Phone:    doc.String(FieldPhone),
		Location: doc.String(FieldLocation),
		Headline: doc.String(FieldHeadline),
		Summary:  doc.String(FieldSummary),
		Gender:   doc.String(FieldGender),

		Skills:           doc.StringList(FieldSkills),
		Technologies:     doc.StringList(FieldTechnologies),
		Languages:        doc.StringList(FieldLanguages),
		EducationDegrees: doc.StringList(FieldEducationDegrees),
		EducationSchools: doc.StringList(FieldEducationSchools),
		EducationFields:  doc.StringList(FieldEducationFields),
		Certifications:   doc.StringList(FieldCertifications),

		Document: doc.Raw(),
	}

	analysis := AnalyzeExperience(doc.ExperienceEntries(), opts.evalYear(), !opts.ExcludeCurrentFromCollections)
	rec.CurrentCompany = analysis.CurrentCompany
	rec.CurrentTitle = analysis.CurrentTitle
	rec.CurrentStartDate = analysis.CurrentStartDate
	rec.TotalYearsExperience = analysis.TotalYears
	rec.YearsAtCurrentCompany = analysis.CurrentTenure
	rec.PastExperience = analysis.PastExperience
	rec.PreviousCompanies = analysis.PreviousCompanies
	rec.JobTitles = analysis.JobTitles
	rec.Industries = analysis.Industries

	// No current entry: fall back to root convenience fields, then headline.
	if rec.CurrentCompany == "" {
		rec.CurrentCompany = fallbackValue(doc.String(FieldCurrentCompany), rec.Headline)
	}
	if rec.CurrentTitle == "" {
		rec.CurrentTitle = fallbackValue(doc.String(FieldCurrentTitle), rec.Headline)
	}

	rec.Search = BuildSearchDoc(rec, opts.SearchSource)
	return rec, nil
}

func fallbackValue(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// ResolveKey applies the key fallback chain: the explicit record key, then a
// document-embedded id, then the alternate profile id.
func ResolveKey(key string, doc Document) (string, bool) {
	if resolved := strings.TrimSpace(key); resolved != "" {
		return resolved, true
	}
	for _, path := range []string{"id", "profile_id"} {
		if value := doc.get(path); value.Exists() {
			if resolved := strings.TrimSpace(value.String()); resolved != "" {
				return resolved, true
			}
		}
	}
	return "", false
}
