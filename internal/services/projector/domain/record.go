package domain

import "encoding/json"

// FlattenedRecord is the structured, query-optimized projection of one
// source document, keyed one-to-one with its source record.
type FlattenedRecord struct {
	Key string

	FullName string
	Email    string
	Phone    string
	Location string
	Headline string
	Summary  string
	Gender   string

	CurrentCompany   string
	CurrentTitle     string
	CurrentStartDate string

	TotalYearsExperience  int
	YearsAtCurrentCompany int
	PastExperience        string

	Skills            []string
	Technologies      []string
	Languages         []string
	PreviousCompanies []string
	JobTitles         []string
	Industries        []string
	EducationDegrees  []string
	EducationSchools  []string
	EducationFields   []string
	Certifications    []string

	// Document carries the source payload verbatim.
	Document json.RawMessage
	Search   SearchDoc
}

// SearchDoc is the derived text-search representation, split into weighted
// tiers. Identity ranks highest at query time, Narrative lowest.
type SearchDoc struct {
	Identity  string
	Profile   string
	Narrative string
}

// IsZero reports whether no search text was derived.
func (s SearchDoc) IsZero() bool {
	return s.Identity == "" && s.Profile == "" && s.Narrative == ""
}
