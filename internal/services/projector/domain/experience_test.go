package domain

import (
	"reflect"
	"strings"
	"testing"
)

func TestIsCurrentDetection(t *testing.T) {
	tests := []struct {
		name  string
		entry ExperienceEntry
		want  bool
	}{
		{"absent end marker", ExperienceEntry{StartDate: "2020"}, true},
		{"empty end marker", ExperienceEntry{EndDate: "", hasEnd: true}, true},
		{"current sentinel", ExperienceEntry{EndDate: "current", hasEnd: true}, true},
		{"present sentinel mixed case", ExperienceEntry{EndDate: "Present", hasEnd: true}, true},
		{"ongoing sentinel", ExperienceEntry{EndDate: "ONGOING", hasEnd: true}, true},
		{"to_present flag", ExperienceEntry{EndDate: "2020", hasEnd: true, ToPresent: true}, true},
		{"closed range", ExperienceEntry{EndDate: "2020-06", hasEnd: true}, false},
		{"garbage end date", ExperienceEntry{EndDate: "soon", hasEnd: true}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entry.IsCurrent(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFirstCurrentEntryWins(t *testing.T) {
	entries := []ExperienceEntry{
		{Company: "First Corp", Title: "Lead", StartDate: "2022-01"},
		{Company: "Second Corp", Title: "Staff", StartDate: "2023-01"},
	}

	analysis := AnalyzeExperience(entries, 2024, true)
	if !analysis.HasCurrent {
		t.Fatal("expected a current entry")
	}
	if analysis.CurrentCompany != "First Corp" {
		t.Fatalf("expected first entry to win, got %q", analysis.CurrentCompany)
	}
	if !strings.Contains(analysis.PastExperience, "Staff at Second Corp") {
		t.Fatalf("expected second current-looking entry formatted as past, got %q", analysis.PastExperience)
	}
	if strings.Contains(analysis.PastExperience, "First Corp") {
		t.Fatalf("expected winning entry excluded from past experience, got %q", analysis.PastExperience)
	}
}

func TestTenureArithmetic(t *testing.T) {
	entries := []ExperienceEntry{
		{Company: "BigTech Corp", Title: "Senior PM", StartDate: "2022-01", EndDate: "current", hasEnd: true},
	}

	analysis := AnalyzeExperience(entries, 2024, true)
	if analysis.CurrentTenure != 3 {
		t.Fatalf("expected 3 years at current company, got %d", analysis.CurrentTenure)
	}
	if analysis.TotalYears != 3 {
		t.Fatalf("expected 3 total years, got %d", analysis.TotalYears)
	}
}

func TestTotalYearsSkipsUnparseableAndInverted(t *testing.T) {
	entries := []ExperienceEntry{
		{Company: "A", StartDate: "2010", EndDate: "2012", hasEnd: true},
		{Company: "B", StartDate: "someday", EndDate: "2015", hasEnd: true},
		{Company: "C", StartDate: "2020", EndDate: "2018", hasEnd: true},
	}

	analysis := AnalyzeExperience(entries, 2024, true)
	if analysis.TotalYears != 3 {
		t.Fatalf("expected only the parseable range to count, got %d", analysis.TotalYears)
	}
	if analysis.HasCurrent {
		t.Fatal("expected no current entry")
	}
}

func TestPastFragmentsRenderEmptySegments(t *testing.T) {
	entries := []ExperienceEntry{
		{Company: "Acme", StartDate: "2019", EndDate: "2020", hasEnd: true},
	}

	analysis := AnalyzeExperience(entries, 2024, true)
	want := " at Acme (2019 – 2020)"
	if analysis.PastExperience != want {
		t.Fatalf("expected %q, got %q", want, analysis.PastExperience)
	}
	if strings.Contains(analysis.PastExperience, "null") {
		t.Fatalf("expected no null literal, got %q", analysis.PastExperience)
	}
}

func TestCollectionsFoldAcrossEntries(t *testing.T) {
	entries := []ExperienceEntry{
		{Company: "Acme", Title: "Engineer", Industry: "Software", StartDate: "2018", EndDate: "2019", hasEnd: true},
		{Company: "Initech", Title: "Engineer", Industry: "Software", StartDate: "2019", EndDate: "2021", hasEnd: true},
		{Company: "Acme", Title: "Manager", StartDate: "2021"},
	}

	analysis := AnalyzeExperience(entries, 2024, true)
	if !reflect.DeepEqual(analysis.PreviousCompanies, []string{"Acme", "Initech"}) {
		t.Fatalf("unexpected companies: %v", analysis.PreviousCompanies)
	}
	if !reflect.DeepEqual(analysis.JobTitles, []string{"Engineer", "Manager"}) {
		t.Fatalf("unexpected titles: %v", analysis.JobTitles)
	}
	if !reflect.DeepEqual(analysis.Industries, []string{"Software"}) {
		t.Fatalf("unexpected industries: %v", analysis.Industries)
	}
}

func TestCollectionsCanExcludeCurrentEntry(t *testing.T) {
	entries := []ExperienceEntry{
		{Company: "Past Co", Title: "Engineer", StartDate: "2018", EndDate: "2020", hasEnd: true},
		{Company: "Now Co", Title: "Lead", StartDate: "2020"},
	}

	analysis := AnalyzeExperience(entries, 2024, false)
	if !reflect.DeepEqual(analysis.PreviousCompanies, []string{"Past Co"}) {
		t.Fatalf("expected current entry excluded, got %v", analysis.PreviousCompanies)
	}
	// Total experience still counts the excluded entry.
	if analysis.TotalYears != 8 {
		t.Fatalf("expected 8 total years, got %d", analysis.TotalYears)
	}
}

func TestExperienceEntriesResolveNestedShape(t *testing.T) {
	doc := mustDocument(t, `{"experiences":[
		{"company":{"name":"Globex"},"projects":[{"title":"Platform Lead"}],"duration":{"start_date":"2021-05","to_present":true}},
		{"company":{"name":"Initech"},"projects":[{"title":"Backend Dev"}],"duration":{"start_date":"2018-01","end_date":"2021-04"}}
	]}`)

	entries := doc.ExperienceEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Company != "Globex" || entries[0].Title != "Platform Lead" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if !entries[0].IsCurrent() {
		t.Fatal("expected to_present entry to be current")
	}
	if entries[1].IsCurrent() {
		t.Fatal("expected closed duration entry to be past")
	}
}

func TestExperienceEntriesNestedEndDateAbsentIsCurrent(t *testing.T) {
	doc := mustDocument(t, `{"experiences":[
		{"company":{"name":"Globex"},"duration":{"start_date":"2021-05"}}
	]}`)

	entries := doc.ExperienceEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].IsCurrent() {
		t.Fatal("expected entry without duration end date to be current")
	}
}
