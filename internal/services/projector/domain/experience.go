package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// experienceListPaths locates the employment history list per document shape.
var experienceListPaths = []string{"work_experience", "experiences", "candidate.experiences"}

// currentSentinels are end-date markers that flag an ongoing position.
var currentSentinels = map[string]struct{}{
	"current": {},
	"present": {},
	"ongoing": {},
}

var leadingYearRe = regexp.MustCompile(`^\s*(\d{4})`)

// ExperienceEntry is one employment history entry, already resolved across
// shapes (flat company/title/dates vs company.name, duration sub-object and
// projects sub-array).
type ExperienceEntry struct {
	Company   string
	Title     string
	Industry  string
	StartDate string
	EndDate   string
	ToPresent bool
	hasEnd    bool
}

// ExperienceEntries reads the employment history from whichever list the
// document carries, in document order. Entries that are not objects are
// dropped.
func (d Document) ExperienceEntries() []ExperienceEntry {
	for _, path := range experienceListPaths {
		list := d.get(path)
		if !list.IsArray() {
			continue
		}
		var entries []ExperienceEntry
		list.ForEach(func(_, raw gjson.Result) bool {
			if raw.IsObject() {
				entries = append(entries, parseExperienceEntry(raw))
			}
			return true
		})
		if len(entries) > 0 {
			return entries
		}
	}
	return nil
}

func parseExperienceEntry(raw gjson.Result) ExperienceEntry {
	entry := ExperienceEntry{
		Company:   firstEntryString(raw, "company", "company.name"),
		Title:     firstEntryString(raw, "title", "role.title", "projects.0.title"),
		Industry:  firstEntryString(raw, "industry", "company.industry"),
		StartDate: firstEntryString(raw, "start_date", "duration.start_date"),
	}
	end := raw.Get("end_date")
	if !end.Exists() {
		end = raw.Get("duration.end_date")
	}
	if end.Exists() && end.Type == gjson.String {
		entry.EndDate = strings.TrimSpace(end.Str)
		entry.hasEnd = true
	}
	if flag := raw.Get("duration.to_present"); flag.Exists() && flag.Type == gjson.True {
		entry.ToPresent = true
	}
	return entry
}

func firstEntryString(raw gjson.Result, paths ...string) string {
	for _, path := range paths {
		value := raw.Get(path)
		if value.Type == gjson.String {
			if s := strings.TrimSpace(value.Str); s != "" {
				return s
			}
		}
	}
	return ""
}

// IsCurrent reports whether the entry describes an ongoing position: the end
// marker is absent, empty, or a sentinel token, or the duration sub-object
// flags it as running.
func (e ExperienceEntry) IsCurrent() bool {
	if e.ToPresent {
		return true
	}
	if !e.hasEnd {
		return true
	}
	end := strings.ToLower(strings.TrimSpace(e.EndDate))
	if end == "" {
		return true
	}
	_, ok := currentSentinels[end]
	return ok
}

// ExperienceAnalysis is the aggregate view over one employment history.
type ExperienceAnalysis struct {
	CurrentCompany    string
	CurrentTitle      string
	CurrentStartDate  string
	HasCurrent        bool
	TotalYears        int
	CurrentTenure     int
	PastExperience    string
	PreviousCompanies []string
	JobTitles         []string
	Industries        []string
}

// experienceDelta is one entry's contribution to the aggregate collections.
// The analyzer folds deltas instead of mutating shared accumulators, so a
// single entry's contribution stays independently testable.
type experienceDelta struct {
	companies  []string
	titles     []string
	industries []string
	years      int
	fragment   string
}

// AnalyzeExperience classifies entries as current or past, computes tenure
// arithmetic against evalYear for open-ended ranges, and folds per-entry
// deltas into the derived collections. When several entries qualify as
// current, the first in document order wins; the rest are formatted as past
// experience. includeCurrent controls whether the winning entry also feeds
// the collection fields.
func AnalyzeExperience(entries []ExperienceEntry, evalYear int, includeCurrent bool) ExperienceAnalysis {
	analysis := ExperienceAnalysis{}

	currentIdx := -1
	for i, entry := range entries {
		if entry.IsCurrent() {
			currentIdx = i
			break
		}
	}
	if currentIdx >= 0 {
		current := entries[currentIdx]
		analysis.HasCurrent = true
		analysis.CurrentCompany = current.Company
		analysis.CurrentTitle = current.Title
		analysis.CurrentStartDate = current.StartDate
		analysis.CurrentTenure = entryYears(current, evalYear)
	}

	var deltas []experienceDelta
	var fragments []string
	for i, entry := range entries {
		delta := entryDelta(entry, evalYear, i == currentIdx)
		deltas = append(deltas, delta)
		if delta.fragment != "" {
			fragments = append(fragments, delta.fragment)
		}
	}
	analysis.PastExperience = strings.Join(fragments, "; ")

	var companies, titles, industries []string
	for i, delta := range deltas {
		if i == currentIdx && !includeCurrent {
			continue
		}
		companies = append(companies, delta.companies...)
		titles = append(titles, delta.titles...)
		industries = append(industries, delta.industries...)
		analysis.TotalYears += delta.years
	}
	if currentIdx >= 0 && !includeCurrent {
		// Excluded from collections, still counted toward total experience.
		analysis.TotalYears += deltas[currentIdx].years
	}
	analysis.PreviousCompanies = dedupe(companies)
	analysis.JobTitles = dedupe(titles)
	analysis.Industries = dedupe(industries)
	return analysis
}

func entryDelta(entry ExperienceEntry, evalYear int, isCurrent bool) experienceDelta {
	delta := experienceDelta{years: entryYears(entry, evalYear)}
	if entry.Company != "" {
		delta.companies = append(delta.companies, entry.Company)
	}
	if entry.Title != "" {
		delta.titles = append(delta.titles, entry.Title)
	}
	if entry.Industry != "" {
		delta.industries = append(delta.industries, entry.Industry)
	}
	if !isCurrent {
		delta.fragment = pastFragment(entry)
	}
	return delta
}

// entryYears computes (end - start + 1) from leading 4-digit year tokens. An
// ongoing entry ends at evalYear; unparseable years contribute zero.
func entryYears(entry ExperienceEntry, evalYear int) int {
	start, ok := leadingYear(entry.StartDate)
	if !ok {
		return 0
	}
	end := evalYear
	if !entry.IsCurrent() {
		var parsed bool
		end, parsed = leadingYear(entry.EndDate)
		if !parsed {
			return 0
		}
	}
	if end < start {
		return 0
	}
	return end - start + 1
}

func leadingYear(date string) (int, bool) {
	match := leadingYearRe.FindStringSubmatch(date)
	if match == nil {
		return 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

// pastFragment renders "title at company (start – end)". Missing values
// render as empty segments, never as a null literal.
func pastFragment(entry ExperienceEntry) string {
	return fmt.Sprintf("%s at %s (%s – %s)", entry.Title, entry.Company, entry.StartDate, entry.EndDate)
}
